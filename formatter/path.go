package formatter

// PathIssueFormatter renders issues proven along every path reaching a
// point: it names the function and adds a hint on what the check proved.
type PathIssueFormatter struct {
	Hint string
}

func (f *PathIssueFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Filename .StartLine .StartColumn -}}
{{function .Function .Padding -}}
{{snippet .SnippetLines .StartLine .EndLine .MaxLineNumWidth .CommonIndent .Padding -}}
{{underlineAndMessage .Message .Padding .StartLine .EndLine .StartColumn .EndColumn .SnippetLines .CommonIndent -}}
{{note .Note .Padding -}}
{{note .Hint .Padding}}
`
}
