// # Description
//
// Package cfg provides the control flow graph (CFG) the symbolic execution
// engine walks, and a frontend that lowers Go functions into it.
//
// ## Control Flow Graph (CFG)
//
// A CFG is a representation, using graph notation, of all paths that might be traversed
// through a function during its execution. In this package:
//
//   - Each Block holds an ordered list of Elements, a straight-line sequence without jumps.
//   - Elements are evaluated in post-order: operands push values on an evaluation
//     stack, operators pop them. Every Element has a closed Kind tag.
//   - A Block either branches on the value left on top of the stack (True/False
//     successors), or continues to all of its successors. The Exit block has none.
//
// ## Package Functionality
//
//  1. Model: Graph, Block, Element, Symbol, Method and Point.
//  2. Lowering: NewProgram indexes every function of a type-checked package and
//     builds its Graph from golang.org/x/tools/go/cfg blocks, splitting short
//     circuit operators into explicit branches.
//  3. Output: PrintDot writes a graph in GraphViz format.
package cfg
