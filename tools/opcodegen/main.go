/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// opcodegen is a dev-time completeness checker. It is a deliberately
// simplified relative of _scm_ref/tools/jitgen: jitgen reads Go SSA for
// Declaration bodies to generate JITEmit closures, a code-generation
// strategy this repository doesn't use (codegen here is hand-written,
// engine/jit_amd64.go). opcodegen only answers one question: does every
// non-sentinel Opcode constant have a registered Step() case?
//
// Run: go run ./tools/opcodegen -pkg ./engine
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/token"
	"os"

	"golang.org/x/tools/go/packages"
)

func main() {
	pkgPath := flag.String("pkg", "./engine", "package to check for opcode/handler completeness")
	flag.Parse()

	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName,
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(cfg, *pkgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opcodegen: load failed:", err)
		os.Exit(1)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}

	opcodes := map[string]bool{}
	handled := map[string]bool{}
	inOpcode := false

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				switch node := n.(type) {
				case *ast.ValueSpec:
					// const ( OpFoo Opcode = iota ... ) declarations: a spec with
					// neither type nor values repeats the previous spec's type.
					if node.Type != nil {
						ident, ok := node.Type.(*ast.Ident)
						inOpcode = ok && ident.Name == "Opcode"
					} else if len(node.Values) > 0 {
						inOpcode = false
					}
					if inOpcode {
						for _, name := range node.Names {
							if name.Name != "_" {
								opcodes[name.Name] = true
							}
						}
					}
				case *ast.CaseClause:
					for _, expr := range node.List {
						if sel, ok := expr.(*ast.SelectorExpr); ok {
							handled[sel.Sel.Name] = true
						} else if ident, ok := expr.(*ast.Ident); ok {
							handled[ident.Name] = true
						}
					}
				}
				return true
			})
		}
	}

	delete(opcodes, "opcodeCount")

	missing := 0
	for op := range opcodes {
		if !handled[op] {
			fmt.Printf("opcodegen: %s has no registered handler case\n", op)
			missing++
		}
	}
	if missing > 0 {
		fmt.Printf("opcodegen: %d opcode(s) missing a Step() handler\n", missing)
		os.Exit(1)
	}
	fmt.Printf("opcodegen: %d opcodes, all handled\n", len(opcodes))
}
