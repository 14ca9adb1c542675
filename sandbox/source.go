package sandbox

import (
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
)

// scriptHeader makes a script parseable as a file so its import
// declarations can be read.
const scriptHeader = "package main\n"

// importSpec is one import declaration of a code unit.
type importSpec struct {
	Name string
	Path string
	Line int
}

// unit is a code unit split into the parts the interpreter evaluates
// separately.
type unit struct {
	// program is set for complete sources starting with a package clause.
	program bool

	imports []importSpec

	// importSrc re-declares the script's imports, without agent.
	importSrc string

	// body is the script after its imports, or the whole program.
	body string

	// bodyLine is the line of the code unit the body starts on.
	bodyLine int
}

// parseUnit reads the import declarations of code. Statements are left to
// the interpreter.
func parseUnit(code string) (unit, error) {
	if firstToken(code) == token.PACKAGE {
		specs, _, err := readImports(code, 0)
		if err != nil {
			return unit{}, err
		}
		return unit{program: true, imports: specs, body: code, bodyLine: 1}, nil
	}

	specs, end, err := readImports(scriptHeader+code, 1)
	if err != nil {
		return unit{}, err
	}
	end -= len(scriptHeader)
	if end < 0 {
		end = 0
	}

	var b strings.Builder
	for _, s := range specs {
		if s.Path == agentPackage {
			continue
		}
		if s.Name != "" {
			fmt.Fprintf(&b, "import %s %q\n", s.Name, s.Path)
		} else {
			fmt.Fprintf(&b, "import %q\n", s.Path)
		}
	}

	body := code[end:]
	// A leading semicolon makes the interpreter treat declarations and
	// statements alike as one statement list. Function declarations must
	// stay at file level.
	if strings.TrimSpace(body) != "" && firstToken(body) != token.FUNC {
		body = ";" + body
	}
	return unit{
		imports:   specs,
		importSrc: b.String(),
		body:      body,
		bodyLine:  strings.Count(code[:end], "\n") + 1,
	}, nil
}

// readImports parses the import declarations of src. lineShift is
// subtracted from reported lines. It returns the byte offset where the
// import section ends.
func readImports(src string, lineShift int) ([]importSpec, int, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ImportsOnly)
	if err != nil {
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			e := list[0]
			return nil, 0, &ExecutionError{
				Kind:    KindCompile,
				Message: e.Msg,
				Line:    e.Pos.Line - lineShift,
				Column:  e.Pos.Column,
				Err:     err,
			}
		}
		return nil, 0, &ExecutionError{Kind: KindCompile, Message: err.Error(), Err: err}
	}

	var specs []importSpec
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return nil, 0, &ExecutionError{Kind: KindCompile, Message: "invalid import path " + imp.Path.Value, Err: err}
		}
		s := importSpec{Path: path, Line: fset.Position(imp.Pos()).Line - lineShift}
		if imp.Name != nil {
			s.Name = imp.Name.Name
		}
		specs = append(specs, s)
	}

	end := 0
	if n := len(f.Decls); n > 0 {
		end = fset.Position(f.Decls[n-1].End()).Offset
	} else {
		end = fset.Position(f.Name.End()).Offset
	}
	return specs, end, nil
}

// firstToken returns the first non-comment token of src.
func firstToken(src string) token.Token {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, []byte(src), nil, 0)
	for {
		_, tok, _ := s.Scan()
		if tok != token.SEMICOLON {
			return tok
		}
	}
}
