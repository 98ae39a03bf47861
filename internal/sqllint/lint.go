// Package sqllint checks that every SQL string constant starts with a unique
// "--sql <uuid>" audit marker, the same marker infra.SQLRunner logs.
package sqllint

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"adprint/internal/infra"
)

var sqlKeyword = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)

type Violation struct {
	File    string
	Line    int
	Name    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.File, v.Line, v.Message, v.Name)
}

// Lint walks the given files and directories and reports constants that
// look like SQL but carry a missing, malformed or repeated marker.
func Lint(targets ...string) ([]Violation, error) {
	l := &linter{seen: map[string]string{}}
	for _, target := range targets {
		err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			return l.file(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return l.violations, nil
}

type linter struct {
	seen       map[string]string
	violations []Violation
}

func (l *linter) file(path string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return fmt.Errorf("sqllint: parse %s: %w", path, err)
	}
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := strconv.Unquote(lit.Value)
			if err != nil || !sqlKeyword.MatchString(raw) {
				continue
			}
			name := "_"
			if i < len(spec.Names) {
				name = spec.Names[i].Name
			}
			l.check(path, fset.Position(lit.Pos()).Line, name, raw)
		}
		return true
	})
	return nil
}

func (l *linter) check(path string, line int, name, query string) {
	report := func(msg string) {
		l.violations = append(l.violations, Violation{File: path, Line: line, Name: name, Message: msg})
	}
	marker, _, err := infra.ExtractMarker(query)
	if err != nil {
		report("missing or invalid --sql <uuid> marker")
		return
	}
	if prev, dup := l.seen[marker]; dup {
		report("marker already used by " + prev)
		return
	}
	l.seen[marker] = name
}
