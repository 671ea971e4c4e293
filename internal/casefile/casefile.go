// Package casefile extracts conformance cases from Markdown documents.
//
// A case starts at a heading "Test: <name>" and collects the fenced code
// blocks that follow it:
//
//	sexp      the program, as an S-expression tree (required)
//	input     lines fed to READ
//	output    the expected WRITE output
//	error     a substring of the expected compile or runtime error
//	bytecode  the expected program text
//
// Prose and unlabeled fences are ignored.
package casefile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Fence languages.
const (
	FenceSource   = "sexp"
	FenceInput    = "input"
	FenceOutput   = "output"
	FenceError    = "error"
	FenceBytecode = "bytecode"
)

const headingPrefix = "Test: "

// Case is one conformance case.
type Case struct {
	Name string
	Line int // line of the source fence

	Source   string
	Input    string
	Output   string
	Error    string
	Bytecode string

	HasOutput   bool
	HasBytecode bool
}

// Load reads and extracts the cases of a Markdown file.
func Load(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Extract(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Extract parses markdown and returns its cases in document order.
func Extract(markdown string) ([]Case, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case
	finish := func() error {
		if current == nil {
			return nil
		}
		if err := validate(current); err != nil {
			return err
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if !strings.HasPrefix(heading, headingPrefix) {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{Name: strings.TrimSpace(strings.TrimPrefix(heading, headingPrefix))}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			if lang == "" {
				return ast.WalkContinue, nil
			}
			line := lineOf(n, source)
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test", line, lang)
			}
			if err := current.add(lang, blockText(n, source), line); err != nil {
				return ast.WalkStop, fmt.Errorf("line %d: test %q: %w", line, current.Name, err)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (c *Case) add(lang, content string, line int) error {
	trimmed := strings.TrimRight(content, "\n")
	switch lang {
	case FenceSource:
		if c.Source != "" {
			return fmt.Errorf("more than one %s fence", lang)
		}
		c.Source = trimmed
		c.Line = line
	case FenceInput:
		c.Input = content
	case FenceOutput:
		c.Output = content
		c.HasOutput = true
	case FenceError:
		c.Error = trimmed
	case FenceBytecode:
		c.Bytecode = content
		c.HasBytecode = true
	default:
		return fmt.Errorf("unknown fence language %q", lang)
	}
	return nil
}

func validate(c *Case) error {
	if c.Source == "" {
		return fmt.Errorf("test %q has no %s fence", c.Name, FenceSource)
	}
	if !c.HasOutput && !c.HasBytecode && c.Error == "" {
		return fmt.Errorf("test %q has nothing to check", c.Name)
	}
	return nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockText(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf is the 1-based line of the block's first content line.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte{'\n'}) + 1
}
