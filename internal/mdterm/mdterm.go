// Package mdterm renders markdown as ANSI-styled terminal text. Answers
// come back from the backend in markdown, so the TUI needs a renderer that
// targets a fixed-width viewport instead of HTML.
package mdterm

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	headingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7fb069"))
	strongStyle    = lipgloss.NewStyle().Bold(true)
	emphasisStyle  = lipgloss.NewStyle().Italic(true)
	codeSpanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	codeBlockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	linkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	quoteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	ruleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const minRenderWidth = 20

// Render converts markdown source into styled text wrapped to width.
// Unknown constructs degrade to their plain text content rather than
// erroring; the result is always displayable.
func Render(source string, width int) string {
	if width < minRenderWidth {
		width = minRenderWidth
	}
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if block := renderBlock(node, src, width); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func renderBlock(node ast.Node, src []byte, width int) string {
	switch n := node.(type) {
	case *ast.Heading:
		label := renderInlines(n, src)
		if n.Level > 2 {
			label = "· " + label
		}
		return headingStyle.Render(label)
	case *ast.Paragraph, *ast.TextBlock:
		return wordwrap.String(renderInlines(node, src), width)
	case *ast.List:
		return renderList(n, src, width)
	case *ast.FencedCodeBlock:
		return renderCodeLines(n, src)
	case *ast.CodeBlock:
		return renderCodeLines(n, src)
	case *ast.Blockquote:
		var inner []string
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if block := renderBlock(child, src, width-2); block != "" {
				inner = append(inner, block)
			}
		}
		return prefixLines(strings.Join(inner, "\n"), quoteStyle.Render("│ "))
	case *ast.ThematicBreak:
		return ruleStyle.Render(strings.Repeat("─", min(width, 32)))
	case *ast.HTMLBlock:
		return ""
	default:
		if node.Type() == ast.TypeBlock {
			return wordwrap.String(renderInlines(node, src), width)
		}
		return ""
	}
}

func renderList(list *ast.List, src []byte, width int) string {
	var items []string
	index := list.Start
	if index == 0 {
		index = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d. ", index)
			index++
		}
		var parts []string
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if block := renderBlock(child, src, width-len(marker)); block != "" {
				parts = append(parts, block)
			}
		}
		items = append(items, hangIndent(strings.Join(parts, "\n"), marker))
	}
	return strings.Join(items, "\n")
}

func renderCodeLines(node interface {
	Lines() *text.Segments
}, src []byte) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	raw := strings.TrimRight(sb.String(), "\n")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		out = append(out, "  "+codeBlockStyle.Render(line))
	}
	return strings.Join(out, "\n")
}

func renderInlines(node ast.Node, src []byte) string {
	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		sb.WriteString(renderInline(child, src))
	}
	return sb.String()
}

func renderInline(node ast.Node, src []byte) string {
	switch n := node.(type) {
	case *ast.Text:
		out := string(n.Segment.Value(src))
		if n.SoftLineBreak() {
			out += " "
		}
		if n.HardLineBreak() {
			out += "\n"
		}
		return out
	case *ast.CodeSpan:
		return codeSpanStyle.Render(nodeText(n, src))
	case *ast.Emphasis:
		inner := renderInlines(n, src)
		if n.Level >= 2 {
			return strongStyle.Render(inner)
		}
		return emphasisStyle.Render(inner)
	case *ast.Link:
		label := renderInlines(n, src)
		dest := string(n.Destination)
		if label == "" || label == dest {
			return linkStyle.Render(dest)
		}
		return label + " " + linkStyle.Render("("+dest+")")
	case *ast.AutoLink:
		return linkStyle.Render(string(n.URL(src)))
	case *ast.Image:
		return renderInlines(n, src)
	case *ast.String:
		return string(n.Value)
	case *ast.RawHTML:
		return ""
	default:
		return renderInlines(node, src)
	}
}

func nodeText(node ast.Node, src []byte) string {
	var sb strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
		}
	}
	return sb.String()
}

// hangIndent puts marker before the first line and aligns every
// following line under the text, not the marker.
func hangIndent(block, marker string) string {
	lines := strings.Split(block, "\n")
	pad := strings.Repeat(" ", len(marker))
	for i, line := range lines {
		if i == 0 {
			lines[i] = marker + line
			continue
		}
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}

func prefixLines(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
