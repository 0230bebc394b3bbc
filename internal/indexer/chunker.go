package indexer

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	minChunkRunes = 50
	maxChunkRunes = 700 // targets ~450 tokens for a 512-token embedding model
)

// GuidelineChunker cuts guideline markdown into heading-scoped passages.
// Tables are kept because dosage and interaction guidance often lives in
// tabular form.
type GuidelineChunker struct {
	parser goldmark.Markdown
}

func NewGuidelineChunker() *GuidelineChunker {
	return &GuidelineChunker{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Chunk parses the document and returns its title and passages. The title is
// the first level-1 heading, then the first level-2 heading, then the
// filename.
func (c *GuidelineChunker) Chunk(content []byte, filename string) (string, []Chunk, error) {
	if len(content) == 0 {
		return titleFromFilename(filename), nil, nil
	}

	doc := c.parser.Parser().Parse(text.NewReader(content))
	title := extractTitle(doc, content, filename)
	chunks := buildChunks(doc, content, title)
	chunks = applySizeConstraints(chunks)
	return title, chunks, nil
}

func extractTitle(doc ast.Node, content []byte, filename string) string {
	var firstH1, firstH2 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		headingText := nodeText(heading, content)
		switch {
		case heading.Level == 1 && firstH1 == "":
			firstH1 = headingText
			return ast.WalkStop, nil
		case heading.Level == 2 && firstH2 == "":
			firstH2 = headingText
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return titleFromFilename(filename)
}

func titleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

type headingFrame struct {
	level int
	text  string
}

// buildChunks walks the AST, starting a new chunk at every heading and
// accumulating the text under it. Content before the first heading is
// attributed to the document title.
func buildChunks(doc ast.Node, content []byte, docTitle string) []Chunk {
	var chunks []Chunk
	var current *Chunk
	var stack []headingFrame

	flush := func() {
		if current != nil && strings.TrimSpace(current.Text) != "" {
			chunks = append(chunks, *current)
		}
		current = nil
	}
	ensure := func() *Chunk {
		if current == nil {
			current = &Chunk{HeadingPath: "# " + docTitle}
		}
		return current
	}
	breakLine := func() {
		if current != nil && current.Text != "" && !strings.HasSuffix(current.Text, "\n") {
			current.Text += "\n"
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			flush()
			for len(stack) > 0 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingFrame{level: node.Level, text: nodeText(node, content)})
			current = &Chunk{HeadingPath: headingPath(stack)}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.List, *ast.ListItem:
			breakLine()

		case *ast.Text:
			ensure().Text += string(node.Segment.Value(content))

		case *ast.String:
			ensure().Text += string(node.Value)

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			chunk := ensure()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				chunk.Text += string(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil

		default:
			kind := n.Kind().String()
			if kind == "TableRow" || kind == "TableHeader" {
				breakLine()
				ensure().Text += tableRowText(n, content) + "\n"
				return ast.WalkSkipChildren, nil
			}
			if kind == "Table" {
				breakLine()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	if len(chunks) == 0 && strings.TrimSpace(string(content)) != "" {
		chunks = append(chunks, Chunk{HeadingPath: "# " + docTitle, Text: string(content)})
	}
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

func headingPath(stack []headingFrame) string {
	parts := make([]string, len(stack))
	for i, frame := range stack {
		parts[i] = strings.Repeat("#", frame.level) + " " + frame.text
	}
	return strings.Join(parts, " > ")
}

func nodeText(n ast.Node, content []byte) string {
	var builder strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			builder.Write(v.Segment.Value(content))
		case *ast.String:
			builder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(builder.String())
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind().String() == "TableCell" {
			cells = append(cells, nodeText(node, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(cells, " | ")
}

// applySizeConstraints merges undersized chunks into their successor and
// splits oversized ones. Sizes are measured in runes to stay consistent with
// embedding token estimates.
func applySizeConstraints(chunks []Chunk) []Chunk {
	var result []Chunk
	for i := 0; i < len(chunks); i++ {
		current := chunks[i]

		for i+1 < len(chunks) {
			next := chunks[i+1]
			samePath := current.HeadingPath == next.HeadingPath && current.HeadingPath != ""
			tooSmall := utf8.RuneCountInString(current.Text) < minChunkRunes
			if !samePath && !tooSmall {
				break
			}
			merged := current.Text + "\n\n" + next.Text
			if utf8.RuneCountInString(merged) > maxChunkRunes {
				break
			}
			current.Text = merged
			i++
		}

		if utf8.RuneCountInString(current.Text) > maxChunkRunes {
			result = append(result, splitChunk(current)...)
		} else {
			result = append(result, current)
		}
	}

	for i := range result {
		result[i].Index = i
	}
	return result
}

// splitChunk cuts an oversized chunk at paragraph, line, or sentence
// boundaries, hard-splitting only as a last resort.
func splitChunk(chunk Chunk) []Chunk {
	runes := []rune(chunk.Text)
	var splits []Chunk

	start := 0
	for start < len(runes) {
		end := start + maxChunkRunes
		if end >= len(runes) {
			splits = append(splits, Chunk{HeadingPath: chunk.HeadingPath, Text: string(runes[start:])})
			break
		}

		window := string(runes[start:end])
		cut := end
		if b := strings.LastIndex(window, "\n\n"); b != -1 {
			cut = start + len([]rune(window[:b])) + 2
		} else if b := strings.LastIndex(window, "\n"); b != -1 {
			cut = start + len([]rune(window[:b])) + 1
		} else if b := strings.LastIndex(window, ". "); b != -1 {
			cut = start + len([]rune(window[:b])) + 2
		}

		splits = append(splits, Chunk{HeadingPath: chunk.HeadingPath, Text: string(runes[start:cut])})
		start = cut
	}
	return splits
}
