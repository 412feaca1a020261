package chunker

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// NodeKind classifies a markdown AST node.
type NodeKind string

const (
	NodeHeading   NodeKind = "HEADING"
	NodeText      NodeKind = "TEXT"
	NodeList      NodeKind = "LIST"
	NodeCode      NodeKind = "CODE"
	NodeMermaid   NodeKind = "MERMAID"
	NodeJSON      NodeKind = "JSON"
	NodeYAML      NodeKind = "YAML"
	NodeOther     NodeKind = "OTHER"
)

// DocNode is one entry in the ordered AST sequence ParseNodes produces.
type DocNode struct {
	Kind  NodeKind
	Text  string
	Level int // heading level, 0 otherwise
}

// Section is a run of nodes starting at a HEADING (or document start) and
// ending right before the next HEADING or BLOCK_CODE node: code blocks
// always end a section and stand alone as their own node.
type Section struct {
	Heading *DocNode // nil for a leading section with no heading
	Nodes   []DocNode
}

// MarkdownChunker walks a goldmark AST into an ordered node sequence, groups
// it into sections, and then folds those sections into chunks sized by
// WordBudget's TargetWords and MaxWords; WordBudget's full rule (including
// overlap) applies only to a section it hard-cuts.
type MarkdownChunker struct {
	WordBudget WordBudgetChunker
}

// ParseNodes parses source into the ordered node sequence.
func (m MarkdownChunker) ParseNodes(source []byte) []DocNode {
	reader := text.NewReader(source)
	doc := goldmark.New().Parser().Parse(reader)

	var nodes []DocNode
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			nodes = append(nodes, DocNode{
				Kind:  NodeHeading,
				Text:  string(node.Text(source)),
				Level: node.Level,
			})
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			nodes = append(nodes, DocNode{Kind: classifyCodeBlock(node, source), Text: codeBlockText(node, source)})
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			nodes = append(nodes, DocNode{Kind: NodeCode, Text: codeBlockLinesText(node, source)})
			return ast.WalkSkipChildren, nil
		case *ast.List:
			nodes = append(nodes, DocNode{Kind: NodeList, Text: string(node.Text(source))})
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			nodes = append(nodes, DocNode{Kind: NodeText, Text: string(node.Text(source))})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return nodes
}

// GroupSections groups nodes into sections: a new section begins at every
// HEADING node (or at the document start if there's leading content before
// the first heading); a BLOCK_CODE-family node always closes the current
// section and is appended afterward as its own single-node section so it
// can be translated and chunked independently.
func (m MarkdownChunker) GroupSections(nodes []DocNode) []Section {
	var sections []Section
	current := Section{}
	flush := func() {
		if current.Heading != nil || len(current.Nodes) > 0 {
			sections = append(sections, current)
		}
		current = Section{}
	}

	for i := range nodes {
		node := nodes[i]
		switch node.Kind {
		case NodeHeading:
			flush()
			h := node
			current.Heading = &h
		case NodeCode, NodeMermaid, NodeJSON, NodeYAML:
			flush()
			sections = append(sections, Section{Nodes: []DocNode{node}})
		default:
			current.Nodes = append(current.Nodes, node)
		}
	}
	flush()
	return sections
}

// classifyCodeBlock inspects a fenced code block's info string to
// distinguish MERMAID/JSON/YAML from plain CODE.
func classifyCodeBlock(node *ast.FencedCodeBlock, source []byte) NodeKind {
	lang := string(node.Language(source))
	switch lang {
	case "mermaid":
		return NodeMermaid
	case "json":
		return NodeJSON
	case "yaml", "yml":
		return NodeYAML
	default:
		return NodeCode
	}
}

func codeBlockText(node *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func codeBlockLinesText(node *ast.CodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// Chunk iterates sections in order, packing whole sections: it starts a new
// chunk at a section with a heading once TargetWords is reached, forces a
// new chunk if the next section would exceed MaxWords, and hard-cuts a
// section that alone exceeds MaxWords via the word-budget rule. Sections
// are not split at node boundaries, so the MaxWords checks apply to a
// section as a whole, not to its individual nodes. Callers are
// expected to have already run sections through TranslateSections so
// code-like nodes carry translated prose rather than raw source; StripCode
// is applied to each emitted chunk as a final defensive pass, not as the
// translation step.
func (m MarkdownChunker) Chunk(sections []Section) []Chunk {
	var chunks []Chunk
	var buf []string
	var bufNodes []string
	bufWords := 0
	number := 0

	emit := func() {
		if bufWords == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:         StripCode(joinNonEmpty(buf)),
			ChunkNumber:  number,
			WordCount:    bufWords,
			BoundaryType: BoundarySemantic,
			Nodes:        append([]string(nil), bufNodes...),
		})
		number++
		buf = nil
		bufNodes = nil
		bufWords = 0
	}

	for _, section := range sections {
		var sectionText []string
		if section.Heading != nil {
			sectionText = append(sectionText, section.Heading.Text)
		}
		for _, n := range section.Nodes {
			sectionText = append(sectionText, n.Text)
		}
		sectionBody := joinNonEmpty(sectionText)
		words := wordCount(sectionBody)

		if words > m.WordBudget.MaxWords {
			emit()
			for _, sub := range m.WordBudget.Chunk(sectionBody) {
				sub.ChunkNumber = number
				sub.Nodes = sectionKinds(section)
				chunks = append(chunks, sub)
				number++
			}
			continue
		}

		if bufWords > 0 && bufWords+words > m.WordBudget.MaxWords {
			emit()
		}
		if bufWords >= m.WordBudget.TargetWords && section.Heading != nil {
			emit()
		}

		buf = append(buf, sectionBody)
		bufNodes = append(bufNodes, sectionKinds(section)...)
		bufWords += words
	}
	emit()

	if len(chunks) > 0 {
		chunks[len(chunks)-1].BoundaryType = BoundaryEndOfDocument
	}
	return chunks
}

func sectionKinds(s Section) []string {
	var kinds []string
	if s.Heading != nil {
		kinds = append(kinds, string(s.Heading.Kind))
	}
	for _, n := range s.Nodes {
		kinds = append(kinds, string(n.Kind))
	}
	return kinds
}

func joinNonEmpty(parts []string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	result := ""
	for i, p := range out {
		if i > 0 {
			result += "\n\n"
		}
		result += p
	}
	return result
}

func wordCount(body string) int {
	count := 0
	inWord := false
	for _, r := range body {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !isSpace && !inWord {
			count++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return count
}
