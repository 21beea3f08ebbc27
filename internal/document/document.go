// Package document holds the structured representation of a meeting
// protocol: an ordered list of tagged nodes (headings, list items,
// paragraphs). The text form of a document follows a constrained
// markdown grammar that both the protocol generator and the renderer
// agree on, so a document can round-trip between text and tree form.
package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Node is one block-level element of a document. The set of
// implementations is closed: Heading, Bullet, Numbered and Paragraph.
type Node interface {
	appendText(b *strings.Builder)
}

// Heading is a section heading with level 1 to 3.
type Heading struct {
	Level int
	Text  string
}

// Bullet is a single unordered list item.
type Bullet struct {
	Text string
}

// Numbered is a single ordered list item. N carries the number already
// present in the text form, so rendering never renumbers.
type Numbered struct {
	N    int
	Text string
}

// Paragraph is a block of plain wrapped text.
type Paragraph struct {
	Text string
}

// Document is an ordered list of nodes.
type Document struct {
	Nodes []Node
}

func (d *Document) Add(nodes ...Node) {
	d.Nodes = append(d.Nodes, nodes...)
}

func (d *Document) Empty() bool {
	return d == nil || len(d.Nodes) == 0
}

var numberedLine = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

// Parse reads the constrained markdown grammar line by line: "#", "##"
// and "###" prefixes mark headings, "- " marks bullets, "N. " marks
// numbered items, blank lines separate paragraphs and everything else
// is paragraph text. Consecutive plain lines merge into one paragraph.
func Parse(text string) *Document {
	doc := &Document{}
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		doc.Add(Paragraph{Text: strings.Join(paragraph, " ")})
		paragraph = nil
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimRight(rawLine, " \t\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "###"):
			flush()
			doc.Add(Heading{Level: 3, Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "###"))})
		case strings.HasPrefix(trimmed, "##"):
			flush()
			doc.Add(Heading{Level: 2, Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "##"))})
		case strings.HasPrefix(trimmed, "#"):
			flush()
			doc.Add(Heading{Level: 1, Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))})
		case strings.HasPrefix(trimmed, "- "):
			flush()
			doc.Add(Bullet{Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))})
		default:
			if m := numberedLine.FindStringSubmatch(trimmed); m != nil {
				flush()
				n, _ := strconv.Atoi(m[1])
				doc.Add(Numbered{N: n, Text: strings.TrimSpace(m[2])})
				continue
			}
			paragraph = append(paragraph, trimmed)
		}
	}

	flush()
	return doc
}

func (h Heading) appendText(b *strings.Builder) {
	level := h.Level
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	b.WriteString(strings.Repeat("#", level))
	b.WriteByte(' ')
	b.WriteString(h.Text)
}

func (n Numbered) appendText(b *strings.Builder) {
	fmt.Fprintf(b, "%d. %s", n.N, n.Text)
}

func (bu Bullet) appendText(b *strings.Builder) {
	b.WriteString("- ")
	b.WriteString(bu.Text)
}

func (p Paragraph) appendText(b *strings.Builder) {
	b.WriteString(p.Text)
}

// Text serializes the document back to the constrained markdown
// grammar. Blocks are separated by a blank line except consecutive
// list items of the same kind, which stay adjacent.
func (d *Document) Text() string {
	if d.Empty() {
		return ""
	}

	var b strings.Builder
	for i, node := range d.Nodes {
		if i > 0 {
			if AdjacentListItems(d.Nodes[i-1], node) {
				b.WriteByte('\n')
			} else {
				b.WriteString("\n\n")
			}
		}
		node.appendText(&b)
	}

	return b.String()
}

// AdjacentListItems reports whether two consecutive nodes are list
// items of the same kind, which the grammar keeps on adjacent lines
// without a separating blank line. Renderers use the same rule to
// decide block spacing.
func AdjacentListItems(prev, next Node) bool {
	switch prev.(type) {
	case Numbered:
		_, ok := next.(Numbered)
		return ok
	case Bullet:
		_, ok := next.(Bullet)
		return ok
	default:
		return false
	}
}
