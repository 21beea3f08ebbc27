package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRecognizesAllNodeKinds(t *testing.T) {
	t.Parallel()

	text := "# Протокол встречи от 15 мая\n\n" +
		"## Тема: бюджет\n\n" +
		"### Детали\n\n" +
		"- первый пункт\n" +
		"- второй пункт\n\n" +
		"1. Подготовить документацию\n" +
		"2. Согласовать сроки\n\n" +
		"Обычный абзац текста."

	doc := Parse(text)
	require.Equal(t, []Node{
		Heading{Level: 1, Text: "Протокол встречи от 15 мая"},
		Heading{Level: 2, Text: "Тема: бюджет"},
		Heading{Level: 3, Text: "Детали"},
		Bullet{Text: "первый пункт"},
		Bullet{Text: "второй пункт"},
		Numbered{N: 1, Text: "Подготовить документацию"},
		Numbered{N: 2, Text: "Согласовать сроки"},
		Paragraph{Text: "Обычный абзац текста."},
	}, doc.Nodes)
}

func TestParseMergesAdjacentPlainLinesIntoOneParagraph(t *testing.T) {
	t.Parallel()

	doc := Parse("первая строка\nвторая строка\n\nдругой абзац")
	require.Equal(t, []Node{
		Paragraph{Text: "первая строка вторая строка"},
		Paragraph{Text: "другой абзац"},
	}, doc.Nodes)
}

func TestParseKeepsNumberingFromText(t *testing.T) {
	t.Parallel()

	doc := Parse("7. седьмой пункт")
	require.Equal(t, []Node{Numbered{N: 7, Text: "седьмой пункт"}}, doc.Nodes)
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	doc := Parse("")
	require.True(t, doc.Empty())
	require.Equal(t, "", doc.Text())
}

func TestTextRoundTrip(t *testing.T) {
	t.Parallel()

	doc := &Document{}
	doc.Add(
		Heading{Level: 1, Text: "Протокол встречи от 03.02.2025"},
		Heading{Level: 2, Text: "Повестка совещания:"},
		Numbered{N: 1, Text: "Обсуждение бюджета"},
		Numbered{N: 2, Text: "Сроки поставки"},
		Paragraph{Text: "Полный текст обсуждения."},
	)

	text := doc.Text()
	require.Equal(t, "# Протокол встречи от 03.02.2025\n\n"+
		"## Повестка совещания:\n\n"+
		"1. Обсуждение бюджета\n"+
		"2. Сроки поставки\n\n"+
		"Полный текст обсуждения.", text)

	reparsed := Parse(text)
	require.Equal(t, doc.Nodes, reparsed.Nodes)
}

func TestParseToleratesMissingSpaceAfterHash(t *testing.T) {
	t.Parallel()

	doc := Parse("#Заголовок")
	require.Equal(t, []Node{Heading{Level: 1, Text: "Заголовок"}}, doc.Nodes)
}

func TestHeadingLevelClampedInTextForm(t *testing.T) {
	t.Parallel()

	doc := &Document{Nodes: []Node{Heading{Level: 9, Text: "x"}}}
	require.Equal(t, "### x", doc.Text())
}
