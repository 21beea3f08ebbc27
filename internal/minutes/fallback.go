package minutes

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/protokollabs/protokol/internal/document"
)

// Fallback is the deterministic rule-based formatter. Build is total:
// it produces a valid document for any input, including the empty
// string, so callers can rely on it when the generative service is
// down.
type Fallback struct {
	Locale Locale
	Now    func() time.Time
}

func NewFallback(loc Locale) Fallback {
	return Fallback{Locale: loc, Now: time.Now}
}

// Build assembles meeting minutes from the transcription alone:
// heuristic date and topic extraction, the first few long sentences as
// the agenda, the full transcription as the discussion body, and a
// boilerplate decisions list.
func (f Fallback) Build(transcription string) *document.Document {
	loc := f.Locale
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}

	date := loc.DatePattern.FindString(transcription)
	if date == "" {
		date = now.Format(loc.DateLayout)
	}

	topic := loc.DefaultTopic
	if m := loc.TopicPattern.FindStringSubmatch(transcription); m != nil {
		topic = strings.TrimSpace(m[2])
	}

	doc := &document.Document{}
	doc.Add(document.Heading{Level: 1, Text: loc.TitlePrefix + date})
	doc.Add(document.Heading{Level: 2, Text: loc.TopicPrefix + topic})

	doc.Add(document.Heading{Level: 2, Text: loc.AgendaHeading})
	for i, item := range f.agenda(transcription) {
		doc.Add(document.Numbered{N: i + 1, Text: item + "."})
	}

	doc.Add(document.Heading{Level: 2, Text: loc.DiscussionHeading})
	if body := strings.TrimSpace(transcription); body != "" {
		doc.Add(document.Paragraph{Text: body})
	}

	doc.Add(document.Heading{Level: 2, Text: loc.DecisionsHeading})
	for i, decision := range loc.Decisions {
		doc.Add(document.Numbered{N: i + 1, Text: decision})
	}

	doc.Add(document.Paragraph{Text: loc.FooterPrefix + now.Format(loc.TimestampLayout)})
	return doc
}

// agenda keeps, in input order, the first MaxAgendaItems sentence
// fragments longer than MinFragmentRunes runes.
func (f Fallback) agenda(transcription string) []string {
	var items []string
	for _, fragment := range strings.Split(transcription, ".") {
		fragment = strings.TrimSpace(fragment)
		if utf8.RuneCountInString(fragment) <= f.Locale.MinFragmentRunes {
			continue
		}
		items = append(items, fragment)
		if len(items) == f.Locale.MaxAgendaItems {
			break
		}
	}
	return items
}
