package minutes

import "regexp"

// Locale bundles the language-specific heuristics the rule-based
// formatter runs on. Swapping the locale swaps the vocabulary without
// touching assembly logic.
type Locale struct {
	// DatePattern matches a spoken date ("15 мая") or a dotted one
	// ("15.05.2024"). The first match wins.
	DatePattern *regexp.Regexp
	// TopicPattern captures a discussion noun and the clause after it
	// in group 2. An optional preposition between them is consumed.
	TopicPattern *regexp.Regexp
	DefaultTopic string

	DateLayout      string
	TimestampLayout string

	TitlePrefix       string
	TopicPrefix       string
	AgendaHeading     string
	DiscussionHeading string
	DecisionsHeading  string
	FooterPrefix      string

	// Decisions is the boilerplate list attached when no model output
	// is available.
	Decisions []string

	MaxAgendaItems   int
	MinFragmentRunes int
}

var (
	russianDatePattern  = regexp.MustCompile(`\d{1,2}\s+\p{L}+|\d{1,2}\.\d{1,2}\.\d{2,4}`)
	russianTopicPattern = regexp.MustCompile(`(встреч[а-я]+|совещани[а-я]+|обсуждени[а-я]+)\s+(?:(?:по|о|об|с)\s+)?([^.\n]+)`)
)

// RussianLocale is the default vocabulary for Russian meeting speech.
func RussianLocale() Locale {
	return Locale{
		DatePattern:  russianDatePattern,
		TopicPattern: russianTopicPattern,
		DefaultTopic: "Обсуждение проекта",

		DateLayout:      "02.01.2006",
		TimestampLayout: "02.01.2006 15:04",

		TitlePrefix:       "Протокол встречи от ",
		TopicPrefix:       "Тема: ",
		AgendaHeading:     "Повестка совещания:",
		DiscussionHeading: "Содержание обсуждения:",
		DecisionsHeading:  "Решения и задачи:",
		FooterPrefix:      "Дата составления протокола: ",

		Decisions: []string{
			"Подготовить документацию по обсуждаемым вопросам",
			"Согласовать сроки выполнения задач",
			"Назначить ответственных за реализацию",
		},

		MaxAgendaItems:   5,
		MinFragmentRunes: 10,
	}
}
