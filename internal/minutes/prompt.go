package minutes

import (
	"fmt"
	"os"
	"strings"
)

// transcriptPlaceholder marks where the transcription is substituted
// into a prompt template.
const transcriptPlaceholder = "{{TRANSCRIPT}}"

const defaultPromptTemplate = `Ты профессиональный секретарь, который создает структурированные протоколы встреч.

Преобразуй следующую расшифровку голосового сообщения в формальный протокол встречи.

Структура протокола должна включать:
1. Заголовок с датой и темой встречи
2. Список участников (если упоминаются)
3. Повестку встречи в виде списка вопросов
4. Основное содержание обсуждения
5. Принятые решения и ответственных лиц
6. Сроки выполнения (если упоминаются)

Оформи протокол в markdown: заголовок первого уровня через "# ", разделы через "## ",
пункты списков через "- " или "1.", абзацы разделяй пустой строкой.

Расшифровка голосового сообщения:
` + transcriptPlaceholder + `

Создай хорошо структурированный, профессиональный протокол на основе этой информации.`

// Prompt is an immutable template with a single substitution slot.
type Prompt struct {
	template string
}

func DefaultPrompt() Prompt {
	return Prompt{template: defaultPromptTemplate}
}

// LoadPrompt reads a template from disk. The file must contain the
// placeholder, otherwise every rendered prompt would silently drop the
// transcription.
func LoadPrompt(path string) (Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompt{}, fmt.Errorf("read prompt template: %w", err)
	}
	template := string(data)
	if !strings.Contains(template, transcriptPlaceholder) {
		return Prompt{}, fmt.Errorf("prompt template %s does not contain %s", path, transcriptPlaceholder)
	}
	return Prompt{template: template}, nil
}

func (p Prompt) Render(transcription string) string {
	return strings.ReplaceAll(p.template, transcriptPlaceholder, transcription)
}
