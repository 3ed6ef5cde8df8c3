package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"qdb-quote-parser/internal/config"
)

var blankLines = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)

type Normalizer struct {
	cfg config.NormalizeConfig
}

func NewNormalizer(cfg config.NormalizeConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Clean готовит цитату к сохранению, исходный срез не меняется.
// Возвращает false, если цитата пустая и skip_empty включён.
func (n *Normalizer) Clean(quote string) (string, bool) {
	text := strings.ReplaceAll(quote, "\r\n", "\n")

	if n.cfg.TrimNBSP {
		// NBSP (\u00A0) → обычный пробел
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}

	if n.cfg.CollapseBlank {
		// Строки переносов в цитате значимы, схлопываем только пустые
		text = blankLines.ReplaceAllString(text, "\n")
	}

	if n.cfg.TrimSpace {
		text = strings.TrimSpace(text)
	}

	if n.cfg.SkipEmpty && strings.TrimSpace(text) == "" {
		return "", false
	}

	return text, true
}

// CleanAll применяет Clean ко всем цитатам с сохранением порядка
func (n *Normalizer) CleanAll(quotes []string) []string {
	out := make([]string, 0, len(quotes))
	for _, q := range quotes {
		if cleaned, ok := n.Clean(q); ok {
			out = append(out, cleaned)
		}
	}
	return out
}

// TruncatePreview обрезает текст до max_preview_chars символов, 0 отключает
func (n *Normalizer) TruncatePreview(text string) string {
	limit := n.cfg.MaxPreviewChars
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	truncated := string(runes[:limit-1])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "…"
}
