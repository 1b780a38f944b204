package helpers

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// FormatPrice renders a numeric price for display in bot messages, with a
// locale-aware decimal separator.
func FormatPrice(price float64, escapeMarkdown bool) string {
	p := message.NewPrinter(language.Russian)
	formatted := p.Sprintf("%.2f", price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}
