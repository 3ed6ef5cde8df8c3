package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CountTargets считает целевые элементы через DOM-парсер.
// Расхождение с len(Quotes) означает вложенные или лишние </span> на странице.
func CountTargets(page string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc.Find(fmt.Sprintf("%s[class=%q]", targetTag, targetClass)).Length(), nil
}
