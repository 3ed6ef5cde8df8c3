package scraper

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// Scan токенизирует разметку и вызывает обработчик для каждого тега и текста.
// Некорректная разметка обрабатывается самим токенизатором, ошибкой считается только ошибка чтения.
func Scan(r io.Reader, h Handler) error {
	z := html.NewTokenizer(r)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to scan markup: %w", err)
			}
			return nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			var attrs []html.Attribute
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs = append(attrs, html.Attribute{Key: string(key), Val: string(val)})
			}
			h.OnStartTag(string(name), attrs)

		case html.EndTagToken:
			name, _ := z.TagName()
			h.OnEndTag(string(name))

		case html.TextToken:
			h.OnText(string(z.Text()))
		}
		// CommentToken и DoctypeToken игнорируем
	}
}
