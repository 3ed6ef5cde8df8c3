package scraper

import "golang.org/x/net/html"

const (
	SourceName = "Qdb.us"
	SourceURL  = "http://www.qdb.us/random"

	// <span class="qt">...</span>
	targetTag   = "span"
	targetClass = "qt"
)

// Handler получает события сканера разметки в порядке документа
type Handler interface {
	OnStartTag(name string, attrs []html.Attribute)
	OnEndTag(name string)
	OnText(text string)
}
