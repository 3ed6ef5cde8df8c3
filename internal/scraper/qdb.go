package scraper

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// QdbParser собирает цитаты из <span class="qt"> на странице Qdb.us.
// Экземпляр не потокобезопасен: один парсер на одно сканирование.
type QdbParser struct {
	Name   string
	URL    string
	Quotes []string

	insideSpan bool
	opened     bool // был ли хоть один целевой span после Reset
	otherDepth int  // открытые span без class="qt"
	current    strings.Builder
}

var _ Handler = (*QdbParser)(nil)

func NewQdbParser() *QdbParser {
	p := &QdbParser{}
	p.Reset()
	return p
}

// Reset возвращает состояние к начальному, вызывать перед каждым сканированием
func (p *QdbParser) Reset() {
	p.Name = SourceName
	p.URL = SourceURL
	p.Quotes = []string{}
	p.insideSpan = false
	p.opened = false
	p.otherDepth = 0
	p.current.Reset()
}

func (p *QdbParser) OnStartTag(name string, attrs []html.Attribute) {
	if name != targetTag {
		return
	}
	for _, attr := range attrs {
		if attr.Key == "class" && attr.Val == targetClass {
			p.insideSpan = true
			p.opened = true
			return
		}
	}
	p.otherDepth++
}

// OnEndTag сбрасывает накопленный текст на </span>, вложенные целевые span не считаются.
// </span> обычного span пропускается, лишний </span> после цитаты добавляет пустую строку.
func (p *QdbParser) OnEndTag(name string) {
	if name != targetTag {
		return
	}
	if p.otherDepth > 0 {
		p.otherDepth--
		return
	}
	if !p.opened {
		return
	}
	p.insideSpan = false
	p.Quotes = append(p.Quotes, p.current.String())
	p.current.Reset()
}

func (p *QdbParser) OnText(text string) {
	if p.insideSpan {
		p.current.WriteString(text)
	}
}

// Parse прогоняет страницу через сканер. Reset не вызывается,
// результаты повторного Parse добавляются к уже собранным.
func (p *QdbParser) Parse(page string) error {
	return p.ParseReader(strings.NewReader(page))
}

func (p *QdbParser) ParseReader(r io.Reader) error {
	return Scan(r, p)
}
