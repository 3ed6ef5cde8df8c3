package checksum

import (
	"crypto/sha256"
	"fmt"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// QuoteHash генерирует SHA256 цитаты
// Формула: SHA256(source|text)
func (g *Generator) QuoteHash(source, text string) string {
	content := fmt.Sprintf("%s|%s", source, text)
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
