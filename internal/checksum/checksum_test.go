package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteHash(t *testing.T) {
	gen := NewGenerator()

	hash1 := gen.QuoteHash("Qdb.us", "<bob> hello")
	hash2 := gen.QuoteHash("Qdb.us", "<bob> hello")

	// Хеш детерминированный, 64 символа hex
	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64)

	assert.NotEqual(t, hash1, gen.QuoteHash("Qdb.us", "<bob> bye"))
	assert.NotEqual(t, hash1, gen.QuoteHash("bash.org", "<bob> hello"))
}
