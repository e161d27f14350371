package questions

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeText canonicalizes question text for deduplication: case-folded
// with whitespace and punctuation stripped, so spacing and trivial formatting
// differences never produce distinct cache entries. Letters and digits of any
// script are kept, so non-Latin questions hash stably.
func NormalizeText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContentHash is the dedup key for a question: sha256 over the normalized
// text, hex-encoded. Two texts that normalize identically always collide.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}
