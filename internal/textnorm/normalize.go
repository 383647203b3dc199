// Package textnorm canonicalizes Arabic letter-form variants so that lexical
// search and reranking compare one spelling of each word.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	tehMarbuta     = 'ة'
	heh            = 'ه'
	yeh            = 'ي'
	alefMaksura    = 'ى'
	alef           = 'ا'
	alefHamzaAbove = 'أ'
	alefHamzaBelow = 'إ'
)

// Normalize folds teh marbuta to heh, a word-final yeh to alef maksura and
// hamza-bearing alefs to a plain alef. Other runes pass through unchanged.
// Normalize never fails and Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if !strings.ContainsAny(text, "ةيأإ") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		switch r {
		case tehMarbuta:
			r = heh
		case alefHamzaAbove, alefHamzaBelow:
			r = alef
		case yeh:
			if atWordEnd(text[i+utf8.RuneLen(r):]) {
				r = alefMaksura
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// atWordEnd reports whether rest starts outside a word.
func atWordEnd(rest string) bool {
	if rest == "" {
		return true
	}
	next, _ := utf8.DecodeRuneInString(rest)
	return !inWord(next)
}

// inWord matches regexp word characters: letters, numbers and underscore.
// Combining marks end a word.
func inWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}
