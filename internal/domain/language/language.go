// Package language selects which language-specific catalog fields and which
// backing index a query is served from.
package language

import (
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/souq/internal/domain"
)

// Language identifies one side of the bilingual catalog.
type Language string

const (
	// Arabic is the right-to-left catalog language.
	Arabic Language = "ar"
	// English is the default, left-to-right catalog language.
	English Language = "en"
)

// All lists the catalog languages in index order.
var All = []Language{Arabic, English}

// IsValid reports whether l is a supported catalog language.
func (l Language) IsValid() bool {
	return l == Arabic || l == English
}

// Other returns the opposite catalog language.
func (l Language) Other() Language {
	if l == Arabic {
		return English
	}
	return Arabic
}

// IndexName returns the language-specific index (collection) name under prefix.
func (l Language) IndexName(prefix string) string {
	return fmt.Sprintf("%sitems_%s:idx", prefix, l)
}

// Classification is the outcome of classifying a query.
type Classification struct {
	Primary   Language
	Secondary Language
}

// Script ranges checked by the classifier: Arabic, Arabic Supplement, Arabic Extended-A.
var arabicRanges = [...][2]rune{
	{0x0600, 0x06FF},
	{0x0750, 0x077F},
	{0x08A0, 0x08FF},
}

// Classify applies FirstRunePolicy to text.
func Classify(text string) (Classification, error) {
	return FirstRunePolicy(text)
}

// FirstRunePolicy decides the language from the first rune of text alone.
// Any rune in the Arabic blocks selects Arabic, everything else English.
//
// Known limitation: a mixed-script query is classified by whichever script
// it starts with ("iPhone شاحن" is English). Field selection downstream
// depends on this exact rule.
func FirstRunePolicy(text string) (Classification, error) {
	if text == "" {
		return Classification{}, domain.ErrEmptyText
	}
	r, _ := utf8.DecodeRuneInString(text)
	if isArabic(r) {
		return Classification{Primary: Arabic, Secondary: English}, nil
	}
	return Classification{Primary: English, Secondary: Arabic}, nil
}

func isArabic(r rune) bool {
	for _, rg := range arabicRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}
