package reader

import (
	"strings"
	"unicode/utf8"
)

// boilerplateLimit is the length under which a page may be dropped as
// front or back matter.
const boilerplateLimit = 100

var boilerplateKeywords = []string{
	"table of contents",
	"contents",
	"copyright",
	"all rights reserved",
	"published by",
	"isbn",
	"cover",
	"title page",
}

// keepChapter decides whether an extracted spine document counts as a
// chapter. Only short pages are checked for boilerplate keywords; a long
// page mentioning "copyright" is still narrative.
func keepChapter(text string) bool {
	if text == "" {
		return false
	}
	if utf8.RuneCountInString(text) < boilerplateLimit && isBoilerplate(text) {
		return false
	}
	return true
}

func isBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range boilerplateKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
