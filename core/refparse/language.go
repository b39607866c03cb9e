package refparse

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
)

var detectOptions = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Kor: true,
	},
}

// DetectLanguage classifies a transcript as Korean or English. The statistical
// identifier decides when it is sure; otherwise any Hangul means Korean.
func DetectLanguage(s string) Language {
	info := whatlanggo.DetectWithOptions(s, detectOptions)
	switch {
	case info.Lang == whatlanggo.Kor:
		return Korean
	case info.Lang == whatlanggo.Eng && info.IsReliable():
		return English
	}
	if hasHangul(s) {
		return Korean
	}
	return English
}

func hasHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
