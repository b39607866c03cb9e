package refparse

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// englishFillers are removed on word boundaries, longest first.
var englishFillers = []string{
	"show me", "go to", "please", "can you", "could you", "would you",
	"i want to read", "i want to", "i would like to", "id like to",
	"lets read", "lets go to", "let me see", "take me to", "turn to",
	"open up", "open", "read me", "read", "find me", "find", "look up",
	"search for", "search", "navigate to", "jump to", "bring up",
	"the gospel according to", "the gospel of", "gospel of",
	"the book of", "book of", "in the bible", "bible", "scripture", "passage",
	"hey", "okay", "ok", "um", "uh", "uhm", "hmm",
}

// koreanFillers are whole tokens dropped from Korean transcripts.
var koreanFillers = map[string]bool{
	"성경": true, "말씀": true, "찾아줘": true, "찾아": true, "줘": true, "주세요": true,
	"보여줘": true, "보여": true, "열어줘": true, "읽어줘": true, "읽어": true,
	"펼쳐줘": true, "펼쳐": true, "가줘": true, "가자": true, "좀": true,
	"해줘": true, "틀어줘": true, "검색": true, "검색해줘": true, "이동": true,
	"구절": true, "부분": true, "어디": true, "거기": true, "음": true, "어": true,
}

// koreanParticles are stripped from the end of Korean tokens.
var koreanParticles = []string{"으로", "에서", "까지", "부터", "을", "를", "의", "로", "에"}

var (
	englishFillerRe = buildFillerRegexp(englishFillers)

	// "john.3.16" and "john 3.16" become "john 3:16".
	dottedRef   = regexp.MustCompile(`(\pL)\.(\d)`)
	dottedVerse = regexp.MustCompile(`(\d)\.(\d)`)
	spacedColon = regexp.MustCompile(`\s*:\s*`)
)

func buildFillerRegexp(fillers []string) *regexp.Regexp {
	sorted := append([]string(nil), fillers...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, f := range sorted {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// normalize prepares a transcript for matching: NFC, lower case, canonical
// separators, punctuation removed, fillers dropped, whitespace collapsed.
func normalize(s string, lang Language) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = strings.NewReplacer("'", "", "’", "", "：", ":", "·", " ").Replace(s)

	s = dottedRef.ReplaceAllString(s, "$1 $2")
	s = dottedVerse.ReplaceAllString(s, "$1:$2")

	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ':':
			return r
		default:
			return ' '
		}
	}, s)
	s = spacedColon.ReplaceAllString(s, ":")

	switch lang {
	case English:
		s = englishFillerRe.ReplaceAllString(s, " ")
	case Korean:
		s = stripKoreanFillers(s)
	}

	return strings.Join(strings.Fields(s), " ")
}

func stripKoreanFillers(s string) string {
	tokens := strings.Fields(s)
	out := tokens[:0]
	for _, tok := range tokens {
		if koreanFillers[tok] {
			continue
		}
		if hasHangul(tok) {
			tok = stripParticle(tok)
		}
		if tok != "" && !koreanFillers[tok] {
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}

func stripParticle(tok string) string {
	for _, p := range koreanParticles {
		if strings.HasSuffix(tok, p) && len(tok) > len(p) {
			return strings.TrimSuffix(tok, p)
		}
	}
	return tok
}
