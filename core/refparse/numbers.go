package refparse

import (
	"regexp"
	"strconv"
	"strings"
)

type numberKind int

const (
	kindNone numberKind = iota
	kindUnit            // 1-9
	kindTeen            // 10-19
	kindTens            // 20, 30, ... 90
	kindHundred
)

type englishNumber struct {
	value   int
	kind    numberKind
	ordinal bool
}

var englishNumbers = map[string]englishNumber{
	"zero": {0, kindUnit, false}, "one": {1, kindUnit, false}, "two": {2, kindUnit, false},
	"three": {3, kindUnit, false}, "four": {4, kindUnit, false}, "five": {5, kindUnit, false},
	"six": {6, kindUnit, false}, "seven": {7, kindUnit, false}, "eight": {8, kindUnit, false},
	"nine": {9, kindUnit, false}, "ten": {10, kindTeen, false}, "eleven": {11, kindTeen, false},
	"twelve": {12, kindTeen, false}, "thirteen": {13, kindTeen, false}, "fourteen": {14, kindTeen, false},
	"fifteen": {15, kindTeen, false}, "sixteen": {16, kindTeen, false}, "seventeen": {17, kindTeen, false},
	"eighteen": {18, kindTeen, false}, "nineteen": {19, kindTeen, false},
	"twenty": {20, kindTens, false}, "thirty": {30, kindTens, false}, "forty": {40, kindTens, false},
	"fifty": {50, kindTens, false}, "sixty": {60, kindTens, false}, "seventy": {70, kindTens, false},
	"eighty": {80, kindTens, false}, "ninety": {90, kindTens, false},
	"hundred": {100, kindHundred, false},

	"first": {1, kindUnit, true}, "second": {2, kindUnit, true}, "third": {3, kindUnit, true},
	"fourth": {4, kindUnit, true}, "fifth": {5, kindUnit, true}, "sixth": {6, kindUnit, true},
	"seventh": {7, kindUnit, true}, "eighth": {8, kindUnit, true}, "ninth": {9, kindUnit, true},
	"tenth": {10, kindTeen, true}, "eleventh": {11, kindTeen, true}, "twelfth": {12, kindTeen, true},
	"thirteenth": {13, kindTeen, true}, "fourteenth": {14, kindTeen, true}, "fifteenth": {15, kindTeen, true},
	"sixteenth": {16, kindTeen, true}, "seventeenth": {17, kindTeen, true}, "eighteenth": {18, kindTeen, true},
	"nineteenth": {19, kindTeen, true}, "twentieth": {20, kindTens, true}, "thirtieth": {30, kindTens, true},
	"fortieth": {40, kindTens, true}, "fiftieth": {50, kindTens, true},
}

var ordinalSuffix = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)$`)

// englishNumberWords rewrites spelled-out English numbers as digits:
// "john three sixteen" -> "john 3 16", "psalm one hundred nineteen" -> "psalm 119",
// "first john" -> "1 john".
func englishNumberWords(s string) string {
	tokens := strings.Fields(s)
	out := make([]string, 0, len(tokens))

	var (
		value   int
		last    = kindNone
		pending bool
	)
	flush := func() {
		if pending {
			out = append(out, strconv.Itoa(value))
		}
		value, last, pending = 0, kindNone, false
	}

	for i, tok := range tokens {
		if m := ordinalSuffix.FindStringSubmatch(tok); m != nil {
			flush()
			out = append(out, m[1])
			continue
		}

		n, ok := englishNumbers[tok]
		if !ok {
			// "one hundred and five"
			if tok == "and" && pending && last == kindHundred && i+1 < len(tokens) {
				if _, next := englishNumbers[tokens[i+1]]; next {
					continue
				}
			}
			flush()
			out = append(out, tok)
			continue
		}

		if !continues(last, n.kind) {
			flush()
		}
		if n.kind == kindHundred {
			if value == 0 {
				value = 1
			}
			value *= 100
		} else {
			value += n.value
		}
		last, pending = n.kind, true
		if n.ordinal {
			flush()
		}
	}
	flush()
	return strings.Join(out, " ")
}

// continues reports whether a number word of kind next extends the number
// built so far ("twenty" + "one") rather than starting a new one ("three" "sixteen").
func continues(last, next numberKind) bool {
	switch last {
	case kindNone:
		return true
	case kindUnit:
		return next == kindHundred
	case kindTens:
		return next == kindUnit
	case kindHundred:
		return next != kindHundred
	}
	return false
}

var (
	sinoDigits = map[rune]int{
		'일': 1, '이': 2, '삼': 3, '사': 4, '오': 5, '육': 6, '륙': 6, '칠': 7, '팔': 8, '구': 9,
	}
	sinoUnits = map[rune]int{'십': 10, '백': 100}

	nativeTens = []struct {
		word  string
		value int
	}{
		{"스물", 20}, {"스무", 20}, {"서른", 30}, {"마흔", 40}, {"쉰", 50},
		{"예순", 60}, {"일흔", 70}, {"여든", 80}, {"아흔", 90}, {"열", 10},
	}
	nativeUnits = map[string]int{
		"하나": 1, "한": 1, "첫": 1, "둘": 2, "두": 2, "셋": 3, "세": 3, "석": 3,
		"넷": 4, "네": 4, "넉": 4, "다섯": 5, "여섯": 6, "일곱": 7, "여덟": 8, "아홉": 9,
	}

	// Suffixes that may trail a Korean number inside one token.
	koreanNumberSuffixes = []string{"번째", "째", "장", "절", "편"}
)

// sinoKorean parses Sino-Korean numerals such as "삼", "십육", "백오십".
func sinoKorean(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total, current := 0, 0
	for _, r := range s {
		if d, ok := sinoDigits[r]; ok {
			if current != 0 {
				return 0, false
			}
			current = d
			continue
		}
		if u, ok := sinoUnits[r]; ok {
			if current == 0 {
				current = 1
			}
			total += current * u
			current = 0
			continue
		}
		return 0, false
	}
	return total + current, true
}

// nativeKorean parses native counting words such as "다섯", "열다섯", "스물한".
func nativeKorean(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	for _, t := range nativeTens {
		if strings.HasPrefix(s, t.word) {
			total = t.value
			s = strings.TrimPrefix(s, t.word)
			break
		}
	}
	if s == "" {
		return total, total > 0
	}
	u, ok := nativeUnits[s]
	if !ok {
		return 0, false
	}
	return total + u, true
}

// koreanNumber parses one Korean number word, Sino-Korean or native.
func koreanNumber(s string) (int, bool) {
	if n, ok := sinoKorean(s); ok {
		return n, true
	}
	return nativeKorean(s)
}

// koreanNumberWords rewrites Korean number tokens as digits, keeping any
// chapter/verse suffix: "요한복음 삼장 십육절" -> "요한복음 3장 16절".
// Tokens that are book aliases are left alone so "사" stays Isaiah.
func koreanNumberWords(s string, isAlias func(string) bool) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if !hasHangul(tok) || isAlias(tok) {
			continue
		}
		stem, suffix := tok, ""
		for _, sfx := range koreanNumberSuffixes {
			if strings.HasSuffix(stem, sfx) && len(stem) > len(sfx) {
				stem, suffix = strings.TrimSuffix(stem, sfx), sfx
				break
			}
		}
		if suffix == "번째" || suffix == "째" {
			suffix = ""
		}
		if n, ok := koreanNumber(stem); ok {
			tokens[i] = strconv.Itoa(n) + suffix
		}
	}
	return strings.Join(tokens, " ")
}
