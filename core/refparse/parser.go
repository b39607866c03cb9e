// Package refparse resolves free-form scripture references, typically
// speech-to-text transcripts in Korean or English, to a book, chapter and
// verse.
//
// Parsing never fails. A transcript that cannot be resolved yields a
// ParsedReference with no book and Low confidence; an ambiguous one carries
// the other plausible books in AlternativeBooks. A Parser is immutable after
// New returns and may be used from any number of goroutines.
package refparse

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/FocuswithJustin/versefinder/core/canon"
)

// Parser resolves transcripts against a catalog and its alias table.
type Parser struct {
	catalog *canon.Catalog
	aliases *aliasTable
}

type options struct {
	extraAliases map[string]string
}

// Option configures a Parser at construction.
type Option func(*options)

// WithAliases adds aliases (alias -> book id) on top of the built-in table.
// Aliases pointing at unknown books are ignored, and built-in aliases are
// never replaced.
func WithAliases(aliases map[string]string) Option {
	return func(o *options) {
		if o.extraAliases == nil {
			o.extraAliases = make(map[string]string, len(aliases))
		}
		for a, id := range aliases {
			o.extraAliases[a] = id
		}
	}
}

// New builds a parser for the given catalog.
func New(c *canon.Catalog, opts ...Option) *Parser {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Parser{
		catalog: c,
		aliases: buildAliases(c, o.extraAliases),
	}
}

var (
	defaultOnce   sync.Once
	defaultParser *Parser
)

// Default returns a process-wide parser over canon.Default().
func Default() *Parser {
	defaultOnce.Do(func() {
		defaultParser = New(canon.Default())
	})
	return defaultParser
}

// Parse resolves a transcript with the default parser.
func Parse(transcript string) ParsedReference {
	return Default().Parse(transcript)
}

// Catalog returns the catalog the parser resolves against.
func (p *Parser) Catalog() *canon.Catalog {
	return p.catalog
}

// Aliases returns a copy of the alias table.
func (p *Parser) Aliases() map[string]string {
	out := make(map[string]string, len(p.aliases.byAlias))
	for a, id := range p.aliases.byAlias {
		out[a] = id
	}
	return out
}

// Parse resolves one transcript. Strategies run in order and the first to
// produce a valid reference wins: templates, numbers anywhere in the text,
// then the whole text as a book name.
func (p *Parser) Parse(transcript string) ParsedReference {
	lang := DetectLanguage(transcript)
	empty := ParsedReference{
		Language:         lang,
		RawTranscript:    transcript,
		Confidence:       Low,
		AlternativeBooks: []canon.Book{},
	}

	text := normalize(transcript, lang)
	if text == "" {
		return empty
	}

	if r, ok := p.parseTemplates(text, lang, empty); ok {
		return r
	}

	candidate, numbers := p.splitNumbers(text)
	if len(numbers) > 0 {
		if r, ok := p.parseNumbers(candidate, numbers, empty); ok {
			return r
		}
		return empty
	}

	m := p.MatchBook(candidate)
	if m.Book == nil {
		return empty
	}
	return withMatch(empty, m)
}

func (p *Parser) parseTemplates(text string, lang Language, base ParsedReference) (ParsedReference, bool) {
	for _, t := range templatesFor(lang) {
		tm, ok := t.match(text)
		if !ok {
			continue
		}
		m := p.MatchBook(strings.TrimSpace(tm.book))
		if m.Book == nil || !m.Book.ValidChapter(tm.chapter) {
			continue
		}
		if t.re.SubexpIndex("verse") >= 0 && tm.verse < 1 {
			continue
		}

		r := withMatch(base, m)
		r.Chapter = intPtr(tm.chapter)
		if tm.verse > 0 {
			r.Verse = intPtr(tm.verse)
		}
		return r, true
	}
	return ParsedReference{}, false
}

func (p *Parser) parseNumbers(candidate string, numbers []int, base ParsedReference) (ParsedReference, bool) {
	m := p.MatchBook(candidate)
	if m.Book == nil || !m.Book.ValidChapter(numbers[0]) {
		return ParsedReference{}, false
	}
	r := withMatch(base, m)
	r.Chapter = intPtr(numbers[0])
	if len(numbers) > 1 && numbers[1] > 0 {
		r.Verse = intPtr(numbers[1])
	}
	return r, true
}

func withMatch(base ParsedReference, m BookMatch) ParsedReference {
	r := base
	b := *m.Book
	r.Book = &b
	r.Confidence = m.Confidence
	r.AlternativeBooks = append([]canon.Book{}, m.Alternatives...)
	return r
}

// markerWords introduce a chapter or verse number and are not part of a book name.
var markerWords = map[string]bool{
	"chapter": true, "chap": true, "ch": true,
	"verse": true, "verses": true, "vs": true, "v": true,
	"장": true, "절": true, "편": true,
}

// splitNumbers converts number words to digits and separates the integers from
// the words that remain. A leading 1, 2 or 3 directly followed by a word is a
// book number ("1 john"), not a chapter.
func (p *Parser) splitNumbers(text string) (string, []int) {
	converted := koreanNumberWords(text, p.isAlias)
	converted = englishNumberWords(converted)
	tokens := strings.Fields(separateDigits(converted))

	var (
		words   []string
		numbers []int
	)
	start := 0
	if len(tokens) > 1 && isBookNumber(tokens[0]) && !isNumeric(tokens[1]) && !markerWords[tokens[1]] {
		words = append(words, tokens[0])
		start = 1
	}
	for _, tok := range tokens[start:] {
		switch {
		case isNumeric(tok):
			n, err := strconv.Atoi(tok)
			if err != nil {
				// Too large for an int; still a number, and never a chapter.
				n = math.MaxInt
			}
			numbers = append(numbers, n)
		case markerWords[tok]:
		default:
			words = append(words, tok)
		}
	}
	return strings.Join(words, " "), numbers
}

func (p *Parser) isAlias(s string) bool {
	_, ok := p.aliases.lookup(s)
	return ok
}

// separateDigits puts spaces between runs of digits and letters and turns
// colons into spaces: "요한복음3장16절" -> "요한복음 3 장 16 절".
func separateDigits(s string) string {
	var sb strings.Builder
	prevDigit, first := false, true
	for _, r := range s {
		if r == ':' {
			sb.WriteRune(' ')
			first = true
			continue
		}
		if unicode.IsSpace(r) {
			sb.WriteRune(r)
			first = true
			continue
		}
		isDigit := r >= '0' && r <= '9'
		if !first && isDigit != prevDigit {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
		prevDigit, first = isDigit, false
	}
	return sb.String()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isBookNumber(s string) bool {
	return s == "1" || s == "2" || s == "3"
}
