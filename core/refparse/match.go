package refparse

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/FocuswithJustin/versefinder/core/canon"
)

// MatchStage records which step of book matching produced a result.
type MatchStage string

const (
	StageExact  MatchStage = "exact"
	StagePrefix MatchStage = "prefix"
	StageFuzzy  MatchStage = "fuzzy"
	StageNone   MatchStage = "none"
)

// maxFuzzyAlternatives caps the alternatives offered by a fuzzy match.
const maxFuzzyAlternatives = 5

// BookMatch is the result of resolving a candidate string to a book.
type BookMatch struct {
	Book         *canon.Book
	Alternatives []canon.Book
	Confidence   Confidence
	Stage        MatchStage

	// Alias is the alias that matched the primary book.
	Alias string

	// Distance is the edit distance of the primary alias; 0 for exact and
	// prefix matches.
	Distance int

	// scored holds every fuzzy candidate kept, primary first, for inspection.
	scored []scoredBook
}

type scoredBook struct {
	book     canon.Book
	alias    string
	distance int
}

func noMatch() BookMatch {
	return BookMatch{Confidence: Low, Stage: StageNone}
}

// MatchBook resolves a candidate book name through exact, prefix/containment
// and fuzzy matching, in that order.
func (p *Parser) MatchBook(candidate string) BookMatch {
	c := normalizeAlias(candidate)
	if utf8.RuneCountInString(c) < 1 {
		return noMatch()
	}

	if m, ok := p.matchExact(c); ok {
		return m
	}
	if m, ok := p.matchPrefix(c); ok {
		return m
	}
	if m, ok := p.matchFuzzy(c); ok {
		return m
	}
	return noMatch()
}

func (p *Parser) matchExact(c string) (BookMatch, bool) {
	for _, key := range []string{c, strings.ReplaceAll(c, " ", "")} {
		if id, ok := p.aliases.lookup(key); ok {
			b, _ := p.catalog.ByID(id)
			return BookMatch{
				Book:       &b,
				Confidence: High,
				Stage:      StageExact,
				Alias:      key,
			}, true
		}
	}
	return BookMatch{}, false
}

// minFragment is the shortest alias allowed to match as a prefix or substring
// of a longer string. Single Hangul syllables and two-letter Latin
// abbreviations are too common inside other words.
func minFragment(s string) int {
	if hasHangul(s) {
		return 2
	}
	return 3
}

func fragmentOK(s string) bool {
	return utf8.RuneCountInString(s) >= minFragment(s)
}

func (p *Parser) matchPrefix(c string) (BookMatch, bool) {
	seen := make(map[string]string)
	for _, a := range p.aliases.sorted {
		hit := strings.HasPrefix(a, c) ||
			(fragmentOK(a) && strings.HasPrefix(c, a)) ||
			(fragmentOK(c) && strings.Contains(a, c)) ||
			(fragmentOK(a) && strings.Contains(c, a))
		if !hit {
			continue
		}
		id, _ := p.aliases.lookup(a)
		if _, dup := seen[id]; !dup {
			seen[id] = a
		}
	}
	if len(seen) == 0 {
		return BookMatch{}, false
	}

	books := make([]canon.Book, 0, len(seen))
	for id := range seen {
		b, _ := p.catalog.ByID(id)
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Order < books[j].Order })

	primary := books[0]
	return BookMatch{
		Book:         &primary,
		Alternatives: books[1:],
		Confidence:   Medium,
		Stage:        StagePrefix,
		Alias:        seen[primary.ID],
	}, true
}

func (p *Parser) matchFuzzy(c string) (BookMatch, bool) {
	threshold := max(2, utf8.RuneCountInString(c)/2)
	korean := hasHangul(c)

	best := make(map[string]scoredBook)
	for _, a := range p.aliases.sorted {
		if hasHangul(a) != korean {
			continue
		}
		d := matchr.Levenshtein(c, a)
		if d > threshold {
			continue
		}
		id, _ := p.aliases.lookup(a)
		if cur, ok := best[id]; ok && cur.distance <= d {
			continue
		}
		b, _ := p.catalog.ByID(id)
		best[id] = scoredBook{book: b, alias: a, distance: d}
	}
	if len(best) == 0 {
		return BookMatch{}, false
	}

	scored := make([]scoredBook, 0, len(best))
	for _, s := range best {
		scored = append(scored, s)
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].distance != scored[j].distance {
			return scored[i].distance < scored[j].distance
		}
		return scored[i].book.Order < scored[j].book.Order
	})

	primary := scored[0]
	kept := []scoredBook{primary}
	alternatives := make([]canon.Book, 0, maxFuzzyAlternatives)
	for _, s := range scored[1:] {
		if s.distance > primary.distance+1 || len(alternatives) == maxFuzzyAlternatives {
			break
		}
		alternatives = append(alternatives, s.book)
		kept = append(kept, s)
	}

	conf := Low
	switch {
	case primary.distance == 0:
		conf = High
	case primary.distance <= 1:
		conf = Medium
	}

	b := primary.book
	return BookMatch{
		Book:         &b,
		Alternatives: alternatives,
		Confidence:   conf,
		Stage:        StageFuzzy,
		Alias:        primary.alias,
		Distance:     primary.distance,
		scored:       kept,
	}, true
}
