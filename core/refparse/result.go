package refparse

import (
	"github.com/FocuswithJustin/versefinder/core/canon"
)

// Language is the detected language of a transcript.
type Language string

const (
	Korean  Language = "ko"
	English Language = "en"
)

// Confidence rates how certain a match is.
type Confidence string

const (
	// High is an exact alias match (or a fuzzy match at distance 0).
	High Confidence = "high"
	// Medium is a prefix/containment match or a fuzzy match at distance 1.
	Medium Confidence = "medium"
	// Low is no confident match.
	Low Confidence = "low"
)

// ParsedReference is the outcome of parsing one transcript. It is a value:
// nothing in this package mutates a ParsedReference after returning it.
//
// Book, Chapter and Verse are nil when absent. Callers default an absent
// chapter or verse to 1 when navigating.
type ParsedReference struct {
	Book             *canon.Book  `json:"book,omitempty"`
	Chapter          *int         `json:"chapter,omitempty"`
	Verse            *int         `json:"verse,omitempty"`
	Language         Language     `json:"language"`
	RawTranscript    string       `json:"raw_transcript"`
	Confidence       Confidence   `json:"confidence"`
	AlternativeBooks []canon.Book `json:"alternative_books"`
}

// Found reports whether a book was resolved.
func (p ParsedReference) Found() bool {
	return p.Book != nil
}

// IsAmbiguous reports whether other books were also plausible.
func (p ParsedReference) IsAmbiguous() bool {
	return len(p.AlternativeBooks) > 0
}

// Ref returns the canonical reference, or nil when no book was resolved.
func (p ParsedReference) Ref() *canon.Ref {
	if p.Book == nil {
		return nil
	}
	ref := &canon.Ref{Book: p.Book.ID}
	if p.Chapter != nil {
		ref.Chapter = *p.Chapter
		if p.Verse != nil {
			ref.Verse = *p.Verse
		}
	}
	return ref
}

// String renders the reference for logs and the CLI, e.g. "John 3:16 (high)".
func (p ParsedReference) String() string {
	if p.Book == nil {
		return "no match (" + string(p.Confidence) + ")"
	}
	return p.Ref().Display(*p.Book) + " (" + string(p.Confidence) + ")"
}

// Equal reports whether two results carry the same values.
func (p ParsedReference) Equal(o ParsedReference) bool {
	if p.Language != o.Language || p.RawTranscript != o.RawTranscript || p.Confidence != o.Confidence {
		return false
	}
	if (p.Book == nil) != (o.Book == nil) || (p.Book != nil && *p.Book != *o.Book) {
		return false
	}
	if !equalInt(p.Chapter, o.Chapter) || !equalInt(p.Verse, o.Verse) {
		return false
	}
	if len(p.AlternativeBooks) != len(o.AlternativeBooks) {
		return false
	}
	for i := range p.AlternativeBooks {
		if p.AlternativeBooks[i] != o.AlternativeBooks[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no pointers or slices with p.
func (p ParsedReference) Clone() ParsedReference {
	c := p
	if p.Book != nil {
		b := *p.Book
		c.Book = &b
	}
	if p.Chapter != nil {
		c.Chapter = intPtr(*p.Chapter)
	}
	if p.Verse != nil {
		c.Verse = intPtr(*p.Verse)
	}
	c.AlternativeBooks = append(make([]canon.Book, 0, len(p.AlternativeBooks)), p.AlternativeBooks...)
	return c
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtr(n int) *int {
	return &n
}

// LogFields returns key/value pairs describing the result for structured logs.
func (p ParsedReference) LogFields() []any {
	args := []any{"language", string(p.Language), "confidence", string(p.Confidence)}
	if p.Book != nil {
		args = append(args, "ref", p.Ref().String())
	}
	if n := len(p.AlternativeBooks); n > 0 {
		args = append(args, "alternatives", n)
	}
	return args
}
