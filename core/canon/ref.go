package canon

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// Ref is a canonical reference string decoded into its parts.
// Chapter and Verse are 0 when absent.
type Ref struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter,omitempty"`
	Verse   int    `json:"verse,omitempty"`
}

// refGrammar accepts "john", "john.3", "john.3.16", "1samuel.17.4".
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	BookPrefix string       `parser:"@Int?"`
	BookName   string       `parser:"@Ident"`
	ChapterRef *chapterPart `parser:"( \".\" @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter int  `parser:"@Int"`
	Verse   *int `parser:"( \".\" @Int )?"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-z]+`},
	{Name: "Punct", Pattern: `[.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef decodes a canonical reference string. It checks syntax only; use
// Catalog.Resolve to check the book and chapter exist.
func ParseRef(s string) (*Ref, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, errors.NewParse("reference", s, "empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ParseError{Format: "reference", Input: s, Message: "invalid reference format", Err: err}
	}

	ref := &Ref{Book: parsed.BookPrefix + parsed.BookName}
	if parsed.ChapterRef != nil {
		ref.Chapter = parsed.ChapterRef.Chapter
		if parsed.ChapterRef.Verse != nil {
			ref.Verse = *parsed.ChapterRef.Verse
		}
	}
	return ref, nil
}

// String returns the canonical form, e.g. "john.3.16".
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	if r.Chapter > 0 {
		sb.WriteString(".")
		sb.WriteString(strconv.Itoa(r.Chapter))
		if r.Verse > 0 {
			sb.WriteString(".")
			sb.WriteString(strconv.Itoa(r.Verse))
		}
	}
	return sb.String()
}

// Display renders the reference with the book's English name, e.g. "John 3:16".
func (r Ref) Display(b Book) string {
	var sb strings.Builder
	sb.WriteString(b.Name)
	if r.Chapter > 0 {
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(r.Chapter))
		if r.Verse > 0 {
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(r.Verse))
		}
	}
	return sb.String()
}

// Resolve parses s and checks it against the catalog.
func (c *Catalog) Resolve(s string) (Book, *Ref, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return Book{}, nil, err
	}
	b, ok := c.ByID(ref.Book)
	if !ok {
		return Book{}, nil, errors.NewNotFound("book", ref.Book)
	}
	if ref.Chapter > 0 && !b.ValidChapter(ref.Chapter) {
		return Book{}, nil, &errors.ValidationError{
			Field:   "chapter",
			Value:   strconv.Itoa(ref.Chapter),
			Message: b.Name + " has " + strconv.Itoa(b.Chapters) + " chapters",
		}
	}
	return b, ref, nil
}
