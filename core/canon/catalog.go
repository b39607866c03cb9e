// Package canon holds the 66-book Protestant canon used to resolve scripture
// references: stable book ids, English and Korean display names, canonical
// order and chapter counts.
//
// The catalog is decoded from an embedded XML file once per process and is
// read-only afterwards, so a *Catalog may be shared between goroutines freely.
package canon

import (
	"bytes"
	_ "embed"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// BookCount is the number of books in the canon.
const BookCount = 66

// Testament identifies the Old or New Testament.
type Testament string

const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// Book describes one canonical book.
type Book struct {
	// ID is the stable lowercase identifier (e.g. "genesis", "1samuel").
	ID string `json:"id"`

	// Name is the English display name (e.g. "1 Samuel").
	Name string `json:"name"`

	// NativeName is the Korean display name (e.g. "사무엘상").
	NativeName string `json:"native_name"`

	// Abbrev is the three-character English abbreviation (e.g. "1Sa").
	Abbrev string `json:"abbrev"`

	// Order is the canonical position, 1 through 66.
	Order int `json:"order"`

	// Chapters is the number of chapters in the book.
	Chapters int `json:"chapters"`

	Testament Testament `json:"testament"`
}

// ValidChapter reports whether n is a chapter of the book.
func (b Book) ValidChapter(n int) bool {
	return n >= 1 && n <= b.Chapters
}

// Catalog is an immutable, ordered set of books.
type Catalog struct {
	books []Book
	byID  map[string]int
}

//go:embed books.xml
var booksXML []byte

var (
	bookExpr  = xpath.MustCompile("/canon/book")
	nameExpr  = xpath.MustCompile("name")
	abbrevExp = xpath.MustCompile("abbr")
)

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog decoded from the embedded books.xml.
// It panics if the embedded data is invalid, which only a broken build can cause.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(bytes.NewReader(booksXML))
		if err != nil {
			panic("canon: embedded catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load decodes and validates a catalog document.
func Load(r io.Reader) (*Catalog, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "catalog", Message: "malformed XML", Err: err}
	}

	nodes := xmlquery.QuerySelectorAll(doc, bookExpr)
	books := make([]Book, 0, len(nodes))
	for _, n := range nodes {
		b, err := decodeBook(n)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	return newCatalog(books)
}

func decodeBook(n *xmlquery.Node) (Book, error) {
	id := strings.TrimSpace(n.SelectAttr("id"))
	if id == "" {
		return Book{}, errors.NewValidation("book.id", "missing id attribute")
	}

	order, err := strconv.Atoi(n.SelectAttr("order"))
	if err != nil {
		return Book{}, &errors.ParseError{Format: "catalog", Input: id, Message: "order is not an integer", Err: err}
	}
	chapters, err := strconv.Atoi(n.SelectAttr("chapters"))
	if err != nil {
		return Book{}, &errors.ParseError{Format: "catalog", Input: id, Message: "chapters is not an integer", Err: err}
	}

	b := Book{
		ID:        id,
		Order:     order,
		Chapters:  chapters,
		Testament: Testament(n.SelectAttr("testament")),
	}
	for _, nn := range xmlquery.QuerySelectorAll(n, nameExpr) {
		switch nn.SelectAttr("lang") {
		case "en":
			b.Name = strings.TrimSpace(nn.InnerText())
		case "ko":
			b.NativeName = strings.TrimSpace(nn.InnerText())
		}
	}
	if a := xmlquery.QuerySelector(n, abbrevExp); a != nil {
		b.Abbrev = strings.TrimSpace(a.InnerText())
	}

	if b.Name == "" || b.NativeName == "" {
		return Book{}, errors.NewValidation("book."+id, "English and Korean names are required")
	}
	if b.Chapters < 1 {
		return Book{}, errors.NewValidation("book."+id, "chapter count must be positive")
	}
	return b, nil
}

func newCatalog(books []Book) (*Catalog, error) {
	if len(books) != BookCount {
		return nil, errors.NewParse("catalog", "", "expected "+strconv.Itoa(BookCount)+" books, got "+strconv.Itoa(len(books)))
	}

	c := &Catalog{
		books: make([]Book, BookCount),
		byID:  make(map[string]int, BookCount),
	}
	for _, b := range books {
		if b.Order < 1 || b.Order > BookCount {
			return nil, errors.NewValidation("book."+b.ID, "order out of range")
		}
		if c.books[b.Order-1].ID != "" {
			return nil, errors.NewValidation("book."+b.ID, "duplicate order "+strconv.Itoa(b.Order))
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, errors.NewValidation("book."+b.ID, "duplicate id")
		}
		c.books[b.Order-1] = b
		c.byID[b.ID] = b.Order - 1
	}
	return c, nil
}

// Books returns a copy of the books in canonical order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

// ByID looks a book up by its stable id.
func (c *Catalog) ByID(id string) (Book, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// ByOrder looks a book up by canonical position (1-based).
func (c *Catalog) ByOrder(order int) (Book, bool) {
	if order < 1 || order > len(c.books) {
		return Book{}, false
	}
	return c.books[order-1], true
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	return len(c.books)
}
