package refparse

import (
	"math"
	"strconv"
	"testing"

	"github.com/FocuswithJustin/versefinder/core/canon"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantBook   string
		wantCh     int
		wantVerse  int
		wantLang   Language
		wantConf   Confidence
		wantAltIDs []string
	}{
		{"english colon", "John 3:16", "john", 3, 16, English, High, nil},
		{"korean chapter verse", "요한복음 3장 16절", "john", 3, 16, Korean, High, nil},
		{"korean no spaces", "요한복음3장16절", "john", 3, 16, Korean, High, nil},
		{"korean chapter only", "창세기 1장", "genesis", 1, 0, Korean, High, nil},
		{"korean psalm", "시편 23편", "psalms", 23, 0, Korean, High, nil},
		{"korean particle and filler", "요한복음을 3장 16절 읽어줘", "john", 3, 16, Korean, High, nil},
		{"korean number words", "요한복음 삼장 십육절", "john", 3, 16, Korean, High, nil},
		{"korean partial name", "사무엘", "1samuel", 0, 0, Korean, Medium, []string{"2samuel"}},
		{"space separated", "gen 1 1", "genesis", 1, 1, English, High, nil},
		{"dotted", "John.3.16", "john", 3, 16, English, High, nil},
		{"filler", "show me john 3 16", "john", 3, 16, English, High, nil},
		{"number words", "john three sixteen", "john", 3, 16, English, High, nil},
		{"numbered book", "1 John 3:16", "1john", 3, 16, English, High, nil},
		{"ordinal book", "first john chapter two", "1john", 2, 0, English, High, nil},
		{"chapter verse words", "romans chapter 8 verse 28", "romans", 8, 28, English, High, nil},
		{"chapter word only", "romans chapter 8", "romans", 8, 0, English, High, nil},
		{"psalm", "Psalm 119", "psalms", 119, 0, English, High, nil},
		{"book only", "Revelation", "revelation", 0, 0, English, High, nil},
		{"fuzzy", "xodus 20", "exodus", 20, 0, English, Medium, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got.Book == nil {
				t.Fatalf("Parse(%q) found no book", tt.input)
			}
			if got.Book.ID != tt.wantBook {
				t.Errorf("book = %q, want %q", got.Book.ID, tt.wantBook)
			}
			checkInt(t, "chapter", got.Chapter, tt.wantCh)
			checkInt(t, "verse", got.Verse, tt.wantVerse)
			if got.Language != tt.wantLang {
				t.Errorf("language = %q, want %q", got.Language, tt.wantLang)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("confidence = %q, want %q", got.Confidence, tt.wantConf)
			}
			if got.RawTranscript != tt.input {
				t.Errorf("raw transcript = %q, want %q", got.RawTranscript, tt.input)
			}
			if tt.wantAltIDs != nil {
				if len(got.AlternativeBooks) != len(tt.wantAltIDs) {
					t.Fatalf("alternatives = %v, want %v", bookIDs(got.AlternativeBooks), tt.wantAltIDs)
				}
				for i, id := range tt.wantAltIDs {
					if got.AlternativeBooks[i].ID != id {
						t.Errorf("alternative[%d] = %q, want %q", i, got.AlternativeBooks[i].ID, id)
					}
				}
			}
		})
	}
}

func TestParseNoMatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"only fillers", "please show me"},
		{"chapter out of range", "Genesis 51"},
		{"korean chapter out of range", "창세기 51장"},
		{"chapter overflows int", "Genesis 99999999999999999999"},
		{"korean chapter overflows int", "창세기 99999999999999999999장"},
		{"nonsense", "zzzzzzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got.Book != nil {
				t.Errorf("Parse(%q) book = %q, want none", tt.input, got.Book.ID)
			}
			if got.Chapter != nil || got.Verse != nil {
				t.Errorf("Parse(%q) has chapter/verse, want none", tt.input)
			}
			if got.Confidence != Low {
				t.Errorf("confidence = %q, want low", got.Confidence)
			}
			if got.AlternativeBooks == nil {
				t.Error("AlternativeBooks should be empty, not nil")
			}
			if got.Found() {
				t.Error("Found() = true, want false")
			}
		})
	}
}

func TestParseEveryBook(t *testing.T) {
	p := Default()
	for _, b := range p.Catalog().Books() {
		for _, input := range []string{b.Name, b.NativeName, b.Abbrev} {
			got := p.Parse(input)
			if got.Book == nil || got.Book.ID != b.ID {
				t.Errorf("Parse(%q) = %v, want %s", input, got, b.ID)
				continue
			}
			if got.Confidence != High {
				t.Errorf("Parse(%q) confidence = %q, want high", input, got.Confidence)
			}
			if len(got.AlternativeBooks) != 0 {
				t.Errorf("Parse(%q) alternatives = %v, want none", input, bookIDs(got.AlternativeBooks))
			}
			if got.Chapter != nil {
				t.Errorf("Parse(%q) chapter = %d, want none", input, *got.Chapter)
			}
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	inputs := []string{"John 3:16", "요한복음 3장 16절", "사무엘", "Genesis 51", "", "xodus"}
	for _, in := range inputs {
		a, b := Parse(in), Parse(in)
		if !a.Equal(b) {
			t.Errorf("Parse(%q) not deterministic: %v vs %v", in, a, b)
		}
	}
}

func TestParseChapterWithinBook(t *testing.T) {
	p := Default()
	for _, b := range p.Catalog().Books() {
		got := p.Parse(b.Name + " " + strconv.Itoa(b.Chapters))
		if got.Book == nil || got.Book.ID != b.ID {
			t.Errorf("%s last chapter: book = %v", b.ID, got)
			continue
		}
		checkInt(t, b.ID+" chapter", got.Chapter, b.Chapters)

		over := p.Parse(b.Name + " " + strconv.Itoa(b.Chapters+1))
		if over.Chapter != nil && !over.Book.ValidChapter(*over.Chapter) {
			t.Errorf("%s: chapter %d accepted", b.ID, *over.Chapter)
		}
	}
}

func TestWithAliases(t *testing.T) {
	p := New(canon.Default(), WithAliases(map[string]string{
		"Jhonny":  "john",
		"gen":     "exodus",
		"nowhere": "atlantis",
	}))

	m := p.MatchBook("jhonny")
	if m.Book == nil || m.Book.ID != "john" || m.Stage != StageExact {
		t.Errorf("custom alias: got %+v", m)
	}
	m = p.MatchBook("gen")
	if m.Book == nil || m.Book.ID != "genesis" {
		t.Errorf("built-in alias was shadowed: got %v", m.Book)
	}
	if _, ok := p.Aliases()["nowhere"]; ok {
		t.Error("alias for unknown book should be dropped")
	}

	got := p.Parse("jhonny 3 16")
	if got.Book == nil || got.Book.ID != "john" {
		t.Errorf("Parse with custom alias = %v", got)
	}
}

func TestAliasesRoundTrip(t *testing.T) {
	p := Default()
	aliases := p.Aliases()
	for _, b := range p.Catalog().Books() {
		if aliases[b.ID] != b.ID {
			t.Errorf("alias %q -> %q, want itself", b.ID, aliases[b.ID])
		}
	}

	aliases["john"] = "genesis"
	if p.Aliases()["john"] != "john" {
		t.Error("Aliases() should return a copy")
	}
}

func TestParsedReferenceRef(t *testing.T) {
	got := Parse("John 3:16")
	ref := got.Ref()
	if ref == nil || ref.String() != "john.3.16" {
		t.Fatalf("Ref() = %v, want john.3.16", ref)
	}
	if s := got.String(); s != "John 3:16 (high)" {
		t.Errorf("String() = %q", s)
	}
	if Parse("").Ref() != nil {
		t.Error("Ref() of empty result should be nil")
	}
}

func TestSplitNumbers(t *testing.T) {
	p := Default()
	tests := []struct {
		in       string
		wantText string
		wantNums []int
	}{
		{"john 3 16", "john", []int{3, 16}},
		{"1 john 2", "1 john", []int{2}},
		{"psalm 1 2", "psalm", []int{1, 2}},
		{"요한복음3장16절", "요한복음", []int{3, 16}},
		{"romans chapter eight verse twenty eight", "romans", []int{8, 28}},
		{"genesis", "genesis", nil},
		{"genesis 99999999999999999999", "genesis", []int{math.MaxInt}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			text, nums := p.splitNumbers(tt.in)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if len(nums) != len(tt.wantNums) {
				t.Fatalf("numbers = %v, want %v", nums, tt.wantNums)
			}
			for i := range nums {
				if nums[i] != tt.wantNums[i] {
					t.Errorf("numbers = %v, want %v", nums, tt.wantNums)
				}
			}
		})
	}
}

func checkInt(t *testing.T, field string, got *int, want int) {
	t.Helper()
	switch {
	case want == 0 && got != nil:
		t.Errorf("%s = %d, want none", field, *got)
	case want != 0 && got == nil:
		t.Errorf("%s = none, want %d", field, want)
	case want != 0 && *got != want:
		t.Errorf("%s = %d, want %d", field, *got, want)
	}
}

func bookIDs(books []canon.Book) []string {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return ids
}

func TestParsedReferenceClone(t *testing.T) {
	orig := Parse("사무엘 3장 10절")
	c := orig.Clone()
	if !c.Equal(orig) {
		t.Fatalf("Clone() = %v, want %v", c, orig)
	}

	*c.Chapter = 1
	*c.Verse = 1
	c.Book.ID = "changed"
	c.AlternativeBooks[0].ID = "changed"
	if *orig.Chapter != 3 || *orig.Verse != 10 || orig.Book.ID != "1samuel" || orig.AlternativeBooks[0].ID != "2samuel" {
		t.Errorf("modifying the clone changed the original: %v %v", orig, bookIDs(orig.AlternativeBooks))
	}

	empty := Parse("").Clone()
	if empty.Book != nil || empty.Chapter != nil || empty.AlternativeBooks == nil {
		t.Errorf("Clone() of empty result = %+v", empty)
	}
}
