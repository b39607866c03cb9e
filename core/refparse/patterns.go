package refparse

import (
	"regexp"
	"strconv"
)

// template is one reference shape. Every template captures a book span and a
// chapter; verse is optional.
type template struct {
	name string
	re   *regexp.Regexp
}

// bookSpan is an optional book number followed by a name without digits.
const bookSpan = `(?P<book>(?:[1-3]\s*)?[^\d:]+?)`

func mustTemplate(name, expr string) template {
	return template{name: name, re: regexp.MustCompile(`^` + bookSpan + expr + `$`)}
}

// Templates are tried in order, most specific first.
var koreanTemplates = []template{
	mustTemplate("book N장 M절", `\s*(?P<chapter>\d+)\s*장\s*(?P<verse>\d+)\s*절`),
	mustTemplate("book N장 M", `\s*(?P<chapter>\d+)\s*장\s*(?P<verse>\d+)`),
	mustTemplate("book N장", `\s*(?P<chapter>\d+)\s*장`),
	mustTemplate("book N편", `\s*(?P<chapter>\d+)\s*편`),
	mustTemplate("book N:M", `\s*(?P<chapter>\d+):(?P<verse>\d+)`),
	mustTemplate("book N M", `\s+(?P<chapter>\d+)\s+(?P<verse>\d+)`),
	mustTemplate("book N", `\s*(?P<chapter>\d+)`),
}

var englishTemplates = []template{
	mustTemplate("book N:M", `\s*(?P<chapter>\d+):(?P<verse>\d+)`),
	mustTemplate("book chapter N verse M", `\s+(?:chapter|chap|ch)\s+(?P<chapter>\d+)\s+(?:verses|verse|vs|v)\s+(?P<verse>\d+)`),
	mustTemplate("book chapter N", `\s+(?:chapter|chap|ch)\s+(?P<chapter>\d+)`),
	mustTemplate("book N M", `\s+(?P<chapter>\d+)\s+(?P<verse>\d+)`),
	mustTemplate("book N", `\s*(?P<chapter>\d+)`),
}

func templatesFor(lang Language) []template {
	if lang == Korean {
		return koreanTemplates
	}
	return englishTemplates
}

// templateMatch is what a template captured from a normalized transcript.
type templateMatch struct {
	book    string
	chapter int
	verse   int // 0 when the template has no verse
}

func (t template) match(s string) (templateMatch, bool) {
	m := t.re.FindStringSubmatch(s)
	if m == nil {
		return templateMatch{}, false
	}
	var tm templateMatch
	for i, name := range t.re.SubexpNames() {
		switch name {
		case "book":
			tm.book = m[i]
		case "chapter":
			n, err := strconv.Atoi(m[i])
			if err != nil {
				return templateMatch{}, false
			}
			tm.chapter = n
		case "verse":
			if m[i] == "" {
				continue
			}
			n, err := strconv.Atoi(m[i])
			if err != nil {
				return templateMatch{}, false
			}
			tm.verse = n
		}
	}
	return tm, true
}
