package refparse

import (
	"sort"
	"strings"

	"github.com/FocuswithJustin/versefinder/core/canon"
)

// aliasSpec lists the spoken and written short forms of one book beyond the
// names carried by the catalog. For numbered books (1samuel, 2john, ...) the
// English entries are stems; buildAliases prefixes them with the book number.
type aliasSpec struct {
	english []string
	korean  []string
}

var staticAliases = map[string]aliasSpec{
	"genesis":        {english: []string{"gen", "ge", "gn"}, korean: []string{"창", "창세"}},
	"exodus":         {english: []string{"exod", "ex"}, korean: []string{"출", "출애굽"}},
	"leviticus":      {english: []string{"le", "lv"}, korean: []string{"레", "레위"}},
	"numbers":        {english: []string{"nu", "nm", "nb"}, korean: []string{"민", "민수"}},
	"deuteronomy":    {english: []string{"deut", "dt"}, korean: []string{"신", "신명"}},
	"joshua":         {english: []string{"josh", "jsh"}, korean: []string{"수", "여호수아서"}},
	"judges":         {english: []string{"judg", "jg", "jdgs"}, korean: []string{"삿", "사사"}},
	"ruth":           {english: []string{"rth", "ru"}, korean: []string{"룻"}},
	"1samuel":        {english: []string{"samuel", "sam", "sa", "sm"}, korean: []string{"삼상"}},
	"2samuel":        {english: []string{"samuel", "sam", "sa", "sm"}, korean: []string{"삼하"}},
	"1kings":         {english: []string{"kings", "kgs", "ki", "kin"}, korean: []string{"왕상"}},
	"2kings":         {english: []string{"kings", "kgs", "ki", "kin"}, korean: []string{"왕하"}},
	"1chronicles":    {english: []string{"chronicles", "chr", "chron", "ch"}, korean: []string{"대상", "역대기상"}},
	"2chronicles":    {english: []string{"chronicles", "chr", "chron", "ch"}, korean: []string{"대하", "역대기하"}},
	"ezra":           {english: []string{"ezr"}, korean: []string{"스"}},
	"nehemiah":       {english: []string{"ne"}, korean: []string{"느"}},
	"esther":         {english: []string{"esth", "es"}, korean: []string{"에"}},
	"job":            {english: []string{"jb"}, korean: []string{"욥"}},
	"psalms":         {english: []string{"psalm", "ps", "pss", "psm"}, korean: []string{"시"}},
	"proverbs":       {english: []string{"prov", "prv", "pr"}, korean: []string{"잠"}},
	"ecclesiastes":   {english: []string{"eccl", "eccles", "qoh", "qoheleth"}, korean: []string{"전", "전도"}},
	"songofsolomon":  {english: []string{"song of songs", "song", "sos", "canticles"}, korean: []string{"아", "아가서"}},
	"isaiah":         {english: []string{"is"}, korean: []string{"사"}},
	"jeremiah":       {english: []string{"je", "jr"}, korean: []string{"렘"}},
	"lamentations":   {english: []string{"la"}, korean: []string{"애", "애가"}},
	"ezekiel":        {english: []string{"ezek", "eze"}, korean: []string{"겔"}},
	"daniel":         {english: []string{"da", "dn"}, korean: []string{"단"}},
	"hosea":          {english: []string{"ho"}, korean: []string{"호"}},
	"joel":           {english: []string{"jl"}, korean: []string{"욜"}},
	"amos":           {english: []string{"am"}, korean: []string{"암"}},
	"obadiah":        {english: []string{"obad", "ob"}, korean: []string{"옵"}},
	"jonah":          {english: []string{"jnh"}, korean: []string{"욘"}},
	"micah":          {english: []string{"mi"}, korean: []string{"미"}},
	"nahum":          {english: []string{"nah", "na"}, korean: []string{"나"}},
	"habakkuk":       {english: []string{"hb"}, korean: []string{"합"}},
	"zephaniah":      {english: []string{"zeph", "zp"}, korean: []string{"습"}},
	"haggai":         {english: []string{"hg"}, korean: []string{"학"}},
	"zechariah":      {english: []string{"zech", "zc"}, korean: []string{"슥"}},
	"malachi":        {english: []string{"ml"}, korean: []string{"말"}},
	"matthew":        {english: []string{"matt", "mt"}, korean: []string{"마", "마태"}},
	"mark":           {english: []string{"mar", "mk", "mr"}, korean: []string{"막", "마가"}},
	"luke":           {english: []string{"lk"}, korean: []string{"눅", "누가"}},
	"john":           {english: []string{"joh", "jn"}, korean: []string{"요", "요한"}},
	"acts":           {english: []string{"ac", "acts of the apostles"}, korean: []string{"행", "행전"}},
	"romans":         {english: []string{"ro", "rm"}, korean: []string{"롬", "로마"}},
	"1corinthians":   {english: []string{"corinthians", "cor", "co"}, korean: []string{"고전"}},
	"2corinthians":   {english: []string{"corinthians", "cor", "co"}, korean: []string{"고후"}},
	"galatians":      {english: []string{"ga"}, korean: []string{"갈", "갈라디아"}},
	"ephesians":      {english: []string{"ephes"}, korean: []string{"엡", "에베소"}},
	"philippians":    {english: []string{"phil", "pp"}, korean: []string{"빌", "빌립보"}},
	"colossians":     {english: []string{"colo"}, korean: []string{"골", "골로새"}},
	"1thessalonians": {english: []string{"thessalonians", "thess", "thes", "th"}, korean: []string{"살전"}},
	"2thessalonians": {english: []string{"thessalonians", "thess", "thes", "th"}, korean: []string{"살후"}},
	"1timothy":       {english: []string{"timothy", "tim", "ti"}, korean: []string{"딤전"}},
	"2timothy":       {english: []string{"timothy", "tim", "ti"}, korean: []string{"딤후"}},
	"titus":          {english: []string{"ti"}, korean: []string{"딛", "디도"}},
	"philemon":       {english: []string{"phlm", "philem"}, korean: []string{"몬", "빌레몬"}},
	"hebrews":        {english: []string{"hebr"}, korean: []string{"히", "히브리"}},
	"james":          {english: []string{"jm", "jms"}, korean: []string{"약", "야고보"}},
	"1peter":         {english: []string{"peter", "pet", "pe", "pt"}, korean: []string{"벧전"}},
	"2peter":         {english: []string{"peter", "pet", "pe", "pt"}, korean: []string{"벧후"}},
	"1john":          {english: []string{"john", "jn", "jo", "jhn"}, korean: []string{"요일"}},
	"2john":          {english: []string{"john", "jn", "jo", "jhn"}, korean: []string{"요이"}},
	"3john":          {english: []string{"john", "jn", "jo", "jhn"}, korean: []string{"요삼"}},
	"jude":           {english: []string{"jde"}, korean: []string{"유", "유다"}},
	"revelation":     {english: []string{"revelations", "re", "apocalypse", "revelation of john"}, korean: []string{"계", "계시록"}},
}

var (
	numberWordsByOrdinal = map[string][]string{
		"1": {"first", "1st", "i"},
		"2": {"second", "2nd", "ii"},
		"3": {"third", "3rd", "iii"},
	}
)

// aliasTable maps a normalized alias to a book id. It is filled once by
// buildAliases and never written afterwards.
type aliasTable struct {
	byAlias map[string]string
	// sorted holds every alias in a fixed order so scans are deterministic.
	sorted []string
}

func (t *aliasTable) lookup(alias string) (string, bool) {
	id, ok := t.byAlias[alias]
	return id, ok
}

// buildAliases combines catalog names, the static table and any extra aliases.
// Earlier sources win: an extra alias never shadows a built-in one.
func buildAliases(c *canon.Catalog, extra map[string]string) *aliasTable {
	t := &aliasTable{byAlias: make(map[string]string, 1024)}
	add := func(alias, id string) {
		alias = normalizeAlias(alias)
		if alias == "" {
			return
		}
		if _, exists := t.byAlias[alias]; exists {
			return
		}
		t.byAlias[alias] = id
	}

	for _, b := range c.Books() {
		add(b.ID, b.ID)
		add(b.Name, b.ID)
		add(strings.ReplaceAll(b.Name, " ", ""), b.ID)
		add(b.Abbrev, b.ID)
		add(b.NativeName, b.ID)
	}

	for _, b := range c.Books() {
		names := staticAliases[b.ID]
		num, stem := splitBookNumber(b.Name)
		for _, a := range names.english {
			if num == "" {
				add(a, b.ID)
				continue
			}
			add(num+a, b.ID)
			add(num+" "+a, b.ID)
			for _, w := range numberWordsByOrdinal[num] {
				add(w+" "+a, b.ID)
			}
		}
		if num != "" {
			for _, w := range numberWordsByOrdinal[num] {
				add(w+" "+stem, b.ID)
			}
		}
		for _, a := range names.korean {
			add(a, b.ID)
		}
	}

	extraKeys := make([]string, 0, len(extra))
	for a := range extra {
		extraKeys = append(extraKeys, a)
	}
	sort.Strings(extraKeys)
	for _, a := range extraKeys {
		if _, ok := c.ByID(extra[a]); ok {
			add(a, extra[a])
		}
	}

	t.sorted = make([]string, 0, len(t.byAlias))
	for a := range t.byAlias {
		t.sorted = append(t.sorted, a)
	}
	sort.Strings(t.sorted)
	return t
}

// splitBookNumber splits "1 Samuel" into ("1", "samuel").
func splitBookNumber(name string) (string, string) {
	lower := strings.ToLower(name)
	if len(lower) > 2 && lower[0] >= '1' && lower[0] <= '3' && lower[1] == ' ' {
		return lower[:1], lower[2:]
	}
	return "", lower
}

func normalizeAlias(a string) string {
	return strings.Join(strings.Fields(strings.ToLower(a)), " ")
}
