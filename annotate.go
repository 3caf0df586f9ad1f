package revdiff

import (
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/kljensen/snowball"
	"golang.org/x/net/html"
)

// DefaultLanguage is the default stemming language.
const DefaultLanguage = "english"

// AnnotateOptions configures the default annotator.
type AnnotateOptions struct {
	// Stem, when true, fills Word.Stem using the snowball stemmer.
	Stem bool

	// Language is the snowball stemmer language. If empty, DefaultLanguage is used.
	Language string

	// StripMarkup, when true, blanks out wiki templates, references, comments
	// and tags before tokenizing. Offsets still refer to the original text.
	StripMarkup bool
}

// DefaultAnnotateOptions returns AnnotateOptions with default settings.
func DefaultAnnotateOptions() AnnotateOptions {
	return AnnotateOptions{
		Stem:        true,
		Language:    DefaultLanguage,
		StripMarkup: true,
	}
}

// Annotator turns revision text into sections, sentences and words.
type Annotator struct {
	opts AnnotateOptions
}

// NewAnnotator creates an Annotator from opts.
func NewAnnotator(opts AnnotateOptions) *Annotator {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	return &Annotator{opts: opts}
}

var (
	refPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)<!--.*?-->`),
		regexp.MustCompile(`(?s)<ref[^>/]*>.*?</ref>`),
		regexp.MustCompile(`<ref[^>]*/>`),
	}
	templatePattern = regexp.MustCompile(`(?s)\{\{[^{}]*\}\}`)
	tagPattern      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// blankMarkup replaces markup with spaces of the same byte length so that
// word offsets keep pointing into the original text. Newlines survive.
func blankMarkup(text string) string {
	for _, re := range refPatterns {
		text = re.ReplaceAllStringFunc(text, blank)
	}
	// Templates nest; blank innermost first until none are left.
	for {
		next := templatePattern.ReplaceAllStringFunc(text, blank)
		if next == text {
			break
		}
		text = next
	}
	return tagPattern.ReplaceAllStringFunc(text, blank)
}

func blank(m string) string {
	b := []byte(m)
	for i := range b {
		if b[i] != '\n' {
			b[i] = ' '
		}
	}
	return string(b)
}

// Annotate splits text into a revision with the given ID.
//
// Headings of the form "== Title ==" open a section whose level is the
// number of "=" signs. Sentences end at ".", "!" or "?" followed by
// whitespace, at blank lines and at headings. Words are runs of letters and
// digits; apostrophes and hyphens inside a word, and dots between digits,
// stay part of the word.
func (a *Annotator) Annotate(text string, id RevisionID) *Revision {
	src := text
	if a.opts.StripMarkup {
		src = blankMarkup(text)
	}

	b := &revisionBuilder{rev: &Revision{ID: id}, stem: a.stemmer(), text: text}
	b.openSection("", 0)

	offset := 0
	for _, line := range strings.SplitAfter(src, "\n") {
		if line == "" {
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			b.endSentence()
		case isHeading(trimmed):
			b.endSentence()
			title, level := parseHeading(trimmed)
			b.openSection(title, level)
		default:
			b.scanLine(line, offset)
		}
		offset += len(line)
	}
	b.endSentence()

	return b.rev
}

// stemmer returns the stemming function, or nil when stemming is off.
func (a *Annotator) stemmer() func(string) string {
	if !a.opts.Stem {
		return nil
	}
	lang := a.opts.Language
	return func(word string) string {
		stem, err := snowball.Stem(word, lang, true)
		if err != nil {
			return word
		}
		return stem
	}
}

// revisionBuilder accumulates sections, sentences and words.
type revisionBuilder struct {
	rev  *Revision
	stem func(string) string
	text string

	sectionStack []Section
	section      SectionID
	words        []Word
	nextWord     WordID
}

func (b *revisionBuilder) openSection(title string, level int) {
	for len(b.sectionStack) > 0 && b.sectionStack[len(b.sectionStack)-1].Level >= level {
		b.sectionStack = b.sectionStack[:len(b.sectionStack)-1]
	}
	parent := NoSection
	if len(b.sectionStack) > 0 {
		parent = b.sectionStack[len(b.sectionStack)-1].ID
	}
	s := Section{ID: SectionID(len(b.rev.Sections)), Parent: parent, Title: title, Level: level}
	b.rev.Sections = append(b.rev.Sections, s)
	b.sectionStack = append(b.sectionStack, s)
	b.section = s.ID
}

func (b *revisionBuilder) addWord(start, end int) {
	surface := b.text[start:end]
	w := NewWord(b.nextWord, surface, "", start, end)
	if b.stem != nil {
		w.Stem = b.stem(w.Text)
	}
	b.nextWord++
	b.words = append(b.words, w)
}

func (b *revisionBuilder) endSentence() {
	if len(b.words) == 0 {
		return
	}
	b.rev.Sentences = append(b.rev.Sentences, Sentence{
		ID:      SentenceID(len(b.rev.Sentences)),
		Section: b.section,
		Words:   b.words,
	})
	b.words = nil
}

// scanLine tokenizes one line starting at byte offset base of the text.
func (b *revisionBuilder) scanLine(line string, base int) {
	wordStart := -1
	var prev rune

	flush := func(pos int) {
		if wordStart >= 0 {
			b.addWord(base+wordStart, base+pos)
			wordStart = -1
		}
	}

	for i, r := range line {
		next, _ := utf8.DecodeRuneInString(line[i+utf8.RuneLen(r):])
		switch {
		case isWordRune(r):
			if wordStart < 0 {
				wordStart = i
			}
		case wordStart >= 0 && isJoiner(r, prev, next):
			// stays inside the current word
		case isTerminator(r) && (next == utf8.RuneError || unicode.IsSpace(next)):
			flush(i)
			b.endSentence()
		default:
			flush(i)
		}
		prev = r
	}
	flush(len(line))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isJoiner reports whether r joins the runes around it into one word.
func isJoiner(r, prev, next rune) bool {
	switch r {
	case '\'', '’', '-':
		return isWordRune(prev) && isWordRune(next)
	case '.', ',':
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	}
	return false
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isHeading reports whether a trimmed line is a wiki heading.
func isHeading(line string) bool {
	return len(line) >= 3 && line[0] == '=' && line[len(line)-1] == '=' && strings.Trim(line, "=") != ""
}

// parseHeading returns a heading's title and level.
func parseHeading(line string) (string, int) {
	lead := len(line) - len(strings.TrimLeft(line, "="))
	trail := len(line) - len(strings.TrimRight(line, "="))
	return strings.TrimSpace(strings.Trim(line, "=")), min(lead, trail)
}

// blockElements start a new paragraph when rendered HTML is flattened.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "table": true,
	"tr": true, "td": true, "th": true, "br": true, "blockquote": true,
	"dd": true, "dt": true, "dl": true, "section": true, "article": true, "pre": true,
}

// ExtractHTMLText flattens a rendered wiki page into annotatable text.
// Scripts, styles, reference markers and edit links are dropped; headings
// become "== Title ==" lines and block elements become paragraph breaks.
// Only the article body (#mw-content-text) is used when present.
func ExtractHTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, sup.reference, .mw-editsection").Remove()

	root := doc.Find("#mw-content-text")
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if level := headingLevel(n.Data); level > 0 {
				marks := strings.Repeat("=", level)
				title := strings.Join(strings.Fields(doc.FindNodes(n).Text()), " ")
				sb.WriteString("\n\n" + marks + " " + title + " " + marks + "\n\n")
				return
			}
			if blockElements[n.Data] {
				sb.WriteString("\n\n")
				defer sb.WriteString("\n\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}

	return collapseBlankLines(sb.String()), nil
}

// headingLevel returns 1-6 for h1-h6 element names, 0 otherwise.
func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// collapseBlankLines trims each line and keeps at most one blank line between
// paragraphs.
func collapseBlankLines(text string) string {
	var out []string
	blank := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
