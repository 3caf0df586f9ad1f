// Package ontology maps word stems to concepts and measures how related two
// concepts are. Concepts form a forest through their parent links.
package ontology

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kljensen/snowball"
	"gopkg.in/yaml.v3"

	"github.com/dacharyc/revdiff"
)

// ErrUnknownConcept is returned for concept URIs that are not in the ontology.
var ErrUnknownConcept = errors.New("unknown concept")

// Index is what ingestion and scoring need from an ontology.
type Index interface {
	// ConceptsForStem returns the URIs of concepts with a term stemming to stem.
	ConceptsForStem(stem string) []string
	// Similarity returns a relatedness score in [0, 1].
	Similarity(a, b string) float64
}

// Concept is one node of the ontology.
type Concept struct {
	URI      string   `yaml:"uri" validate:"required"`
	Label    string   `yaml:"label"`
	Parent   string   `yaml:"parent"`
	Terms    []string `yaml:"terms"`
	Synonyms []string `yaml:"synonyms"`
}

// File is the YAML document layout.
type File struct {
	Language string    `yaml:"language"`
	Concepts []Concept `yaml:"concepts" validate:"required,dive"`
}

// Ontology is an in-memory Index.
type Ontology struct {
	concepts map[string]*Concept
	byStem   map[string][]string
	synonyms map[string]map[string]struct{}
	depth    map[string]int
	stem     func(string) string
}

var _ Index = (*Ontology)(nil)

// Load reads an ontology from a YAML file.
func Load(path string) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ontology: %w", err)
	}
	defer f.Close()

	o, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// Parse reads an ontology from YAML.
func Parse(r io.Reader) (*Ontology, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding ontology: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid ontology: %w", err)
	}
	return New(file.Concepts, file.Language)
}

// New builds an ontology from concepts. Terms and labels are stemmed with
// the snowball stemmer for language ("english" if empty).
func New(concepts []Concept, language string) (*Ontology, error) {
	if language == "" {
		language = revdiff.DefaultLanguage
	}
	o := &Ontology{
		concepts: make(map[string]*Concept, len(concepts)),
		byStem:   make(map[string][]string),
		synonyms: make(map[string]map[string]struct{}),
		depth:    make(map[string]int, len(concepts)),
		stem: func(word string) string {
			s, err := snowball.Stem(word, language, true)
			if err != nil {
				return word
			}
			return s
		},
	}

	for i := range concepts {
		c := concepts[i]
		if _, dup := o.concepts[c.URI]; dup {
			return nil, fmt.Errorf("duplicate concept %q", c.URI)
		}
		o.concepts[c.URI] = &c
	}

	for uri, c := range o.concepts {
		if c.Parent != "" {
			if _, ok := o.concepts[c.Parent]; !ok {
				return nil, fmt.Errorf("concept %q: parent %q: %w", uri, c.Parent, ErrUnknownConcept)
			}
		}
		for _, syn := range c.Synonyms {
			if _, ok := o.concepts[syn]; !ok {
				return nil, fmt.Errorf("concept %q: synonym %q: %w", uri, syn, ErrUnknownConcept)
			}
			o.link(uri, syn)
		}
		terms := c.Terms
		if c.Label != "" {
			terms = append([]string{c.Label}, terms...)
		}
		for _, term := range terms {
			for _, stem := range o.termStems(term) {
				o.index(stem, uri)
			}
		}
	}

	for uri := range o.concepts {
		d, err := o.computeDepth(uri)
		if err != nil {
			return nil, err
		}
		o.depth[uri] = d
	}

	for stem := range o.byStem {
		sort.Strings(o.byStem[stem])
	}
	return o, nil
}

// link records a symmetric synonym relation.
func (o *Ontology) link(a, b string) {
	for _, p := range [][2]string{{a, b}, {b, a}} {
		if o.synonyms[p[0]] == nil {
			o.synonyms[p[0]] = make(map[string]struct{})
		}
		o.synonyms[p[0]][p[1]] = struct{}{}
	}
}

// index adds uri under stem once.
func (o *Ontology) index(stem, uri string) {
	for _, u := range o.byStem[stem] {
		if u == uri {
			return
		}
	}
	o.byStem[stem] = append(o.byStem[stem], uri)
}

// termStems returns the stems of a term's content words.
func (o *Ontology) termStems(term string) []string {
	var stems []string
	for _, w := range strings.Fields(strings.ToLower(term)) {
		if revdiff.IsStopword(w) {
			continue
		}
		stems = append(stems, o.stem(w))
	}
	return stems
}

// computeDepth returns the number of concepts from uri up to its root,
// inclusive.
func (o *Ontology) computeDepth(uri string) (int, error) {
	seen := make(map[string]struct{})
	depth := 0
	for cur := uri; cur != ""; cur = o.concepts[cur].Parent {
		if _, loop := seen[cur]; loop {
			return 0, fmt.Errorf("concept %q: parent cycle", uri)
		}
		seen[cur] = struct{}{}
		depth++
	}
	return depth, nil
}

// Len returns the number of concepts.
func (o *Ontology) Len() int {
	return len(o.concepts)
}

// Concept returns the concept with the given URI.
func (o *Ontology) Concept(uri string) (Concept, error) {
	c, ok := o.concepts[uri]
	if !ok {
		return Concept{}, fmt.Errorf("%q: %w", uri, ErrUnknownConcept)
	}
	return *c, nil
}

// ConceptsForStem implements Index.
func (o *Ontology) ConceptsForStem(stem string) []string {
	return o.byStem[stem]
}

// Resolve turns a topic given as a concept URI or as a term into concept URIs.
func (o *Ontology) Resolve(topic string) ([]string, error) {
	if _, ok := o.concepts[topic]; ok {
		return []string{topic}, nil
	}
	seen := make(map[string]struct{})
	var uris []string
	for _, stem := range o.termStems(topic) {
		for _, uri := range o.byStem[stem] {
			if _, dup := seen[uri]; !dup {
				seen[uri] = struct{}{}
				uris = append(uris, uri)
			}
		}
	}
	if len(uris) == 0 {
		return nil, fmt.Errorf("topic %q: %w", topic, ErrUnknownConcept)
	}
	sort.Strings(uris)
	return uris, nil
}

// Similarity implements Index. Equal and synonym concepts score 1. Otherwise
// the score is the Wu-Palmer similarity 2·depth(lcs) / (depth(a) + depth(b)),
// where lcs is the deepest common ancestor, and 0 without one.
func (o *Ontology) Similarity(a, b string) float64 {
	if _, ok := o.concepts[a]; !ok {
		return 0
	}
	if _, ok := o.concepts[b]; !ok {
		return 0
	}
	if a == b {
		return 1
	}
	if _, ok := o.synonyms[a][b]; ok {
		return 1
	}

	ancestors := make(map[string]struct{})
	for cur := a; cur != ""; cur = o.concepts[cur].Parent {
		ancestors[cur] = struct{}{}
	}
	for cur := b; cur != ""; cur = o.concepts[cur].Parent {
		if _, ok := ancestors[cur]; ok {
			return 2 * float64(o.depth[cur]) / float64(o.depth[a]+o.depth[b])
		}
	}
	return 0
}
