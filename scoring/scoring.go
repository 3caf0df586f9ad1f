// Package scoring ranks authors by topical expertise weighted by
// credibility.
//
// Credibility measures how much of what an author wrote survives other
// authors' edits. Expertise sums an author's contributions to concepts,
// decayed by age and weighted by how related each concept is to the topic.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dacharyc/revdiff/ingest"
	"github.com/dacharyc/revdiff/ontology"
	"github.com/dacharyc/revdiff/store"
)

// DefaultHalfLife is the age at which a contribution counts half.
const DefaultHalfLife = 365 * 24 * time.Hour

// Source provides the stored activity scoring works from.
type Source interface {
	AuthorStats(ctx context.Context) ([]store.AuthorStats, error)
	Contributions(ctx context.Context, author string) ([]ingest.Contribution, error)
}

// Credibility returns (added - deletedByOthers) / added, clamped to [0, 1].
// Authors who added nothing score 0. Words an author removed themselves do
// not count against them.
func Credibility(st store.AuthorStats) float64 {
	if st.Added <= 0 {
		return 0
	}
	c := float64(st.Added-st.DeletedByOthers) / float64(st.Added)
	return math.Max(0, math.Min(1, c))
}

// Decay returns the weight of a contribution of the given age. Future
// contributions and a non-positive half-life weigh 1.
func Decay(age, halfLife time.Duration) float64 {
	if age <= 0 || halfLife <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * float64(age) / float64(halfLife))
}

// Expertise sums words·decay·similarity over contributions, where
// similarity is the best match between the contribution's concept and any
// topic concept.
func Expertise(contributions []ingest.Contribution, topics []string, index ontology.Index, now time.Time, halfLife time.Duration) float64 {
	total := 0.0
	for _, c := range contributions {
		sim := 0.0
		for _, t := range topics {
			sim = math.Max(sim, index.Similarity(c.Concept, t))
		}
		if sim == 0 {
			continue
		}
		total += float64(c.Words) * Decay(now.Sub(c.Timestamp), halfLife) * sim
	}
	return total
}

// AuthorScore is one row of a ranking.
type AuthorScore struct {
	Author      string
	Expertise   float64
	Credibility float64
	// Score is Expertise·Credibility.
	Score float64
	Added int
}

// Options configures a Scorer.
type Options struct {
	// HalfLife of contributions. If zero, DefaultHalfLife is used.
	HalfLife time.Duration
	// Now returns the reference time for ages. If nil, time.Now is used.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Scorer ranks authors.
type Scorer struct {
	source   Source
	index    ontology.Index
	halfLife time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewScorer creates a Scorer reading activity from source and concept
// similarity from index.
func NewScorer(source Source, index ontology.Index, opts Options) *Scorer {
	if opts.HalfLife == 0 {
		opts.HalfLife = DefaultHalfLife
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scorer{
		source:   source,
		index:    index,
		halfLife: opts.HalfLife,
		now:      opts.Now,
		logger:   opts.Logger.With().Str("component", "Scorer").Logger(),
	}
}

// Rank scores every author against the topic concepts, best first. Ties
// are broken by author name. Authors with no expertise in the topic are
// left out.
func (s *Scorer) Rank(ctx context.Context, topics []string) ([]AuthorScore, error) {
	stats, err := s.source.AuthorStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading author stats: %w", err)
	}
	contributions, err := s.source.Contributions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("loading contributions: %w", err)
	}

	byAuthor := make(map[string][]ingest.Contribution)
	for _, c := range contributions {
		byAuthor[c.Author] = append(byAuthor[c.Author], c)
	}

	now := s.now()
	var scores []AuthorScore
	for _, st := range stats {
		exp := Expertise(byAuthor[st.Author], topics, s.index, now, s.halfLife)
		if exp == 0 {
			continue
		}
		cred := Credibility(st)
		scores = append(scores, AuthorScore{
			Author:      st.Author,
			Expertise:   exp,
			Credibility: cred,
			Score:       exp * cred,
			Added:       st.Added,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Author < scores[j].Author
	})

	s.logger.Debug().Strs("topics", topics).Int("authors", len(scores)).Msg("ranked authors")
	return scores, nil
}
