// Package search provides a small, deterministic, concurrency-safe in-memory
// index over cached posts. It only filters what is already in the cache; the
// remote catalog is never queried with a search term.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with full case folding and optional
//     stop-word removal
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic scoring and ordering (ties keep feed order)
//
// Scoring uses Jaccard similarity between the query token set and each
// post's token set (title, body and tags): score = |Q ∩ P| / |Q ∪ P|.
package search

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-feed-sync/internal/domain"
)

// Result is a ranked post id with its similarity score.
type Result struct {
	PostID int64   `json:"postId"`
	Score  float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	minScore  float64
}

func defaultConfig() config {
	return config{}
}

// WithStopwords drops the given words from both posts and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMinScore discards matches scoring below s (0 < s <= 1).
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s > 0 && s <= 1 {
			c.minScore = s
		}
	}
}

// DefaultStopwords is a short English list suited to post titles and bodies.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "he",
	"her", "his", "in", "is", "it", "of", "on", "or", "she", "that", "the",
	"to", "was", "were", "with",
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	postID int64
	pos    int
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewPostIndex builds an Index over posts. Posts without any indexable token
// are skipped.
func NewPostIndex(posts []domain.Post, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(posts))
	for i, p := range posts {
		text := p.Title + " " + p.Body + " " + strings.Join(p.Tags, " ")
		toks := tokenize(text, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{postID: p.ID, pos: i, tokens: toks})
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching posts. k <= 0 means no limit.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		id    int64
		pos   int
		score float64
	}
	buf := make([]scored, 0, len(i.docs))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(qLen+len(d.tokens)-over)
		if score < i.cfg.minScore {
			continue
		}
		buf = append(buf, scored{id: d.postID, pos: d.pos, score: score})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		return buf[a].pos < buf[b].pos
	})

	if k <= 0 || k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for j := 0; j < k; j++ {
		out[j] = Result{PostID: buf[j].id, Score: buf[j].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold applies Unicode full case folding. A Caser is stateful, so one is
// created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
