package assist

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const snippetLen = 300

type Snippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Score   string `json:"score"`
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
}

type document struct {
	name   string
	text   string
	vec    map[string]float64
	length float64
}

// Index ranks plain-text documents (.txt, .md) from a directory by cosine
// similarity of term-frequency vectors. The directory is read lazily on the
// first search.
type Index struct {
	Dir string

	once sync.Once
	docs []document
	err  error
}

func (ix *Index) load() {
	entries, err := os.ReadDir(ix.Dir)
	if err != nil {
		ix.err = fmt.Errorf("read docs dir: %w", err)
		return
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(ix.Dir, e.Name()))
		if err != nil {
			log.Warn().Err(err).Str("module", "assist").Str("file", e.Name()).Msg("skip document")
			continue
		}
		text := strings.Join(strings.Fields(string(b)), " ")
		vec, length := termVector(text)
		ix.docs = append(ix.docs, document{
			name:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			text:   text,
			vec:    vec,
			length: length,
		})
	}
	log.Info().Str("module", "assist").Int("docs", len(ix.docs)).Msg("document index loaded")
}

func (ix *Index) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	ix.once.Do(ix.load)
	if ix.err != nil {
		return nil, ix.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qv, ql := termVector(query)
	type scored struct {
		doc   *document
		score float64
	}
	ranked := make([]scored, 0, len(ix.docs))
	for i := range ix.docs {
		d := &ix.docs[i]
		var dot float64
		for term, w := range qv {
			dot += w * d.vec[term]
		}
		s := 0.0
		if ql > 0 && d.length > 0 {
			s = dot / (ql * d.length)
		}
		ranked = append(ranked, scored{doc: d, score: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]Snippet, 0, len(ranked))
	for _, r := range ranked {
		snip := truncate(r.doc.text, snippetLen)
		out = append(out, Snippet{
			Title:   r.doc.name,
			Snippet: snip,
			Score:   fmt.Sprintf("%.3f", r.score),
		})
	}
	return out, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func termVector(text string) (map[string]float64, float64) {
	vec := make(map[string]float64)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		vec[tok]++
	}
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	return vec, math.Sqrt(sum)
}
