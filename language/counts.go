package language

import (
	"fmt"
	"log/slog"

	"github.com/ieee0824/trigramlm/corpus"
)

// Counts accumulates n-gram counts for trigram models.
//
// Two families are kept apart. Event counts c(x,y,z), c(y,z), c(z), c()
// count tokens z that occur (z may be EOS but never BOS). Context counts
// c(x,y), c(y), c() count left contexts (y may be BOS but never EOS).
// The bigram and unigram tables of the two families differ exactly on
// the boundary markers, so they cannot share storage.
//
// Counts is not safe for concurrent use.
type Counts struct {
	events3 map[[3]string]int
	events2 map[[2]string]int
	events1 map[string]int
	events0 int

	contexts2 map[[2]string]int
	contexts1 map[string]int
	contexts0 int
}

// NewCounts creates an empty count store.
func NewCounts() *Counts {
	c := &Counts{}
	c.Reset()
	return c
}

// Reset zeroes every count.
func (c *Counts) Reset() {
	c.events3 = make(map[[3]string]int)
	c.events2 = make(map[[2]string]int)
	c.events1 = make(map[string]int)
	c.events0 = 0
	c.contexts2 = make(map[[2]string]int)
	c.contexts1 = make(map[string]int)
	c.contexts0 = 0
}

// Record counts one trigram token together with the suffixes of its event
// and of its context.
func (c *Counts) Record(t corpus.Trigram) {
	x, y, z := t[0], t[1], t[2]

	c.events3[[3]string{x, y, z}]++
	c.events2[[2]string{y, z}]++
	c.events1[z]++
	c.events0++

	c.contexts2[[2]string{x, y}]++
	c.contexts1[y]++
	c.contexts0++
}

// Event returns the event count of an n-gram of order 0 to 3.
func (c *Counts) Event(words ...string) int {
	switch len(words) {
	case 0:
		return c.events0
	case 1:
		return c.events1[words[0]]
	case 2:
		return c.events2[[2]string{words[0], words[1]}]
	case 3:
		return c.events3[[3]string{words[0], words[1], words[2]}]
	}
	panic(fmt.Sprintf("language: event n-gram of order %d", len(words)))
}

// Context returns the context count of an n-gram of order 0 to 2.
func (c *Counts) Context(words ...string) int {
	switch len(words) {
	case 0:
		return c.contexts0
	case 1:
		return c.contexts1[words[0]]
	case 2:
		return c.contexts2[[2]string{words[0], words[1]}]
	}
	panic(fmt.Sprintf("language: context n-gram of order %d", len(words)))
}

// Tokens returns the number of recorded tokens, EOS markers included.
func (c *Counts) Tokens() int { return c.events0 }

// ForEachTrigram calls fn for every observed trigram event.
func (c *Counts) ForEachTrigram(fn func(t corpus.Trigram, n int)) {
	for k, n := range c.events3 {
		fn(corpus.Trigram(k), n)
	}
}

// CountTrigrams makes one counting pass over src.
func CountTrigrams(src corpus.Source, vocab *corpus.Vocab, logger *slog.Logger) (*Counts, error) {
	c := NewCounts()
	if err := c.countFrom(src, vocab, logger); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Counts) countFrom(src corpus.Source, vocab *corpus.Vocab, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	c.Reset()

	r, err := corpus.Open(src, vocab)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer r.Close()

	logger.Info("counting trigrams")
	for r.Next() {
		c.Record(r.Trigram())
		if c.events0%progressInterval == 0 {
			logger.Debug("counting", "tokens", c.events0)
		}
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	logger.Info("finished counting", "tokens", c.events0, "trigram_types", len(c.events3))
	return nil
}

const progressInterval = 5000

// countRecord is the serialized form of one table entry.
type countRecord struct {
	Context bool
	Words   []string
	N       int
}

func (c *Counts) records() []countRecord {
	out := make([]countRecord, 0, len(c.events3)+len(c.events2)+len(c.events1)+len(c.contexts2)+len(c.contexts1)+2)
	for k, n := range c.events3 {
		out = append(out, countRecord{Words: []string{k[0], k[1], k[2]}, N: n})
	}
	for k, n := range c.events2 {
		out = append(out, countRecord{Words: []string{k[0], k[1]}, N: n})
	}
	for k, n := range c.events1 {
		out = append(out, countRecord{Words: []string{k}, N: n})
	}
	out = append(out, countRecord{N: c.events0})
	for k, n := range c.contexts2 {
		out = append(out, countRecord{Context: true, Words: []string{k[0], k[1]}, N: n})
	}
	for k, n := range c.contexts1 {
		out = append(out, countRecord{Context: true, Words: []string{k}, N: n})
	}
	out = append(out, countRecord{Context: true, N: c.contexts0})
	return out
}

func countsFromRecords(recs []countRecord) (*Counts, error) {
	c := NewCounts()
	for _, r := range recs {
		if r.N < 0 {
			return nil, fmt.Errorf("negative count for %v: %w", r.Words, ErrMalformedInput)
		}
		w := r.Words
		switch {
		case !r.Context && len(w) == 3:
			c.events3[[3]string{w[0], w[1], w[2]}] = r.N
		case !r.Context && len(w) == 2:
			c.events2[[2]string{w[0], w[1]}] = r.N
		case !r.Context && len(w) == 1:
			c.events1[w[0]] = r.N
		case !r.Context && len(w) == 0:
			c.events0 = r.N
		case r.Context && len(w) == 2:
			c.contexts2[[2]string{w[0], w[1]}] = r.N
		case r.Context && len(w) == 1:
			c.contexts1[w[0]] = r.N
		case r.Context && len(w) == 0:
			c.contexts0 = r.N
		default:
			return nil, fmt.Errorf("count record of order %d: %w", len(w), ErrMalformedInput)
		}
	}
	return c, nil
}

// restore replaces c's tables with those of other.
func (c *Counts) restore(other *Counts) {
	*c = *other
}
