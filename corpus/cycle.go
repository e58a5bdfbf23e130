package corpus

import (
	"fmt"
	"math/rand"

	"github.com/ieee0824/trigramlm/internal/errs"
)

// ErrEmptyCorpus is returned when cycling over a corpus with no tokens.
var ErrEmptyCorpus = errs.ErrEmptyCorpus

// Cycle draws trigrams from a corpus forever, one pass after another.
//
// Without randomization the corpus is re-read on every pass and never held
// in memory. With randomization all trigrams of one pass are materialized
// once and each pass visits them in a fresh random order.
type Cycle struct {
	src   Source
	vocab *Vocab

	reader *Reader // sequential mode

	pool []Trigram // randomized mode
	perm []int
	pos  int
	rng  *rand.Rand
}

// NewCycle starts an endless stream over src. rng is only used when
// randomize is set; nil selects a source seeded with 1.
func NewCycle(src Source, vocab *Vocab, randomize bool, rng *rand.Rand) (*Cycle, error) {
	c := &Cycle{src: src, vocab: vocab}
	if !randomize {
		n, err := CountTokens(src)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrEmptyCorpus
		}
		return c, nil
	}

	pool, err := ReadTrigrams(src, vocab)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrEmptyCorpus
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	c.pool = pool
	c.rng = rng
	c.perm = rng.Perm(len(pool))
	return c, nil
}

// Next returns the next trigram, starting a new pass when the current one
// is exhausted.
func (c *Cycle) Next() (Trigram, error) {
	if c.pool != nil {
		if c.pos == len(c.perm) {
			c.perm = c.rng.Perm(len(c.pool))
			c.pos = 0
		}
		t := c.pool[c.perm[c.pos]]
		c.pos++
		return t, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		if c.reader == nil {
			r, err := Open(c.src, c.vocab)
			if err != nil {
				return Trigram{}, err
			}
			c.reader = r
		}
		if c.reader.Next() {
			return c.reader.Trigram(), nil
		}
		err := c.reader.Err()
		c.reader.Close()
		c.reader = nil
		if err != nil {
			return Trigram{}, err
		}
	}
	return Trigram{}, fmt.Errorf("corpus became empty while cycling: %w", ErrEmptyCorpus)
}

// Close releases the corpus held open by a sequential cycle.
func (c *Cycle) Close() error {
	if c.reader == nil {
		return nil
	}
	err := c.reader.Close()
	c.reader = nil
	return err
}
