// Package language implements trigram language models: count-based
// smoothed estimators, an embedding log-linear model with its SGD trainer,
// model persistence and ARPA export.
package language

import (
	"fmt"
	"log/slog"

	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/internal/errs"
	"github.com/ieee0824/trigramlm/lexicon"
)

// Errors returned by constructors and loaders.
var (
	ErrInvalidParameter = errs.ErrInvalidParameter
	ErrNotImplemented   = errs.ErrNotImplemented
	ErrMalformedInput   = errs.ErrMalformedInput
)

// Family names a kind of estimator.
type Family string

const (
	FamilyUniform          Family = "uniform"
	FamilyAddLambda        Family = "add-lambda"
	FamilyBackoffAddLambda Family = "backoff-add-lambda"
	FamilyLogLinear        Family = "log-linear"
	FamilyARPA             Family = "arpa"
)

// Estimator is a trigram model p(z | x, y) over a fixed vocabulary.
// Callers pass words already mapped through Vocab().Map.
type Estimator interface {
	Family() Family
	Vocab() *corpus.Vocab
	// Prob returns p(z | x, y) in [0, 1].
	Prob(x, y, z string) float64
	// LogProb returns the natural log of Prob.
	LogProb(x, y, z string) float64
}

// CountBased is implemented by estimators whose parameters are n-gram
// counts. Train discards any previous counts.
type CountBased interface {
	Estimator
	Train(src corpus.Source) error
	Counts() *Counts
}

// Params carries the hyperparameters New may need.
type Params struct {
	Lambda  float64        // add-λ families
	L2      float64        // log-linear
	Lexicon *lexicon.Table // log-linear
}

type settings struct {
	logger    *slog.Logger
	cacheSize int
}

func defaultSettings() settings {
	return settings{
		logger:    slog.Default(),
		cacheSize: defaultNormalizerCacheSize,
	}
}

// Option configures an estimator.
type Option func(*settings)

// WithLogger sets the logger used while training and counting.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNormalizerCache sets how many per-context log-normalizers the
// log-linear model memoizes. n <= 0 disables the cache.
func WithNormalizerCache(n int) Option {
	return func(s *settings) {
		s.cacheSize = n
	}
}

// New creates an untrained estimator of the given family.
func New(family Family, vocab *corpus.Vocab, p Params, opts ...Option) (Estimator, error) {
	var (
		est Estimator
		err error
	)
	switch family {
	case FamilyUniform:
		est = NewUniform(vocab, opts...)
	case FamilyAddLambda:
		est, err = NewAddLambda(vocab, p.Lambda, opts...)
	case FamilyBackoffAddLambda:
		est, err = NewBackoffAddLambda(vocab, p.Lambda, opts...)
	case FamilyLogLinear:
		est, err = NewLogLinear(vocab, p.Lexicon, p.L2, opts...)
	case FamilyARPA:
		return nil, fmt.Errorf("%s models are read with LoadARPA: %w", family, ErrNotImplemented)
	default:
		return nil, fmt.Errorf("estimator family %q: %w", family, ErrNotImplemented)
	}
	if err != nil {
		return nil, err
	}
	return est, nil
}

// SentenceLogProb returns the log probability of a sentence under est:
// every word, then EOS, scored after a BOS BOS history. Words outside the
// vocabulary are scored as OOV.
func SentenceLogProb(est Estimator, words []string) float64 {
	vocab := est.Vocab()
	x, y := corpus.BOS, corpus.BOS
	total := 0.0
	for _, w := range words {
		w = vocab.Map(w)
		total += est.LogProb(x, y, w)
		x, y = y, w
	}
	return total + est.LogProb(x, y, corpus.EOS)
}

// CorpusLogProb sums log p over every trigram of src and returns the sum
// and the number of trigrams scored.
func CorpusLogProb(est Estimator, src corpus.Source) (float64, int, error) {
	r, err := corpus.Open(src, est.Vocab())
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	total, n := 0.0, 0
	for r.Next() {
		t := r.Trigram()
		total += est.LogProb(t[0], t[1], t[2])
		n++
	}
	return total, n, r.Err()
}
