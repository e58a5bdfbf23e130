package language

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ieee0824/trigramlm/corpus"
)

// countModel is the state shared by the count-based estimators.
type countModel struct {
	vocab  *corpus.Vocab
	counts *Counts
	logger *slog.Logger
}

func newCountModel(vocab *corpus.Vocab, opts []Option) countModel {
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	return countModel{vocab: vocab, counts: NewCounts(), logger: s.logger}
}

// Vocab returns the model vocabulary.
func (m *countModel) Vocab() *corpus.Vocab { return m.vocab }

// Counts returns the count store. It must not be modified.
func (m *countModel) Counts() *Counts { return m.counts }

// Train recounts every n-gram of src. Counts from earlier calls are discarded.
func (m *countModel) Train(src corpus.Source) error {
	m.logger.Info("training count model", "vocab_size", m.vocab.Size())
	return m.counts.countFrom(src, m.vocab, m.logger)
}

func (m *countModel) size() float64 { return float64(m.vocab.Size()) }

// Uniform assigns 1/|V| to every word regardless of context.
type Uniform struct {
	countModel
}

// NewUniform creates a uniform estimator.
func NewUniform(vocab *corpus.Vocab, opts ...Option) *Uniform {
	return &Uniform{countModel: newCountModel(vocab, opts)}
}

// Family returns FamilyUniform.
func (m *Uniform) Family() Family { return FamilyUniform }

// Prob returns 1/|V| for every trigram.
func (m *Uniform) Prob(x, y, z string) float64 { return 1 / m.size() }

// LogProb returns −log |V|.
func (m *Uniform) LogProb(x, y, z string) float64 { return -math.Log(m.size()) }

// AddLambda is add-λ smoothing of the trigram relative frequency:
//
//	p(z | x,y) = (c(x,y,z) + λ) / (c(x,y) + λ|V|)
type AddLambda struct {
	countModel
	lambda float64
}

// NewAddLambda creates an add-λ estimator. lambda must be non-negative.
func NewAddLambda(vocab *corpus.Vocab, lambda float64, opts ...Option) (*AddLambda, error) {
	if err := checkLambda(lambda); err != nil {
		return nil, err
	}
	return &AddLambda{countModel: newCountModel(vocab, opts), lambda: lambda}, nil
}

func checkLambda(lambda float64) error {
	if lambda < 0 || math.IsNaN(lambda) {
		return fmt.Errorf("lambda %v must be non-negative: %w", lambda, ErrInvalidParameter)
	}
	return nil
}

// Family returns FamilyAddLambda.
func (m *AddLambda) Family() Family { return FamilyAddLambda }

// Lambda returns the smoothing constant.
func (m *AddLambda) Lambda() float64 { return m.lambda }

// Prob returns the add-λ estimate. With λ = 0 and an unseen context the
// estimate is the λ→0 limit 1/|V|.
func (m *AddLambda) Prob(x, y, z string) float64 {
	return addLambda(m.counts, m.lambda, m.size(), x, y, z)
}

// LogProb is the natural log of Prob.
func (m *AddLambda) LogProb(x, y, z string) float64 { return math.Log(m.Prob(x, y, z)) }

func addLambda(c *Counts, lambda, v float64, x, y, z string) float64 {
	den := float64(c.Context(x, y)) + lambda*v
	if den == 0 {
		return 1 / v
	}
	return (float64(c.Event(x, y, z)) + lambda) / den
}

// BackoffAddLambda smooths each order toward the next lower one:
//
//	p1(z)     = (c(z) + λ) / (c() + λ|V|)
//	p2(z|y)   = (c(y,z) + λ|V|·p1(z)) / (c(y) + λ|V|)
//	p3(z|x,y) = (c(x,y,z) + λ|V|·p2(z|y)) / (c(x,y) + λ|V|)
//
// For λ > 0 the estimates sum to one over the vocabulary for every context.
type BackoffAddLambda struct {
	countModel
	lambda float64
}

// NewBackoffAddLambda creates a backoff add-λ estimator. lambda must be
// non-negative.
func NewBackoffAddLambda(vocab *corpus.Vocab, lambda float64, opts ...Option) (*BackoffAddLambda, error) {
	if err := checkLambda(lambda); err != nil {
		return nil, err
	}
	return &BackoffAddLambda{countModel: newCountModel(vocab, opts), lambda: lambda}, nil
}

// Family returns FamilyBackoffAddLambda.
func (m *BackoffAddLambda) Family() Family { return FamilyBackoffAddLambda }

// Lambda returns the smoothing constant.
func (m *BackoffAddLambda) Lambda() float64 { return m.lambda }

// Prob returns p3(z | x,y).
//
// When p1(z) is exactly zero (λ = 0 and z never observed) the raw OOV
// relative frequency and the OOV counts stand in for z at every order.
func (m *BackoffAddLambda) Prob(x, y, z string) float64 {
	c := m.counts
	lv := m.lambda * m.size()

	p1 := unigramBackoff(c, m.lambda, m.size(), z)
	if p1 == 0 {
		z = corpus.OOV
		p1 = float64(c.Event(z)) / float64(c.Event())
	}
	p2 := backoffLevel(c.Event(y, z), c.Context(y), lv, p1)
	return backoffLevel(c.Event(x, y, z), c.Context(x, y), lv, p2)
}

// LogProb is the natural log of Prob.
func (m *BackoffAddLambda) LogProb(x, y, z string) float64 { return math.Log(m.Prob(x, y, z)) }

func unigramBackoff(c *Counts, lambda, v float64, z string) float64 {
	den := float64(c.Event()) + lambda*v
	if den == 0 {
		return 1 / v
	}
	return (float64(c.Event(z)) + lambda) / den
}

// backoffLevel interpolates a count ratio with a lower-order estimate. An
// empty denominator passes the lower-order estimate through.
func backoffLevel(event, context int, lv, lower float64) float64 {
	den := float64(context) + lv
	if den == 0 {
		return lower
	}
	return (float64(event) + lv*lower) / den
}

// backoffWeight is the mass λ|V|/(c(h)+λ|V|) a history h hands to the
// lower order.
func backoffWeight(context int, lv float64) float64 {
	den := float64(context) + lv
	if den == 0 {
		return 1
	}
	return lv / den
}
