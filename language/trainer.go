package language

import (
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ieee0824/trigramlm/corpus"
)

// Trainable is the parameter-optimization side of a model. It is used
// only by the Trainer.
type Trainable interface {
	Vocab() *corpus.Vocab
	// Params returns the trainable matrices, updated in place.
	Params() []*mat.Dense
	// L2 returns the regularization strength.
	L2() float64
	// ResetParams sets every parameter to zero.
	ResetParams()
	// AccumulateGradient adds ∇ Σ_i log p(t_i) into grads (one matrix per
	// parameter, same shapes) and returns Σ_i log p(t_i).
	AccumulateGradient(batch []corpus.Trigram, grads []*mat.Dense) float64
	// ParamsUpdated is called after every parameter step.
	ParamsUpdated()
}

// TrainConfig holds SGD hyperparameters.
type TrainConfig struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	Randomize    bool  // reshuffle the trigrams every epoch
	Seed         int64 // shuffling seed
}

// DefaultTrainConfig returns the standard schedule: 10 epochs of
// single-trigram steps at learning rate 0.1 in corpus order.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: 0.1,
		Epochs:       10,
		BatchSize:    1,
		Seed:         1,
	}
}

// Validate checks the hyperparameters.
func (c TrainConfig) Validate() error {
	if !(c.LearningRate > 0) {
		return fmt.Errorf("learning rate %v must be positive: %w", c.LearningRate, ErrInvalidParameter)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epochs %d must be positive: %w", c.Epochs, ErrInvalidParameter)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size %d must be positive: %w", c.BatchSize, ErrInvalidParameter)
	}
	return nil
}

// EpochStats summarizes one pass over the corpus.
type EpochStats struct {
	Epoch     int
	Trigrams  int
	Batches   int
	Objective float64 // Σ over batches of (Σ log p − l2·Σ‖θ‖)
}

// Trainer fits a Trainable by minibatch stochastic gradient ascent on
//
//	F_b(θ) = (mean_{i∈b} log p(z_i | x_i,y_i) − l2·Σ_θ ‖θ‖_F) / N
//
// where N is the number of training tokens. Each minibatch takes exactly
// one step θ ← θ + η∇F_b.
type Trainer struct {
	cfg      TrainConfig
	logger   *slog.Logger
	reporter Reporter
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithTrainerLogger sets the trainer's logger.
func WithTrainerLogger(l *slog.Logger) TrainerOption {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) TrainerOption {
	return func(t *Trainer) {
		if r != nil {
			t.reporter = r
		}
	}
}

// NewTrainer creates a trainer after validating cfg.
func NewTrainer(cfg TrainConfig, opts ...TrainerOption) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{
		cfg:      cfg,
		logger:   slog.Default(),
		reporter: NopReporter{},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Train resets m and runs cfg.Epochs passes over src.
func (t *Trainer) Train(m Trainable, src corpus.Source) ([]EpochStats, error) {
	m.ResetParams()

	n, err := corpus.CountTokens(src)
	if err != nil {
		return nil, fmt.Errorf("count tokens: %w", err)
	}
	if n == 0 {
		return nil, corpus.ErrEmptyCorpus
	}

	var cycle *corpus.Cycle
	if t.cfg.Randomize {
		cycle, err = corpus.NewCycle(src, m.Vocab(), true, rand.New(rand.NewSource(t.cfg.Seed)))
		if err != nil {
			return nil, err
		}
	}

	params := m.Params()
	grads := make([]*mat.Dense, len(params))
	for i, p := range params {
		r, c := p.Dims()
		grads[i] = mat.NewDense(r, c, nil)
	}
	st := &sgdState{
		model:  m,
		params: params,
		grads:  grads,
		lr:     t.cfg.LearningRate,
		n:      float64(n),
	}

	t.logger.Info("start optimizing", "tokens", n, "epochs", t.cfg.Epochs,
		"batch_size", t.cfg.BatchSize, "learning_rate", t.cfg.LearningRate, "l2", m.L2(),
		"randomize", t.cfg.Randomize)

	stats := make([]EpochStats, 0, t.cfg.Epochs)
	batch := make([]corpus.Trigram, 0, t.cfg.BatchSize)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		t.reporter.StartEpoch(epoch, n)
		es := EpochStats{Epoch: epoch}

		flush := func() {
			es.Objective += st.step(batch)
			es.Trigrams += len(batch)
			es.Batches++
			t.reporter.Advance(len(batch))
			batch = batch[:0]
		}

		if cycle != nil {
			for i := 0; i < n; i++ {
				tri, err := cycle.Next()
				if err != nil {
					return stats, err
				}
				batch = append(batch, tri)
				if len(batch) == t.cfg.BatchSize {
					flush()
				}
			}
		} else {
			r, err := corpus.Open(src, m.Vocab())
			if err != nil {
				return stats, fmt.Errorf("open corpus: %w", err)
			}
			for r.Next() {
				batch = append(batch, r.Trigram())
				if len(batch) == t.cfg.BatchSize {
					flush()
				}
			}
			err = r.Err()
			r.Close()
			if err != nil {
				return stats, fmt.Errorf("read corpus: %w", err)
			}
		}
		if len(batch) > 0 {
			flush()
		}

		t.reporter.FinishEpoch(es)
		t.logger.Info("epoch finished", "epoch", epoch, "objective", es.Objective, "batches", es.Batches)
		stats = append(stats, es)
	}
	t.logger.Info("done optimizing")
	return stats, nil
}

type sgdState struct {
	model  Trainable
	params []*mat.Dense
	grads  []*mat.Dense
	lr     float64
	n      float64
}

// step takes one gradient step on the batch and returns
// Σ log p − l2·Σ‖θ‖ evaluated before the step.
func (s *sgdState) step(batch []corpus.Trigram) float64 {
	for _, g := range s.grads {
		g.Zero()
	}
	logLik := s.model.AccumulateGradient(batch, s.grads)

	l2 := s.model.L2()
	invB := 1 / float64(len(batch))
	penalty := 0.0
	for i, p := range s.params {
		norm := mat.Norm(p, 2)
		penalty += norm

		// ∇F = (mean ∇log p − l2·θ/‖θ‖) / N ; the norm's subgradient at 0 is 0
		g := s.grads[i]
		g.Scale(invB, g)
		gd, pd := g.RawMatrix().Data, p.RawMatrix().Data
		if l2 > 0 && norm > 0 {
			floats.AddScaled(gd, -l2/norm, pd)
		}
		floats.AddScaled(pd, s.lr/s.n, gd)
	}
	s.model.ParamsUpdated()
	return logLik - l2*penalty
}
