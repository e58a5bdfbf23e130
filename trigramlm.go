// Package trigramlm builds and trains trigram language models described by
// a config.Config.
package trigramlm

import (
	"fmt"
	"log/slog"

	"github.com/ieee0824/trigramlm/config"
	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/language"
	"github.com/ieee0824/trigramlm/lexicon"
)

// Builder turns a configuration into trained estimators.
type Builder struct {
	Config   *config.Config
	logger   *slog.Logger
	reporter language.Reporter
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger handed to estimators and the trainer.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithReporter sets the progress reporter used by the trainer.
func WithReporter(r language.Reporter) Option {
	return func(b *Builder) {
		b.reporter = r
	}
}

// NewBuilder validates cfg and creates a Builder.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		Config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Vocab loads the configured word list, or collects one from src.
func (b *Builder) Vocab(src corpus.Source) (*corpus.Vocab, error) {
	if path := b.Config.Model.Vocab; path != "" {
		v, err := corpus.LoadVocabFile(path)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		b.logger.Info("loaded vocabulary", "path", path, "size", v.Size())
		return v, nil
	}
	v, err := corpus.BuildVocab(src, b.Config.Model.MinCount)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	b.logger.Info("built vocabulary from corpus", "min_count", b.Config.Model.MinCount, "size", v.Size())
	return v, nil
}

// Lexicon loads the configured embedding table. It returns nil when no
// lexicon is configured.
func (b *Builder) Lexicon() (*lexicon.Table, error) {
	path := b.Config.Model.Lexicon
	if path == "" {
		return nil, nil
	}
	lex, err := lexicon.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	b.logger.Info("loaded lexicon", "path", path, "words", lex.Len(), "dim", lex.Dim())
	return lex, nil
}

// New creates an untrained estimator over vocab.
func (b *Builder) New(vocab *corpus.Vocab) (language.Estimator, error) {
	m := b.Config.Model
	p := language.Params{Lambda: m.Lambda, L2: m.L2}
	if language.Family(m.Family) == language.FamilyLogLinear {
		lex, err := b.Lexicon()
		if err != nil {
			return nil, err
		}
		p.Lexicon = lex
	}
	return language.New(language.Family(m.Family), vocab, p,
		language.WithLogger(b.logger),
		language.WithNormalizerCache(m.NormalizerCache))
}

// TrainConfig returns the trainer settings of the configuration.
func (b *Builder) TrainConfig() language.TrainConfig {
	t := b.Config.Train
	return language.TrainConfig{
		LearningRate: t.LearningRate,
		Epochs:       t.Epochs,
		BatchSize:    t.BatchSize,
		Randomize:    t.Randomize,
		Seed:         t.Seed,
	}
}

// Result is a trained estimator. Epochs is empty for count-based families.
type Result struct {
	Model  language.Estimator
	Epochs []language.EpochStats
}

// Train builds the vocabulary and the estimator, then fits it to src.
func (b *Builder) Train(src corpus.Source) (*Result, error) {
	vocab, err := b.Vocab(src)
	if err != nil {
		return nil, err
	}
	est, err := b.New(vocab)
	if err != nil {
		return nil, err
	}

	switch m := est.(type) {
	case language.CountBased:
		if err := m.Train(src); err != nil {
			return nil, fmt.Errorf("count corpus: %w", err)
		}
		return &Result{Model: est}, nil
	case language.Trainable:
		tr, err := language.NewTrainer(b.TrainConfig(),
			language.WithTrainerLogger(b.logger),
			language.WithReporter(b.reporter))
		if err != nil {
			return nil, err
		}
		stats, err := tr.Train(m, src)
		if err != nil {
			return nil, fmt.Errorf("train %s model: %w", est.Family(), err)
		}
		return &Result{Model: est, Epochs: stats}, nil
	}
	return nil, fmt.Errorf("estimator family %q cannot be trained: %w", est.Family(), language.ErrNotImplemented)
}
