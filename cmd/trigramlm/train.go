package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ieee0824/trigramlm"
	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/language"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		out        string
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "train [flags] CORPUS",
		Short: "Train a model on a corpus file",
		Long: `Train a model on a whitespace-tokenized corpus, one sentence per line,
and save it as a gob snapshot.

Examples:
  trigramlm train --family add-lambda --lambda 0.1 --vocab vocab.txt -o lm.gob train.txt
  trigramlm train --family log-linear --lexicon words-10.txt --l2 1 -o ll.gob train.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			m, t := &a.cfg.Model, &a.cfg.Train
			if f.Changed("family") {
				m.Family, _ = f.GetString("family")
			}
			if f.Changed("lambda") {
				m.Lambda, _ = f.GetFloat64("lambda")
			}
			if f.Changed("l2") {
				m.L2, _ = f.GetFloat64("l2")
			}
			if f.Changed("vocab") {
				m.Vocab, _ = f.GetString("vocab")
			}
			if f.Changed("lexicon") {
				m.Lexicon, _ = f.GetString("lexicon")
			}
			if f.Changed("epochs") {
				t.Epochs, _ = f.GetInt("epochs")
			}
			if f.Changed("batch-size") {
				t.BatchSize, _ = f.GetInt("batch-size")
			}
			if f.Changed("learning-rate") {
				t.LearningRate, _ = f.GetFloat64("learning-rate")
			}
			if f.Changed("randomize") {
				t.Randomize, _ = f.GetBool("randomize")
			}
			if f.Changed("seed") {
				t.Seed, _ = f.GetInt64("seed")
			}

			opts := []trigramlm.Option{trigramlm.WithLogger(a.logger)}
			if t.Progress && !noProgress {
				opts = append(opts, trigramlm.WithReporter(language.NewBarReporter(cmd.ErrOrStderr())))
			}
			b, err := trigramlm.NewBuilder(a.cfg, opts...)
			if err != nil {
				return err
			}
			res, err := b.Train(corpus.File(args[0]))
			if err != nil {
				return err
			}
			info, err := language.SaveFile(out, res.Model)
			if err != nil {
				return fmt.Errorf("save model: %w", err)
			}
			a.logger.Info("saved model", "path", out, "id", info.ID, "family", info.Family)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", info.ID, info.Family, out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "model.gob", "output model path")
	f.BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	f.String("family", "", "estimator family: uniform, add-lambda, backoff-add-lambda, log-linear")
	f.Float64("lambda", 0, "add-λ smoothing constant")
	f.Float64("l2", 0, "L2 regularization strength (log-linear)")
	f.String("vocab", "", "vocabulary file, one word per line")
	f.String("lexicon", "", "embedding lexicon file (log-linear)")
	f.Int("epochs", 0, "training epochs (log-linear)")
	f.Int("batch-size", 0, "minibatch size (log-linear)")
	f.Float64("learning-rate", 0, "SGD learning rate (log-linear)")
	f.Bool("randomize", false, "reshuffle trigrams every epoch (log-linear)")
	f.Int64("seed", 0, "shuffle seed (log-linear)")
	return cmd
}
