package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/ieee0824/trigramlm/corpus"
	"github.com/ieee0824/trigramlm/language"
)

func newProbCmd(a *app) *cobra.Command {
	var (
		modelPath string
		arpa      bool
	)
	cmd := &cobra.Command{
		Use:   "prob --model MODEL FILE...",
		Short: "Print the log probability of each file",
		Long: `Print the natural-log probability of each file under a trained model,
followed by the number of trigrams scored and the file name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := loadEstimator(a, modelPath, arpa)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sum, count := 0.0, 0
			for _, path := range args {
				lp, n, err := language.CorpusLogProb(est, corpus.File(path))
				if err != nil {
					return fmt.Errorf("score %s: %w", path, err)
				}
				fmt.Fprintf(out, "%g\t%d\t%s\n", lp, n, path)
				sum += lp
				count += n
			}
			a.logger.Info("scored files", "files", len(args), "trigrams", count,
				"log_prob", sum, "bits_per_token", -sum/math.Ln2/float64(max(count, 1)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "model.gob", "model path")
	cmd.Flags().BoolVar(&arpa, "arpa", false, "model is an ARPA file")
	return cmd
}

func loadEstimator(a *app, path string, arpa bool) (language.Estimator, error) {
	if arpa {
		m, err := language.LoadARPAFile(path)
		if err != nil {
			return nil, fmt.Errorf("load ARPA model: %w", err)
		}
		return m, nil
	}
	est, info, err := language.LoadFile(path,
		language.WithLogger(a.logger),
		language.WithNormalizerCache(a.cfg.Model.NormalizerCache))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	a.logger.Debug("loaded model", "path", path, "id", info.ID, "family", info.Family, "created", info.Created)
	return est, nil
}
