package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ieee0824/trigramlm/language"
)

func newARPACmd(a *app) *cobra.Command {
	var (
		modelPath string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "arpa --model MODEL",
		Short: "Export a backoff-add-lambda model in ARPA format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := loadEstimator(a, modelPath, false)
			if err != nil {
				return err
			}
			m, ok := est.(*language.BackoffAddLambda)
			if !ok {
				return fmt.Errorf("ARPA export of %s models: %w", est.Family(), language.ErrNotImplemented)
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := language.WriteARPA(w, m); err != nil {
				return fmt.Errorf("write ARPA: %w", err)
			}
			a.logger.Info("wrote ARPA model", "path", out, "vocab_size", m.Vocab().Size())
			return nil
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "model.gob", "model path")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
