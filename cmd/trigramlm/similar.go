package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ieee0824/trigramlm/lexicon"
)

func newSimilarCmd(a *app) *cobra.Command {
	var (
		lexPath string
		k       int
	)
	cmd := &cobra.Command{
		Use:   "similar --lexicon FILE WORD...",
		Short: "List the nearest lexicon neighbours of words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lexPath == "" {
				lexPath = a.cfg.Model.Lexicon
			}
			if lexPath == "" {
				return errors.New("no lexicon given")
			}
			lex, err := lexicon.LoadFile(lexPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range args {
				if !lex.Has(w) {
					a.logger.Warn("word not in lexicon", "word", w, "did_you_mean", lex.Suggest(w, 3))
					continue
				}
				for _, n := range lex.Similar(w, k) {
					fmt.Fprintf(out, "%s\t%s\t%.4f\n", w, n.Word, n.Similarity)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&lexPath, "lexicon", "l", "", "embedding lexicon file")
	cmd.Flags().IntVarP(&k, "k", "k", 10, "neighbours per word")
	return cmd
}
