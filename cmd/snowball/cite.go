// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/cite"
)

var citeCmd = &cobra.Command{
	Use:   "cite <pmid...>",
	Short: "Fetch bibliography for PMIDs and write a citation file",
	Long: `Cite fetches the bibliographic record of each identifier, without any
expansion, and renders the records as CSL-YAML (for Pandoc), BibTeX or RIS.`,
	Example: `  snowball cite 31875792 33594067 --format bibtex --output refs.bib`,
	RunE:    runCite,
}

func init() {
	citeCmd.Flags().String("format", "csl", "citation format: csl, bibtex, ris")
	citeCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	citeCmd.Flags().Int("max-retries", 3, "attempts per provider call")

	rootCmd.AddCommand(citeCmd)
}

func runCite(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := bindFlags(cmd, map[string]string{"max-retries": keyMaxAttempts}); err != nil {
		return err
	}
	formatName, _ := cmd.Flags().GetString("format")
	format, err := cite.ParseFormat(formatName)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("output")
	graphPath, _ := cmd.Flags().GetString("graph")

	p, err := newPipeline(loadConfig(viper.GetViper(), loadedSecrets), graphPath)
	if err != nil {
		return err
	}

	res, err := p.fetcher.Fetch(cmd.Context(), ids)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		logger.Warn("No citation written", "id", f.ID, "err", f.Err)
	}

	w, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}
	if err := cite.Write(w, format, res.Articles); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}
