// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/cite"
	"github.com/pdiddy/snowball/internal/output"
	"github.com/pdiddy/snowball/internal/snowball"
	"github.com/pdiddy/snowball/pkg/types"
)

var expandCmd = &cobra.Command{
	Use:   "expand <pmid...>",
	Short: "Expand seed PMIDs through related articles and rank the result",
	Long: `Expand grows the seed set by following each article's related-article
links, taking fewer links per article as the set grows, until the set holds
at least --min-size identifiers or stops growing. It then fetches the
bibliography of every member and ranks the articles by inbound degree: the
number of set members that cite them or that they cite.

Identifiers that cannot be fetched after retries stay in the set and are
reported as failures.`,
	Example: `  snowball expand 31875792 --min-size 50
  snowball expand 31875792 33594067 --rank 20 --format json --output report.json
  snowball expand 31875792 --format bibtex --output refs.bib
  snowball expand 1 --graph testdata/graph.yaml --ids-only
  snowball expand 31875792 --provider semantic --min-size 30`,
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().Int("top-k", 10, "maximum related articles taken per article per round")
	expandCmd.Flags().Int("min-size", 100, "stop once the set holds this many identifiers")
	expandCmd.Flags().Int("max-retries", 3, "attempts per provider call")
	expandCmd.Flags().Int("max-rounds", 10, "maximum expansion rounds")
	expandCmd.Flags().Duration("fetch-delay", 0, "pause after each successful article fetch (default 1s)")
	expandCmd.Flags().Int("rank", 0, "keep only the top N ranked articles (0 = all)")
	expandCmd.Flags().String("format", "table", "output format: table, json, yaml, csl, bibtex, ris")
	expandCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	expandCmd.Flags().Bool("ids-only", false, "skip the bibliography pass and print the expanded set")

	rootCmd.AddCommand(expandCmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	seeds, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := bindFlags(cmd, map[string]string{
		"top-k":       keyTopK,
		"min-size":    keyMinSize,
		"max-retries": keyMaxAttempts,
		"max-rounds":  keyMaxRounds,
	}); err != nil {
		return err
	}
	if cmd.Flags().Changed("fetch-delay") {
		if err := bindFlags(cmd, map[string]string{"fetch-delay": keyFetchDelay}); err != nil {
			return err
		}
	}

	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if err := validateExpandFormat(format); err != nil {
		return err
	}
	rank, _ := cmd.Flags().GetInt("rank")
	outPath, _ := cmd.Flags().GetString("output")
	graphPath, _ := cmd.Flags().GetString("graph")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	cfg := loadConfig(viper.GetViper(), loadedSecrets)
	p, err := newPipeline(cfg, graphPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}

	if idsOnly {
		exp, err := p.expander.Expand(ctx, seeds)
		if err != nil {
			closeOut()
			return err
		}
		reportAborted(exp)
		if err := writeIDs(w, format, exp.IDs); err != nil {
			closeOut()
			return err
		}
		return closeOut()
	}

	rep, err := snowball.Collect(ctx, p.expander, p.fetcher, seeds)
	if err != nil {
		closeOut()
		return err
	}
	reportAborted(rep.Expansion)
	if n := len(rep.Result.Failures); n > 0 {
		logger.Warnf("%d article(s) could not be fetched and are unranked", n)
	}

	ranked := snowball.RankByInboundDegree(rep.Result, rank)
	if err := writeRanking(w, format, output.NewReport(seeds, rep, ranked)); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func validateExpandFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	}
	if _, err := cite.ParseFormat(format); err != nil {
		return fmt.Errorf("unknown format %q (want table, json, yaml, csl, bibtex or ris)", format)
	}
	return nil
}

func reportAborted(exp snowball.Expansion) {
	if exp.Aborted != nil {
		logger.Warn("Expansion stopped early; results cover the last completed round",
			"round", exp.Aborted.Round, "err", exp.Aborted.Err)
	}
}

func writeIDs(w io.Writer, format string, ids types.IDSet) error {
	switch format {
	case "json":
		return output.WriteJSON(w, ids)
	case "yaml":
		return output.WriteYAML(w, ids)
	default:
		return output.WriteIDs(w, ids)
	}
}

func writeRanking(w io.Writer, format string, r output.Report) error {
	switch format {
	case "table":
		return output.WriteRankingTable(w, r.Ranking)
	case "json":
		return output.WriteJSON(w, r)
	case "yaml":
		return output.WriteYAML(w, r)
	}
	f, err := cite.ParseFormat(format)
	if err != nil {
		return err
	}
	articles := make([]types.Article, len(r.Ranking))
	for i, rk := range r.Ranking {
		articles[i] = rk.Article
	}
	return cite.Write(w, f, articles)
}
