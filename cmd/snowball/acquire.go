// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/acquire"
	"github.com/pdiddy/snowball/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire <pmid...>",
	Short: "Download open-access PDFs for PMIDs",
	Long: `Acquire looks up each identifier's open-access full text, first in OpenAlex
and then through Europe PMC when the article has a PMC identifier, and
downloads the PDF to <papers-dir>/<pmid>.pdf with a metadata record beside
it. Existing PDFs are skipped. Articles without open-access full text are
reported and skipped.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	acquireCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	acquireCmd.Flags().String("papers-dir", "papers", "directory PDFs are written to")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	bindings := map[string]string{"papers-dir": keyPapersDir}
	if cmd.Flags().Changed("timeout") {
		bindings["timeout"] = keyAcqTimeout
	}
	if cmd.Flags().Changed("delay") {
		bindings["delay"] = keyDownloadDelay
	}
	if err := bindFlags(cmd, bindings); err != nil {
		return err
	}
	graphPath, _ := cmd.Flags().GetString("graph")

	cfg := loadConfig(viper.GetViper(), loadedSecrets)
	p, err := newPipeline(cfg, graphPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Bibliography supplies the DOI and PMCID used by the resolvers. An
	// article whose record cannot be fetched is still tried by PMID.
	res, err := p.fetcher.Fetch(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[types.ArticleID]types.Article, len(res.Articles))
	for _, a := range res.Articles {
		byID[a.ID] = a
	}
	articles := make([]types.Article, 0, ids.Len())
	for _, id := range ids.Sorted() {
		a, ok := byID[id]
		if !ok {
			a = types.Article{ID: id}
		}
		articles = append(articles, a)
	}

	q := acquire.New(&http.Client{Timeout: cfg.Acquisition.Timeout}, cfg.Acquisition, logger)
	result := q.AcquireBatch(ctx, articles)
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed acquisition", result.Failed)
	}
	return nil
}
