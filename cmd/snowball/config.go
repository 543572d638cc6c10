// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/provider"
	"github.com/pdiddy/snowball/internal/pubmed"
	"github.com/pdiddy/snowball/internal/retry"
	"github.com/pdiddy/snowball/internal/secrets"
	"github.com/pdiddy/snowball/internal/semantic"
	"github.com/pdiddy/snowball/internal/snowball"
	"github.com/pdiddy/snowball/pkg/types"
)

// Config keys. Each is also readable from SNOWBALL_<KEY> with dots as
// underscores, e.g. SNOWBALL_EXPANSION_TOP_K.
const (
	keyTopK       = "expansion.top_k"
	keyMinSize    = "expansion.min_size"
	keyMaxRounds  = "expansion.max_rounds"
	keyFetchDelay = "expansion.fetch_delay"

	keyMaxAttempts = "retry.max_attempts"
	keyBaseDelay   = "retry.base_delay"
	keyMaxDelay    = "retry.max_delay"
	keyJitter      = "retry.jitter_fraction"

	keyUserAgent = "http.user_agent"
	keyProvider  = "provider"

	keyAPIKey      = "pubmed.api_key"
	keyEmail       = "pubmed.email"
	keyTimeout     = "pubmed.timeout"
	keyCallTimeout = "pubmed.call_timeout"
	keyCacheSize   = "pubmed.cache_size"

	keyS2APIKey      = "semantic_scholar.api_key"
	keyS2Timeout     = "semantic_scholar.timeout"
	keyS2CallTimeout = "semantic_scholar.call_timeout"
	keyS2CacheSize   = "semantic_scholar.cache_size"
	keyS2Rate        = "semantic_scholar.requests_per_second"
	keyS2LinkLimit   = "semantic_scholar.link_limit"

	keyPapersDir     = "acquisition.papers_dir"
	keyDownloadDelay = "acquisition.download_delay"
	keyAcqTimeout    = "acquisition.timeout"
	keyAcqEmail      = "acquisition.email"
)

// Provider names accepted by --provider.
const (
	providerPubMed   = "pubmed"
	providerSemantic = "semantic"
)

// ncbiAPIKeyEnv is the conventional environment variable for the NCBI key,
// usually set through .env.
const ncbiAPIKeyEnv = "NCBI_API_KEY"

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyTopK, 10)
	v.SetDefault(keyMinSize, 100)
	v.SetDefault(keyMaxRounds, 10)
	v.SetDefault(keyFetchDelay, time.Second)

	v.SetDefault(keyMaxAttempts, 3)
	v.SetDefault(keyBaseDelay, time.Second)
	v.SetDefault(keyMaxDelay, 60*time.Second)
	v.SetDefault(keyJitter, 0.1)

	v.SetDefault(keyUserAgent, "snowball/"+version)

	v.SetDefault(keyTimeout, 60*time.Second)
	v.SetDefault(keyCallTimeout, 30*time.Second)
	v.SetDefault(keyCacheSize, 4096)

	v.SetDefault(keyProvider, providerPubMed)
	v.SetDefault(keyS2Timeout, 60*time.Second)
	v.SetDefault(keyS2CallTimeout, 30*time.Second)
	v.SetDefault(keyS2CacheSize, 4096)
	v.SetDefault(keyS2Rate, 1.0)
	v.SetDefault(keyS2LinkLimit, 1000)

	v.SetDefault(keyPapersDir, "papers")
	v.SetDefault(keyDownloadDelay, time.Second)
	v.SetDefault(keyAcqTimeout, 60*time.Second)
}

// bindFlags binds the named flags of cmd to config keys. Binding happens
// when a command runs so commands sharing a flag name do not clobber each
// other's bindings.
func bindFlags(cmd *cobra.Command, bindings map[string]string) error {
	for flag, key := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig assembles the stage configuration from v. Credentials fall back
// to NCBI_API_KEY and then to the secrets directory.
func loadConfig(v *viper.Viper, s map[string]string) types.SnowballConfig {
	ua := v.GetString(keyUserAgent)
	cfg := types.SnowballConfig{
		Expansion: types.ExpansionConfig{
			TopK:       v.GetInt(keyTopK),
			MinSize:    v.GetInt(keyMinSize),
			MaxRounds:  v.GetInt(keyMaxRounds),
			FetchDelay: v.GetDuration(keyFetchDelay),
		},
		Retry: types.RetryConfig{
			MaxAttempts:    v.GetInt(keyMaxAttempts),
			BaseDelay:      v.GetDuration(keyBaseDelay),
			MaxDelay:       v.GetDuration(keyMaxDelay),
			JitterFraction: v.GetFloat64(keyJitter),
		},
		PubMed: types.PubMedConfig{
			HTTPConfig:  types.HTTPConfig{Timeout: v.GetDuration(keyTimeout), UserAgent: ua},
			APIKey:      v.GetString(keyAPIKey),
			Email:       v.GetString(keyEmail),
			CallTimeout: v.GetDuration(keyCallTimeout),
			CacheSize:   v.GetInt(keyCacheSize),
		},
		Provider: strings.ToLower(v.GetString(keyProvider)),
		Semantic: types.SemanticScholarConfig{
			HTTPConfig:        types.HTTPConfig{Timeout: v.GetDuration(keyS2Timeout), UserAgent: ua},
			APIKey:            v.GetString(keyS2APIKey),
			RequestsPerSecond: v.GetFloat64(keyS2Rate),
			CallTimeout:       v.GetDuration(keyS2CallTimeout),
			CacheSize:         v.GetInt(keyS2CacheSize),
			LinkLimit:         v.GetInt(keyS2LinkLimit),
		},
		Acquisition: types.AcquisitionConfig{
			HTTPConfig:    types.HTTPConfig{Timeout: v.GetDuration(keyAcqTimeout), UserAgent: ua},
			DownloadDelay: v.GetDuration(keyDownloadDelay),
			PapersDir:     v.GetString(keyPapersDir),
			Email:         v.GetString(keyAcqEmail),
		},
	}
	if cfg.PubMed.APIKey == "" {
		cfg.PubMed.APIKey = os.Getenv(ncbiAPIKeyEnv)
	}
	secrets.Apply(s, &cfg)
	return cfg
}

// newProvider returns the static graph provider when graphPath is set and
// the configured remote provider otherwise.
func newProvider(cfg types.SnowballConfig, graphPath string) (provider.Provider, error) {
	if graphPath != "" {
		logger.Info("Using static graph", "path", graphPath)
		return provider.LoadStatic(graphPath)
	}
	switch cfg.Provider {
	case "", providerPubMed:
		if cfg.PubMed.APIKey == "" {
			logger.Debug("No NCBI API key; limited to 3 requests per second")
		}
		return pubmed.New(&http.Client{Timeout: cfg.PubMed.Timeout}, cfg.PubMed)
	case providerSemantic:
		if cfg.Semantic.APIKey == "" {
			logger.Debug("No Semantic Scholar API key; using the shared unauthenticated pool")
		}
		return semantic.New(&http.Client{Timeout: cfg.Semantic.Timeout}, cfg.Semantic)
	default:
		return nil, fmt.Errorf("unknown provider %q (want %s or %s)", cfg.Provider, providerPubMed, providerSemantic)
	}
}

// pipeline holds the wired stages shared by every command.
type pipeline struct {
	cfg      types.SnowballConfig
	articles *snowball.ArticleFetcher
	expander *snowball.Expander
	fetcher  *snowball.Fetcher
}

func newPipeline(cfg types.SnowballConfig, graphPath string) (*pipeline, error) {
	p, err := newProvider(cfg, graphPath)
	if err != nil {
		return nil, err
	}
	af := snowball.NewArticleFetcher(p, retry.New(cfg.Retry, logger), cfg.Expansion.FetchDelay)
	return &pipeline{
		cfg:      cfg,
		articles: af,
		expander: snowball.NewExpander(af, cfg.Expansion, logger),
		fetcher:  snowball.NewFetcher(af, logger),
	}, nil
}

// parseIDs normalises command-line identifiers into a set.
func parseIDs(args []string) (types.IDSet, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("provide one or more PubMed identifiers")
	}
	ids := types.NewIDSet()
	for _, a := range args {
		id := types.NormalizeID(a)
		if id == "" {
			return nil, fmt.Errorf("empty identifier in %q", args)
		}
		ids.Add(id)
	}
	return ids, nil
}

// openOutput returns stdout, or a created file when path is set.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}
