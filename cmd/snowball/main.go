// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the snowball CLI. It expands a seed set
// of PubMed identifiers through related-article links, fetches bibliography
// for the result, ranks it, and renders tables, reports and citation files.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is configured from --verbose before any command runs.
var logger = newLogger(log.InfoLevel)

// rootCmd is the base command for the snowball CLI.
var rootCmd = &cobra.Command{
	Use:   "snowball",
	Short: "Snowball-sample the PubMed related-article graph",
	Long: `snowball grows a set of seed PubMed identifiers by repeatedly following
each article's related-article links until the set reaches a target size,
then fetches bibliographic metadata for every member and ranks the articles
by how often they are cited by, or cite, other members of the set.

Results can be printed as a table, written as JSON or YAML reports, or
exported as citation files (CSL-YAML, BibTeX, RIS). Open-access PDFs can be
downloaded with the acquire command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger.SetLevel(log.DebugLevel)
		}

		// A missing .env file is normal.
		_ = godotenv.Load()

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("Loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./snowball.yaml or ~/.config/snowball/snowball.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of key files (ncbi-api-key, ncbi-email, openalex-email, semantic-scholar-api-key)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("provider", providerPubMed, "article source: pubmed or semantic")
	rootCmd.PersistentFlags().String("graph", "", "read articles from a static YAML graph instead of --provider")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("snowball")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "snowball"))
		}
	}

	viper.SetEnvPrefix("SNOWBALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())
	_ = viper.BindPFlag(keyProvider, rootCmd.PersistentFlags().Lookup("provider"))

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", "path", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
