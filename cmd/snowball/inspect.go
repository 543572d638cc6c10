// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:    "inspect <pmid>",
	Short:  "Fetch one article and print its exported fields and methods",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		graphPath, _ := cmd.Flags().GetString("graph")
		p, err := newPipeline(loadConfig(viper.GetViper(), loadedSecrets), graphPath)
		if err != nil {
			return err
		}

		art, err := p.articles.Fetch(cmd.Context(), ids.Sorted()[0], true)
		if err != nil {
			return err
		}
		if err := inspect.Describe(os.Stdout, art); err != nil {
			return err
		}
		fmt.Println()
		return inspect.Describe(os.Stdout, art.Bib)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
