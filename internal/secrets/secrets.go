// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, ncbi-email, openalex-email and
// semantic-scholar-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/snowball/pkg/types"
)

// Key file names.
const (
	NCBIAPIKey    = "ncbi-api-key"
	NCBIEmail     = "ncbi-email"
	OpenAlexEmail = "openalex-email"
	SemanticKey   = "semantic-scholar-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort. A nil logger
// discards warnings.
func Load(dir string, logger *log.Logger) (map[string]string, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", "name", name, "err", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials in cfg from loaded secrets. Values already set in
// cfg (from flags, environment or the config file) win.
func Apply(s map[string]string, cfg *types.SnowballConfig) {
	setIfEmpty(&cfg.PubMed.APIKey, s[NCBIAPIKey])
	setIfEmpty(&cfg.PubMed.Email, s[NCBIEmail])
	setIfEmpty(&cfg.Acquisition.Email, s[OpenAlexEmail])
	setIfEmpty(&cfg.Semantic.APIKey, s[SemanticKey])
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
