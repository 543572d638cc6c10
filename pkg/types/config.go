// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "snowball/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetryConfig holds the backoff policy applied to every provider fetch.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per operation (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the delay before the first retry (default 1s). It doubles
	// on every further retry.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay caps the computed delay before jitter (default 60s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// JitterFraction adds up to JitterFraction*delay of uniform random jitter (default 0.1,
	// negative disables jitter).
	JitterFraction float64 `json:"jitter_fraction" yaml:"jitter_fraction"`
}

// ExpansionConfig holds settings for the graph expansion stage.
type ExpansionConfig struct {
	// TopK is the upper bound on related identifiers taken per article per round (default 10).
	TopK int `json:"top_k" yaml:"top_k"`

	// MinSize is the identifier-set size at which expansion stops (default 100).
	MinSize int `json:"min_size" yaml:"min_size"`

	// MaxRounds caps the number of expansion rounds (default 10).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// FetchDelay is the fixed pause after each successful article fetch (default 1s).
	FetchDelay time.Duration `json:"fetch_delay" yaml:"fetch_delay"`
}

// PubMedConfig holds settings for the NCBI E-utilities client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the optional NCBI API key; it raises the request budget
	// from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email identifies the caller to NCBI (tool/email parameters).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// CallTimeout bounds a single E-utilities call (default 30s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// CacheSize is the number of responses kept in the in-run cache (default 4096).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// SemanticScholarConfig holds settings for the Semantic Scholar Graph API client.
type SemanticScholarConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the optional Semantic Scholar API key, sent as x-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RequestsPerSecond paces calls (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// CallTimeout bounds a single API call (default 30s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// CacheSize is the number of responses kept in the in-run cache (default 4096).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// LinkLimit caps the citations, references and recommendations read per article (default 1000).
	LinkLimit int `json:"link_limit" yaml:"link_limit"`
}

// AcquisitionConfig holds settings for the full-text download stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// PapersDir is the directory PDFs are written to as <id>.pdf.
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// Email is sent to OpenAlex as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// SnowballConfig groups all stage configurations. Provider selects the
// article source: "pubmed" (default) or "semantic".
type SnowballConfig struct {
	Expansion   ExpansionConfig       `json:"expansion" yaml:"expansion"`
	Retry       RetryConfig           `json:"retry" yaml:"retry"`
	Provider    string                `json:"provider" yaml:"provider"`
	PubMed      PubMedConfig          `json:"pubmed" yaml:"pubmed"`
	Semantic    SemanticScholarConfig `json:"semantic_scholar" yaml:"semantic_scholar"`
	Acquisition AcquisitionConfig     `json:"acquisition" yaml:"acquisition"`
}
