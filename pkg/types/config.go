package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "spectra-scraper/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
}

// RetryConfig bounds how often a timed-out request is re-attempted.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per request, including the first (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1"`

	// Delay is the fixed wait between a timeout and its retry (default 5s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// FetchConfig holds settings for the fetch command.
type FetchConfig struct {
	HTTPConfig  `yaml:",inline" mapstructure:",squash"`
	RetryConfig `yaml:",inline" mapstructure:",squash"`

	// SaveDir is the output root (contains ir/, mass/, inchi.txt, scrap.log).
	SaveDir string `json:"save_dir" yaml:"save_dir" mapstructure:"save_dir" validate:"required"`

	// CASList is the path of the tab-separated species table.
	CASList string `json:"cas_list" yaml:"cas_list" mapstructure:"cas_list" validate:"required"`

	// RequestDelay is an optional fixed pause between consecutive network calls.
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay" validate:"gte=0"`

	// FetchIR, FetchMass and FetchInChI toggle the three independent passes.
	FetchIR    bool `json:"fetch_ir" yaml:"fetch_ir" mapstructure:"fetch_ir"`
	FetchMass  bool `json:"fetch_mass" yaml:"fetch_mass" mapstructure:"fetch_mass"`
	FetchInChI bool `json:"fetch_inchi" yaml:"fetch_inchi" mapstructure:"fetch_inchi"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// CatalogConfig holds settings for the catalog stage.
type CatalogConfig struct {
	// SaveDir is the output root that was populated by fetch.
	SaveDir string `json:"save_dir" yaml:"save_dir" mapstructure:"save_dir" validate:"required"`

	// CASList optionally names the species table so names and formulas are indexed too.
	CASList string `json:"cas_list,omitempty" yaml:"cas_list,omitempty" mapstructure:"cas_list"`

	// MaxResults is the default maximum number of listed records (default 50).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"gte=0"`
}

// SplitConfig holds settings for k-fold splitting of the species table.
type SplitConfig struct {
	// Folds is the number of folds k (default 5).
	Folds int `json:"folds" yaml:"folds" mapstructure:"folds" validate:"gte=2"`

	// Seed makes the shuffle reproducible (default 4).
	Seed uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}
