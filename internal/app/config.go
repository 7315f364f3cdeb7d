package app

import "fmt"

// Mode selects what a run does.
type Mode string

const (
	// ModeValidate checks a profile's selection against the rules.
	ModeValidate Mode = "validate"
	// ModeOrder generates an installation order for a profile.
	ModeOrder Mode = "order"
	// ModeCheck validates rule files against the document schema.
	ModeCheck Mode = "check"
	// ModeFetch downloads published rule files into the rules directory.
	ModeFetch Mode = "fetch"
	// ModeRequirements prints the dependency closure of one component.
	ModeRequirements Mode = "requirements"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Mode        Mode
	RulesDir    string
	ProfilePath string
	FetchURL    string
	Requirement string
	Recursive   bool
	LogFormat   string
	LogLevel    string
}

// NewConfig validates a raw configuration and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeValidate
	}
	if cfg.RulesDir == "" {
		cfg.RulesDir = "rules"
	}

	switch cfg.Mode {
	case ModeValidate, ModeOrder:
		if cfg.ProfilePath == "" {
			return nil, fmt.Errorf("mode %q requires a profile path", cfg.Mode)
		}
	case ModeFetch:
		if cfg.FetchURL == "" {
			return nil, fmt.Errorf("mode %q requires a fetch URL", cfg.Mode)
		}
	case ModeRequirements:
		if cfg.Requirement == "" {
			return nil, fmt.Errorf("mode %q requires a component reference", cfg.Mode)
		}
	case ModeCheck:
		// Needs only the rules directory.
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	return &cfg, nil
}
