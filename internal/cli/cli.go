package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/modplango/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("modplango", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
modplango - Rule-driven selection validation and install ordering for mod components.

Usage:
  modplango [options] [PROFILE_PATH]

Arguments:
  PROFILE_PATH
    Path to a single .hcl profile file or a directory containing .hcl files.
    Required for the default validate mode and for -order.

Options:
`)
		flagSet.PrintDefaults()
	}

	rulesFlag := flagSet.String("rules", "rules", "Path to the directory containing rule files.")
	profileFlag := flagSet.String("profile", "", "Path to the profile file or directory.")
	pFlag := flagSet.String("p", "", "Path to the profile file or directory (shorthand).")
	orderFlag := flagSet.Bool("order", false, "Generate an installation order instead of validating.")
	checkFlag := flagSet.Bool("check", false, "Validate rule files against the schema and exit.")
	fetchFlag := flagSet.String("fetch", "", "Download rule files from the given base URL and exit.")
	requirementsFlag := flagSet.String("requirements", "", "Print the dependency closure of a 'mod:component' reference and exit.")
	recursiveFlag := flagSet.Bool("recursive", false, "Expand requirements transitively (with -requirements).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	profilePath := ""
	if *profileFlag != "" {
		profilePath = *profileFlag
	} else if *pFlag != "" {
		profilePath = *pFlag
	} else if flagSet.NArg() > 0 {
		profilePath = flagSet.Arg(0)
	}
	slog.Debug("Profile path determined.", "path", profilePath)

	mode := app.ModeValidate
	switch {
	case *checkFlag:
		mode = app.ModeCheck
	case *fetchFlag != "":
		mode = app.ModeFetch
	case *requirementsFlag != "":
		mode = app.ModeRequirements
	case *orderFlag:
		mode = app.ModeOrder
	}

	if (mode == app.ModeValidate || mode == app.ModeOrder) && profilePath == "" {
		slog.Debug("No profile path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Mode:        mode,
		RulesDir:    *rulesFlag,
		ProfilePath: profilePath,
		FetchURL:    *fetchFlag,
		Requirement: *requirementsFlag,
		Recursive:   *recursiveFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "mode", string(config.Mode))
	return config, false, nil
}
