package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/logger"
	"github.com/bianoble/bundlekit/internal/postbuild"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// loadConfig discovers the base config and its mode overlay, then loads,
// normalizes and validates them.
func loadConfig() (*config.Config, error) {
	layers := config.DiscoverPaths(config.DiscoverOptions{
		ProjectPath: configPath,
		Mode:        config.Mode(modeFlag),
		NoOverlay:   config.EnvNoOverlay(),
	})
	for _, l := range layers {
		detail("config %-8s %s", l.Kind, l.Path)
	}

	cfg, err := config.LoadLayers(config.Paths(layers), config.LoadOptions{Mode: config.Mode(modeFlag)})
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			printValidation(verr)
			return nil, fmt.Errorf("%s: %d configuration error(s)", configPath, len(verr.Errors))
		}
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return cfg, nil
}

// newLogger returns the logger for one-shot commands: debug output in
// verbose mode, warnings and errors otherwise.
func newLogger() zerolog.Logger {
	return logger.Setup(verbose, quiet || !verbose)
}

// newEngine creates a build engine running the configured plugins.
func newEngine(cfg *config.Config, log zerolog.Logger) (*engine.Engine, error) {
	actions, err := postbuild.FromConfig(cfg, log, os.Stdout)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, log, actions...), nil
}

// printValidation lists every configuration error.
func printValidation(verr *config.ValidationError) {
	for _, e := range verr.Errors {
		errorf("%v", e)
	}
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// success prints a check-marked line unless quiet mode is active.
func success(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s %s\n", successColor.Sprint("✓"), fmt.Sprintf(format, args...))
	}
}

// warnf prints a warning to stderr.
func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s "+format+"\n", append([]any{warnColor.Sprint("warning:")}, args...)...)
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s "+format+"\n", append([]any{errorColor.Sprint("error:")}, args...)...)
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
