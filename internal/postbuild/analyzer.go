package postbuild

import (
	"context"
	"fmt"
	"io"

	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/sandbox"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

// Analyzer modes.
const (
	AnalyzerStatic   = "static"
	AnalyzerLog      = "log"
	AnalyzerDisabled = "disabled"
)

// Analyzer reports which inputs contribute to each output bundle.
type Analyzer struct {
	Mode           string
	ReportFilename string
	Verbose        bool
	Out            io.Writer
	Logger         zerolog.Logger
}

func (a *Analyzer) Name() string { return "bundle-analyzer" }

func (a *Analyzer) Run(_ context.Context, result *engine.Result) error {
	if a.Mode == AnalyzerDisabled {
		return nil
	}

	report := api.AnalyzeMetafile(result.RawMetafile, api.AnalyzeMetafileOptions{
		Verbose: a.Verbose,
	})

	switch a.Mode {
	case AnalyzerLog:
		if _, err := io.WriteString(a.Out, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	case AnalyzerStatic:
		if err := sandbox.SafeWrite(result.Config.Output.Path, a.ReportFilename, []byte(report), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", a.ReportFilename, err)
		}
		result.AddFile(a.ReportFilename)
		a.Logger.Info().Str("report", a.ReportFilename).Msg("Wrote bundle analysis")
	default:
		return fmt.Errorf("unknown analyzer mode '%s'", a.Mode)
	}
	return nil
}
