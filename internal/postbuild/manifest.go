package postbuild

import (
	"context"
	"fmt"

	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/manifest"
	"github.com/bianoble/bundlekit/internal/sandbox"
	"github.com/rs/zerolog"
)

// Manifest records the emitted files and their hashes so a later check
// can detect drift in the output directory.
type Manifest struct {
	Filename string
	Logger   zerolog.Logger
}

func (m *Manifest) Name() string { return "manifest" }

func (m *Manifest) Run(_ context.Context, result *engine.Result) error {
	outDir := result.Config.Output.Path

	files := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		if f != m.Filename {
			files = append(files, f)
		}
	}

	man, err := manifest.New(outDir, result.Entries, files)
	if err != nil {
		return err
	}
	data, err := manifest.Marshal(man)
	if err != nil {
		return err
	}
	if err := sandbox.SafeWrite(outDir, m.Filename, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.Filename, err)
	}

	m.Logger.Debug().Str("file", m.Filename).Int("files", len(man.Files)).Msg("Wrote manifest")
	return nil
}
