package bundlekit

import (
	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/bianoble/bundlekit/internal/manifest"
)

// Type aliases re-export the internal types as the public API.
// Users import "github.com/bianoble/bundlekit/pkg/bundlekit" and use
// bundlekit.Config, bundlekit.ValidationError, etc.

type Config = config.Config
type Mode = config.Mode
type LoadOptions = config.LoadOptions
type Rule = config.Rule
type Plugin = config.Plugin

type ValidationError = config.ValidationError
type InvalidPathError = config.InvalidPathError
type InvalidPortError = config.InvalidPortError
type ConflictingRuleError = config.ConflictingRuleError
type UnknownTransformError = config.UnknownTransformError
type UnknownPluginError = config.UnknownPluginError

type Result = engine.Result
type BuildError = engine.BuildError

type Manifest = manifest.Manifest
type CheckResult = manifest.CheckResult

const (
	ModeDevelopment = config.ModeDevelopment
	ModeProduction  = config.ModeProduction
)
