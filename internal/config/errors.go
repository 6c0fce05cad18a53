package config

import (
	"fmt"
	"strings"
)

// InvalidPathError reports a declared path that does not exist.
type InvalidPathError struct {
	Field string // e.g. "entry 'bundle'", "plugin[0] (html) template"
	Path  string
	Err   error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("%s: path %s does not exist", e.Field, e.Path)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// InvalidPortError reports a dev-server port outside the TCP range or one
// that cannot be bound.
type InvalidPortError struct {
	Port int
	Err  error // set when binding failed
}

func (e *InvalidPortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("devServer.port: cannot bind port %d: %v", e.Port, e.Err)
	}
	return fmt.Sprintf("devServer.port: %d is out of range — must be between 1 and 65535", e.Port)
}

func (e *InvalidPortError) Unwrap() error {
	return e.Err
}

// ConflictingRuleError reports two rules that claim the same file with
// different transforms and no priority to decide between them.
type ConflictingRuleError struct {
	First  int
	Second int
	File   string
}

func (e *ConflictingRuleError) Error() string {
	return fmt.Sprintf("module.rules[%d] and module.rules[%d] both match %q with different transforms — set 'priority' on one of them", e.First, e.Second, e.File)
}

// UnknownTransformError reports a transform step with no registered loader.
type UnknownTransformError struct {
	Rule   int
	Loader string
}

func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("module.rules[%d]: unknown transform '%s' — declare it in loaderDefinitions", e.Rule, e.Loader)
}

// UnknownPluginError reports a plugin kind that has no post-build action.
type UnknownPluginError struct {
	Index int
	Kind  string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("plugins[%d]: unknown kind '%s' — must be one of: %s, %s, %s", e.Index, e.Kind, PluginHTML, PluginBundleAnalyzer, PluginManifest)
}

// ValidationError holds every failure found while validating a config.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}
