// Package config loads CLI defaults from the environment: a struct of
// typed fields, one Load entry point, env vars parsed with fallbacks. It
// loads a .env file first (via joho/godotenv) before reading os.Getenv,
// since the CLI is meant to be run from a project checkout rather than a
// long-lived service.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the CLI's environment-sourced defaults.
type Config struct {
	// IncludePath lists the directories searched, after the path as given,
	// when resolving the CLI's --fixture and --schema glob patterns;
	// colon-separated like $PATH.
	IncludePath []string

	// SchemaPath is the default annotation schema YAML file, if any.
	SchemaPath string

	// Trace enables colorized per-rule trace output by default.
	Trace bool

	// NoColor disables ANSI color in diagnostic and trace output.
	NoColor bool
}

const (
	envIncludePath = "LAPIS_INCLUDE_PATH"
	envSchemaPath  = "LAPIS_SCHEMA"
	envTrace       = "LAPIS_TRACE"
	envNoColor     = "LAPIS_NO_COLOR"
)

// Load reads .env (if present in the working directory) and then the
// process environment, returning the resolved Config. A missing .env file
// is not an error; godotenv.Load only overlays variables not already set.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		SchemaPath: os.Getenv(envSchemaPath),
		Trace:      parseBool(os.Getenv(envTrace)),
		NoColor:    parseBool(os.Getenv(envNoColor)),
	}
	if raw := os.Getenv(envIncludePath); raw != "" {
		cfg.IncludePath = strings.Split(raw, ":")
	}
	return cfg
}

func parseBool(s string) bool {
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
