// Package config loads the shell-level configuration for a vfsh session:
// default overlay policy, whether mounting is allowed at startup, AI
// provider selection, autosave timer intervals, the history file path,
// and host-mount exclude globs. Grounded on the teacher's own
// internal/config package shape (a Config struct plus a KDL loader and a
// validator that fills in defaults), retargeted from code-search
// indexing settings to spec.md §6.2's environment/shell settings.
package config

import (
	"os"
	"path/filepath"
)

// Config is every setting spec.md §6.2 and §3.6 lets a user override
// ahead of the hardcoded defaults the reference bakes in.
type Config struct {
	OverlayPolicy        string   // "manual" (default), "oldest", or "newest"
	MountAllowed         bool     // mount_allowed at startup (default true)
	MountExclude         []string // doublestar globs excluded from host mount listings
	AIProvider           string   // "openai", "llama", or "" (auto-detect)
	AutosaveIdleSeconds  int      // default 10, per spec.md §3.6
	AutosaveCrashSeconds int      // default 180, per spec.md §3.6
	HistoryPath          string   // default "~/.codex_history", overridden by CODEX_HISTORY_FILE
	EnglishOnly          bool     // CODEX_ENGLISH_ONLY
}

// Default returns the configuration the shell starts with before any
// .vfsh.kdl file or environment variable is consulted.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		OverlayPolicy:        "manual",
		MountAllowed:         true,
		AutosaveIdleSeconds:  10,
		AutosaveCrashSeconds: 180,
		HistoryPath:          filepath.Join(home, ".codex_history"),
	}
}

// ApplyEnv overlays environment-variable configuration on top of cfg, per
// spec.md §6.2. getenv is injected so callers (and tests) don't depend on
// the process environment directly.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("CODEX_HISTORY_FILE"); v != "" {
		cfg.HistoryPath = v
	}
	if v := getenv("CODEX_AI_PROVIDER"); v == "openai" || v == "llama" {
		cfg.AIProvider = v
	}
	if getenv("CODEX_ENGLISH_ONLY") == "1" {
		cfg.EnglishOnly = true
	}
}
