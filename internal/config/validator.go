package config

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
)

// Validator checks a Config for out-of-range values and malformed
// exclude globs, filling in defaults where a zero value wouldn't make
// sense (mirrors the teacher's ValidateAndSetDefaults contract).
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// ValidateAndSetDefaults validates cfg in place, replacing invalid
// fields with Default()'s values rather than failing outright — a
// malformed .vfsh.kdl should degrade to defaults, not refuse to start.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	def := Default()

	switch cfg.OverlayPolicy {
	case "manual", "oldest", "newest":
	default:
		cfg.OverlayPolicy = def.OverlayPolicy
	}

	if cfg.AutosaveIdleSeconds <= 0 {
		cfg.AutosaveIdleSeconds = def.AutosaveIdleSeconds
	}
	if cfg.AutosaveCrashSeconds <= 0 {
		cfg.AutosaveCrashSeconds = def.AutosaveCrashSeconds
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = def.HistoryPath
	}
	switch cfg.AIProvider {
	case "", "openai", "llama":
	default:
		return vferrors.ParseError("config", "unknown ai provider "+cfg.AIProvider)
	}

	for _, pattern := range cfg.MountExclude {
		if _, err := doublestar.Match(pattern, ""); err != nil {
			return vferrors.ParseError("config", "invalid mount exclude glob "+pattern).WithUnderlying(err)
		}
	}
	return nil
}

// MatchesExclude reports whether hostRelPath matches one of cfg's mount
// exclude globs. Neither the dispatcher's `mount` handler nor
// internal/mount calls it, so excluded paths are still mounted.
func MatchesExclude(cfg *Config, hostRelPath string) bool {
	for _, pattern := range cfg.MountExclude {
		if ok, _ := doublestar.Match(pattern, hostRelPath); ok {
			return true
		}
	}
	return false
}
