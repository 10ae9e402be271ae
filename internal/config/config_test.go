package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsInternallyValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, NewValidator().ValidateAndSetDefaults(cfg))
	require.Equal(t, "manual", cfg.OverlayPolicy)
	require.True(t, cfg.MountAllowed)
}

func TestApplyEnvOverridesHistoryProviderAndLanguage(t *testing.T) {
	cfg := Default()
	getenv := func(k string) string {
		switch k {
		case "CODEX_HISTORY_FILE":
			return "/tmp/hist"
		case "CODEX_AI_PROVIDER":
			return "llama"
		case "CODEX_ENGLISH_ONLY":
			return "1"
		}
		return ""
	}
	ApplyEnv(cfg, getenv)
	require.Equal(t, "/tmp/hist", cfg.HistoryPath)
	require.Equal(t, "llama", cfg.AIProvider)
	require.True(t, cfg.EnglishOnly)
}

func TestParseKDLOverridesOverlayMountAutosaveAndHistory(t *testing.T) {
	cfg, err := parseKDL(`
overlay {
    policy "newest"
}
mount {
    allowed false
    exclude ".git" "node_modules"
}
ai {
    provider "openai"
}
autosave {
    idle_seconds 5
    crash_seconds 60
}
history {
    path "/custom/history"
}
`)
	require.NoError(t, err)
	require.Equal(t, "newest", cfg.OverlayPolicy)
	require.False(t, cfg.MountAllowed)
	require.ElementsMatch(t, []string{".git", "node_modules"}, cfg.MountExclude)
	require.Equal(t, "openai", cfg.AIProvider)
	require.Equal(t, 5, cfg.AutosaveIdleSeconds)
	require.Equal(t, 60, cfg.AutosaveCrashSeconds)
	require.Equal(t, "/custom/history", cfg.HistoryPath)
}

func TestValidateAndSetDefaultsRejectsRecoversBadFields(t *testing.T) {
	cfg := &Config{OverlayPolicy: "bogus", AutosaveIdleSeconds: -1}
	require.NoError(t, NewValidator().ValidateAndSetDefaults(cfg))
	require.Equal(t, "manual", cfg.OverlayPolicy)
	require.Equal(t, 10, cfg.AutosaveIdleSeconds)
}

func TestValidateAndSetDefaultsRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.AIProvider = "bogus"
	require.Error(t, NewValidator().ValidateAndSetDefaults(cfg))
}

func TestMatchesExcludeHonorsGlobs(t *testing.T) {
	cfg := Default()
	cfg.MountExclude = []string{"**/.git/**", "*.tmp"}
	require.True(t, MatchesExclude(cfg, "proj/.git/HEAD"))
	require.True(t, MatchesExclude(cfg, "scratch.tmp"))
	require.False(t, MatchesExclude(cfg, "main.go"))
}
