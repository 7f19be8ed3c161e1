package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarstrings/internal/classfmt"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jarstrings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
scan:
  exclude: ["**/module-info.class"]
  mode: best_effort
save:
  on_error: skip
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"**/*.class"}, cfg.Scan.Include)
	assert.Equal(t, []string{"**/module-info.class"}, cfg.Scan.Exclude)
	assert.Equal(t, OnErrorSkip, cfg.Save.OnError)
	assert.Equal(t, 4, cfg.Save.Workers)
	assert.True(t, cfg.Filter.HideEmpty)

	mode, err := ParseMode(cfg.Scan.Mode)
	require.NoError(t, err)
	assert.Equal(t, classfmt.ModeBestEffort, mode)
	lvl, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"workers", "save:\n  workers: 0\n"},
		{"on_error", "save:\n  on_error: retry\n"},
		{"mode", "scan:\n  mode: fast\n"},
		{"level", "log:\n  level: loud\n"},
		{"yaml", "scan: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := writeFile(t, "filter:\n  case_sensitive: true\n")
	t.Setenv(EnvPath, path)
	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.True(t, cfg.Filter.CaseSensitive)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	cfg := Default()
	cfg.Filter.CaseSensitive = true
	q := cfg.Query("hello world")
	assert.Equal(t, "hello world", q.Text)
	assert.True(t, q.HideEmpty)
	assert.True(t, q.CaseSensitive)
}
