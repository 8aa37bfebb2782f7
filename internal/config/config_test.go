package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simfs/internal/compress"
	"simfs/internal/logging"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	content := `state_file: /var/lib/simfs/state.json
compress: false
log_level: debug
backup_count: 2
prompt: "simfs:%s$ "
`
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/simfs/state.json", cfg.StateFile)
	assert.False(t, cfg.Compress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.BackupCount)
	assert.Equal(t, "simfs:%s$ ", cfg.Prompt)
	assert.Equal(t, logging.LevelDebug, cfg.Level())
	assert.Equal(t, compress.NameNone, cfg.Codec().Name())
}

func TestLoad_MinimalYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("backup_count: 9\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, 9, cfg.BackupCount)
	assert.Equal(t, def.StateFile, cfg.StateFile)
	assert.True(t, cfg.Compress)
	assert.Equal(t, def.Prompt, cfg.Prompt)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{{invalid"), 0644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

// clearEnv blanks the SIMFS_* variables for the duration of the test.
func clearEnv(t *testing.T) {
	for _, k := range []string{EnvState, EnvLogLevel, EnvCompress} {
		t.Setenv(k, "")
	}
}

func TestResolve_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
		[]byte("state_file: from-yaml.json\nlog_level: error\ncompress: true\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFileName),
		[]byte("SIMFS_STATE=from-dotenv.json\nSIMFS_COMPRESS=false\n"), 0644))
	t.Setenv(EnvState, "from-env.json")

	cfg, err := Resolve(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "from-env.json", cfg.StateFile, "process env beats .env and yaml")
	assert.False(t, cfg.Compress, ".env beats yaml")
	assert.Equal(t, "error", cfg.LogLevel, "yaml beats defaults")
}

func TestResolve_NoFiles(t *testing.T) {
	clearEnv(t)
	cfg, err := Resolve(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestResolve_ExplicitPathMustExist(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(dir, filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestResolve_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad log level", yaml: "log_level: loud\n"},
		{name: "negative backups", yaml: "backup_count: -1\n"},
		{name: "bad compress env", env: map[string]string{EnvCompress: "maybe"}},
		{name: "prompt without verb", yaml: "prompt: \"> \"\n"},
		{name: "prompt with two verbs", yaml: "prompt: \"%s %s> \"\n"},
		{name: "prompt with other verb", yaml: "prompt: \"%d %s> \"\n"},
		{name: "prompt with dangling percent", yaml: "prompt: \"%s 100%\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(tt.yaml), 0644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Resolve(dir, "")
			assert.Error(t, err)
		})
	}
}

func TestValidatePrompt(t *testing.T) {
	for _, ok := range []string{"(%s)> ", "%s", "100%% %s$ "} {
		cfg := Default()
		cfg.Prompt = ok
		assert.NoError(t, cfg.Validate(), ok)
	}
	for _, bad := range []string{"", "$ ", "%s%s", "%v> ", "%s %"} {
		cfg := Default()
		cfg.Prompt = bad
		assert.Error(t, cfg.Validate(), bad)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvState:    "/tmp/s.json",
		EnvLogLevel: "trace",
		EnvCompress: "0",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "/tmp/s.json", cfg.StateFile)
	assert.Equal(t, logging.LevelTrace, cfg.Level())
	assert.False(t, cfg.Compress)
}
