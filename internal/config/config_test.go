package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("endpoint", "", "")
	flags.String("access-key", "", "")
	flags.String("secret-key", "", "")
	flags.Bool("secure", true, "")
	flags.String("region", "", "")
	flags.String("scratch-root", "", "")
	flags.Bool("use-record-mount", false, "")
	flags.Int("fetch-timeout", 0, "")
	flags.String("journal", "", "")
	flags.String("push-gateway", "", "")
	flags.String("log-level", "info", "")
	return flags
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION", "EGGO_S3_ENDPOINT", "EPHEMERAL_MOUNT"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", testFlags())
	require.NoError(t, err)

	require.Equal(t, "s3.amazonaws.com", cfg.Storage.Endpoint)
	require.True(t, cfg.Storage.Secure)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.Mapper.ScratchRoot)
	require.False(t, cfg.Mapper.UseRecordMount)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mapper.yaml")
	content := `
storage:
  endpoint: minio.internal:9000
  access_key: AKTEST
  secret_key: sekrit
  secure: false
mapper:
  scratch_root: /mnt/eph
  journal: /var/lib/eggo/journal.db
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, testFlags())
	require.NoError(t, err)

	require.Equal(t, "minio.internal:9000", cfg.Storage.Endpoint)
	require.Equal(t, "AKTEST", cfg.Storage.AccessKey)
	require.False(t, cfg.Storage.Secure)
	require.Equal(t, "/mnt/eph", cfg.Mapper.ScratchRoot)
	require.Equal(t, "/var/lib/eggo/journal.db", cfg.Mapper.Journal)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestFlagsOverrideFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mapper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  endpoint: from-file:9000\n"), 0o644))

	flags := testFlags()
	require.NoError(t, flags.Set("endpoint", "from-flag:9000"))
	require.NoError(t, flags.Set("use-record-mount", "true"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	require.Equal(t, "from-flag:9000", cfg.Storage.Endpoint)
	require.True(t, cfg.Mapper.UseRecordMount)
}

func TestCredentialsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("EPHEMERAL_MOUNT", "/mnt/eph")

	cfg, err := Load("", testFlags())
	require.NoError(t, err)

	require.Equal(t, "AKENV", cfg.Storage.AccessKey)
	require.Equal(t, "envsecret", cfg.Storage.SecretKey)
	require.Equal(t, "us-east-1", cfg.Storage.Region)
	require.Equal(t, "/mnt/eph", cfg.Mapper.ScratchRoot)
}

func TestExplicitCredentialsWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKENV")

	flags := testFlags()
	require.NoError(t, flags.Set("access-key", "AKFLAG"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, "AKFLAG", cfg.Storage.AccessKey)
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	clearEnv(t)

	flags := testFlags()
	require.NoError(t, flags.Set("fetch-timeout", "-1"))

	_, err := Load("", flags)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch timeout")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), testFlags())
	require.Error(t, err)
}
