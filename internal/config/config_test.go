package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Bridge.Port)
	assert.Equal(t, "remote", cfg.Bridge.Mode)
	assert.Equal(t, int64(25<<20), cfg.Bridge.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, cfg.Bridge.ShutdownTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Client.ProbeTimeout)
	assert.Equal(t, 5*time.Second, cfg.Share.Interval)
	assert.Equal(t, "apartments", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Storage.HasCredential())
	assert.False(t, cfg.SMTP.Configured())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
bridge:
  mode: local
  data_dir: /srv/flats
storage:
  endpoint: s3.example.com
  bucket: from-file
client:
  probe_timeout: 250ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("FLAT_STORAGE_BUCKET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Bridge.Mode)
	assert.Equal(t, "/srv/flats", cfg.Bridge.DataDir)
	assert.Equal(t, "s3.example.com", cfg.Storage.Endpoint)
	assert.Equal(t, "from-env", cfg.Storage.Bucket)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.ProbeTimeout)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateBridge(t *testing.T) {
	withCreds := StorageConfig{Endpoint: "s3.example.com", AccessKey: "k", SecretKey: "s", Bucket: "flats"}

	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "remote with credential", cfg: Config{Bridge: BridgeConfig{Mode: "remote"}, Storage: withCreds}},
		{name: "remote without credential", cfg: Config{Bridge: BridgeConfig{Mode: "remote"}, Storage: StorageConfig{Bucket: "flats"}}, wantErr: true},
		{name: "local with data dir", cfg: Config{Bridge: BridgeConfig{Mode: "local", DataDir: "data"}, Storage: StorageConfig{Bucket: "flats"}}},
		{name: "local without data dir", cfg: Config{Bridge: BridgeConfig{Mode: "local"}, Storage: StorageConfig{Bucket: "flats"}}, wantErr: true},
		{name: "unknown mode", cfg: Config{Bridge: BridgeConfig{Mode: "hybrid"}, Storage: withCreds}, wantErr: true},
		{name: "missing bucket", cfg: Config{Bridge: BridgeConfig{Mode: "local", DataDir: "data"}}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.ValidateBridge()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateClient(t *testing.T) {
	ok := Config{Client: ClientConfig{CacheDir: "/tmp/flats", ProbeTimeout: time.Second}}
	assert.NoError(t, ok.ValidateClient())

	noDir := ok
	noDir.Client.CacheDir = ""
	assert.Error(t, noDir.ValidateClient())

	share := ok
	share.Share = ShareConfig{Code: "family"}
	assert.Error(t, share.ValidateClient(), "a share code needs a positive interval")
	share.Share.Interval = time.Second
	assert.NoError(t, share.ValidateClient())
}
