package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dov85/Apartment/internal/bridge"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
)

type envelope struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *ErrorInfo      `json:"error"`
	Warnings []string        `json:"warnings"`
}

// resetFlags restores every flag to its default so one run does not leak
// into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func standaloneConfig(t *testing.T) string {
	return writeConfig(t, "client:\n  cache_dir: "+t.TempDir()+"\n")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute()
	return out.String(), err
}

func runJSON(t *testing.T, args ...string) envelope {
	t.Helper()
	out, _ := runCLI(t, append([]string{"--json"}, args...)...)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func decodeListing(t *testing.T, env envelope) domain.Listing {
	t.Helper()
	require.True(t, env.OK, "error: %+v", env.Error)
	var l domain.Listing
	require.NoError(t, json.Unmarshal(env.Data, &l))
	return l
}

func TestCLI_StandaloneAddAndList(t *testing.T) {
	cfgPath := standaloneConfig(t)

	env := runJSON(t, "--config", cfgPath, "add", "--title", "Sunny 3 rooms", "--city", "Haifa", "--price", "5200", "--amenity", "parking")
	added := decodeListing(t, env)
	assert.Equal(t, "Sunny 3 rooms", added.Title)
	assert.Equal(t, domain.StatusNew, added.Status)
	assert.True(t, added.Amenities["parking"])
	require.Len(t, env.Warnings, 1, "no remote is configured, so the save stays on this device")

	env = runJSON(t, "--config", cfgPath, "list")
	require.True(t, env.OK)
	var listed domain.Collection
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, added.ID, listed[0].ID)
	assert.Equal(t, "Haifa", listed[0].Address.City)
}

func TestCLI_LoadReportsSource(t *testing.T) {
	cfgPath := standaloneConfig(t)

	env := runJSON(t, "--config", cfgPath, "load")
	require.True(t, env.OK)
	assert.JSONEq(t, `{"source":"empty","listings":0}`, string(env.Data))

	runJSON(t, "--config", cfgPath, "add", "--title", "A")
	env = runJSON(t, "--config", cfgPath, "load")
	assert.JSONEq(t, `{"source":"local","listings":1}`, string(env.Data))
}

func TestCLI_UpdateOnlyTouchesGivenFields(t *testing.T) {
	cfgPath := standaloneConfig(t)
	added := decodeListing(t, runJSON(t, "--config", cfgPath, "add", "--title", "Garden flat", "--price", "5000", "--notes", "quiet street"))

	decodeListing(t, runJSON(t, "--config", cfgPath, "update", added.ID, "--price", "4900"))

	shown := decodeListing(t, runJSON(t, "--config", cfgPath, "show", added.ID))
	assert.Equal(t, int64(4900), shown.Price)
	assert.Equal(t, "Garden flat", shown.Title)
	assert.Equal(t, "quiet street", shown.Notes)
}

func TestCLI_StatusErrors(t *testing.T) {
	cfgPath := standaloneConfig(t)
	added := decodeListing(t, runJSON(t, "--config", cfgPath, "add", "--title", "A"))

	env := runJSON(t, "--config", cfgPath, "status", added.ID, "sold")
	assert.False(t, env.OK)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeInvalidInput, env.Error.Code)

	env = runJSON(t, "--config", cfgPath, "status", "missing-id", "visited")
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeNotFound, env.Error.Code)

	l := decodeListing(t, runJSON(t, "--config", cfgPath, "status", added.ID, "Visited"))
	assert.Equal(t, domain.StatusVisited, l.Status)
}

func TestCLI_AddImageWithoutBackendFails(t *testing.T) {
	cfgPath := standaloneConfig(t)
	img := filepath.Join(t.TempDir(), "front.png")
	require.NoError(t, os.WriteFile(img, []byte("png-bytes"), 0o644))

	env := runJSON(t, "--config", cfgPath, "add", "--title", "A", "--image", img)
	assert.False(t, env.OK)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeNoBackend, env.Error.Code)

	env = runJSON(t, "--config", cfgPath, "list")
	require.True(t, env.OK)
	var listed domain.Collection
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &listed))
	}
	assert.Empty(t, listed)
}

func TestCLI_RemindPrintsDigest(t *testing.T) {
	cfgPath := standaloneConfig(t)
	runJSON(t, "--config", cfgPath, "add", "--title", "Call owner flat", "--remind", "2026-01-01", "--remind-note", "ask about parking")
	runJSON(t, "--config", cfgPath, "add", "--title", "Later flat", "--remind", "2026-02-01")

	out, err := runCLI(t, "--config", cfgPath, "remind", "--date", "2026-01-02", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: Apartment reminders for 2026-01-02 (1)")
	assert.Contains(t, out, "Call owner flat")
	assert.Contains(t, out, "ask about parking")
	assert.NotContains(t, out, "Later flat")
}

func TestCLI_StatsNeedsCredential(t *testing.T) {
	_, err := runCLI(t, "--config", standaloneConfig(t), "stats")
	assert.ErrorIs(t, err, errNoStorageCredential)
}

func TestCLI_ThroughLocalBridge(t *testing.T) {
	bridgeDir := t.TempDir()
	h := bridge.NewHandler(bridge.NewLocalBackend(bridgeDir, nil, logger.NewNop()), bridge.PublicConfig{Bucket: "flats"}, logger.NewNop())
	srv := httptest.NewServer(bridge.NewRouter(h, bridge.RouterConfig{MaxBodyBytes: 1 << 20}, nil, logger.NewNop()))
	defer srv.Close()

	cfgPath := writeConfig(t, "client:\n  cache_dir: "+t.TempDir()+"\n  origin: "+srv.URL+"\n")
	img := filepath.Join(t.TempDir(), "front.png")
	require.NoError(t, os.WriteFile(img, []byte("png-bytes"), 0o644))

	env := runJSON(t, "--config", cfgPath, "add", "--title", "Bridge flat", "--image", img)
	added := decodeListing(t, env)
	assert.Empty(t, env.Warnings)
	require.Len(t, added.Images, 1)
	ref := added.Images[0]
	assert.Equal(t, domain.RefLocalFile, ref.Kind)

	stored, err := os.ReadFile(filepath.Join(bridgeDir, "images", ref.Key))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), stored)

	doc, err := os.ReadFile(filepath.Join(bridgeDir, "listings.json"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Bridge flat")

	env = runJSON(t, "--config", cfgPath, "image", "url", ref.String())
	require.True(t, env.OK)
	assert.Contains(t, string(env.Data), srv.URL+"/files/")

	env = runJSON(t, "--config", cfgPath, "delete", added.ID)
	require.True(t, env.OK, "error: %+v", env.Error)
	_, err = os.Stat(filepath.Join(bridgeDir, "images", ref.Key))
	assert.True(t, os.IsNotExist(err), "image should be removed with its listing")
}

func TestParsePosition(t *testing.T) {
	i, err := parsePosition("1")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	for _, bad := range []string{"0", "-2", "first", ""} {
		_, err := parsePosition(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidListingData, bad)
	}
}

func TestAmenitySet(t *testing.T) {
	assert.Nil(t, amenitySet(nil))
	assert.Equal(t, map[string]bool{"parking": true, "elevator": true}, amenitySet([]string{"parking", " elevator ", ""}))
}

func TestDefaultImageName(t *testing.T) {
	assert.Equal(t, "lq3k2x1a-9fz0ke.jpg", defaultImageName(domain.RemoteRef("lq3k2x1a-9fz0ke.jpg"), "image/jpeg"))
	assert.Equal(t, "old.png", defaultImageName(domain.LocalFileRef("old.png"), "image/png"))
	assert.Equal(t, "image.bin", defaultImageName(domain.DeviceBlobRef("7"), ""))
}
