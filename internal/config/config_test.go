package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniTrack/internal/attendance"
	"uniTrack/internal/discovery"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PW_HEADLESS", "PW_BROWSER", "PW_SETTLE_DELAY", "APP_PORT", "DB_HOST", "FETCH_RETRIES"} {
		t.Setenv(key, "")
	}
	t.Setenv("UNITRACK_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "chromium", cfg.Browser.Engine)
	assert.Equal(t, 3*time.Second, cfg.Browser.SettleDelay)
	assert.Equal(t, "5000", cfg.App.Port)
	assert.Equal(t, 2, cfg.Fetch.Retries)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PW_HEADLESS", "false")
	t.Setenv("PW_TIMEOUT", "45s")
	t.Setenv("PW_SETTLE_DELAY", "5")
	t.Setenv("UNITRACK_HOME", "/tmp/unitrack-test")
	t.Setenv("DB_HOST", "localhost")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Browser.SettleDelay)
	assert.Equal(t, "/tmp/unitrack-test/config.yaml", cfg.ProfilePath())
	assert.True(t, cfg.Database.Enabled())
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("UNITRACK_HOME", "~/.unitrack-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".unitrack-test"), cfg.Home)
}

func TestLoadProfile_MissingFileGivesDefaults(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 75.0, p.Thresholds.Default)
	assert.Equal(t, 10.0, p.Thresholds.SafeBuffer)
	assert.Equal(t, attendance.DefaultFieldMapping(), p.Portal.FieldMappings)
	assert.False(t, p.Configured())
}

func TestSaveProfile_NeverWritesPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home", "config.yaml")

	p := DefaultProfile()
	p.Portal.BaseURL = "https://erp.example.edu/"
	p.Portal.Selectors = discovery.Selectors{
		UsernameInput: "#username",
		PasswordInput: "#password",
		LoginButton:   "#login",
	}
	p.Credentials = ProfileCredentials{Username: "1CR21CS001", Password: "s3cret!"}
	p.Thresholds.Custom = attendance.CustomThresholds{{Keyword: "Lab", Threshold: 60}, {Keyword: "TYL", Threshold: 90}}

	require.NoError(t, SaveProfile(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret!")

	loaded, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "1CR21CS001", loaded.Credentials.Username)
	assert.Empty(t, loaded.Credentials.Password)
	assert.Equal(t, "https://erp.example.edu", loaded.Portal.BaseURL)
	assert.Equal(t, p.Thresholds.Custom, loaded.Thresholds.Custom)
	assert.True(t, loaded.Configured())

	// исходный профиль не тронут
	assert.Equal(t, "s3cret!", p.Credentials.Password)
}

func TestLoadProfile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  custom: [1, 2]\n"), 0o600))

	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestFetchConfig(t *testing.T) {
	p := DefaultProfile()
	p.Portal.BaseURL = "https://erp.example.edu"
	p.Credentials.Username = "stored"

	cfg := p.FetchConfig("", "pw")
	assert.Equal(t, "stored", cfg.Credentials.Username)
	assert.Equal(t, "pw", cfg.Credentials.Password)

	cfg.FieldMappings[attendance.FieldPresent] = "changed"
	assert.Equal(t, "presentCount", p.Portal.FieldMappings[attendance.FieldPresent])
}
