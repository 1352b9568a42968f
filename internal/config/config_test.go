package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calgrid.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.SubmitDelayMs != defaultSubmitDelayMs {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := st.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadPartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calgrid.yaml")
	body := []byte(`
listen: ":9000"
locale: de
submit_delay_ms: -5
log_level: verbose
ics:
  - url: https://example.com/a.ics
    name: Holidays
basic_auth:
  username: admin
  password_hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.Locale != "de" {
		t.Errorf("listen/locale not read: %+v", cfg)
	}
	if cfg.SubmitDelayMs != defaultSubmitDelayMs {
		t.Errorf("SubmitDelayMs = %d, want default", cfg.SubmitDelayMs)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.RefreshCron != defaultRefreshCron {
		t.Errorf("RefreshCron = %q", cfg.RefreshCron)
	}
	if len(cfg.ICS) != 1 || cfg.ICS[0].SourceID() != "Holidays" {
		t.Errorf("ICS = %+v", cfg.ICS)
	}
	if cfg.BasicAuth == nil || cfg.BasicAuth.Username != "admin" || cfg.BasicAuth.PasswordHash == "" {
		t.Errorf("BasicAuth = %+v", cfg.BasicAuth)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calgrid.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calgrid.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"
	cfg.ICS = append(cfg.ICS, ICSConfig{URL: "https://example.com/b.ics", ID: "b"})

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Timezone != "Europe/Berlin" || len(got.ICS) != 1 || got.ICS[0].ID != "b" {
		t.Errorf("round trip lost data: %+v", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".calgrid-config-*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestSaveErrors(t *testing.T) {
	if err := Save("", DefaultConfig()); err == nil {
		t.Error("empty path accepted")
	}
	if err := Save(filepath.Join(t.TempDir(), "x.yaml"), nil); err == nil {
		t.Error("nil config accepted")
	}
	if _, err := Load(""); err == nil {
		t.Error("Load accepted an empty path")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvListen, ":7070")
	t.Setenv(EnvLocale, "fr")
	t.Setenv(EnvTimezone, "UTC")
	t.Setenv(EnvSubmitDelay, "0")
	t.Setenv(EnvLogLevel, "debug")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Listen != ":7070" || cfg.Locale != "fr" || cfg.Timezone != "UTC" || cfg.LogLevel != "debug" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.SubmitDelay() != 0 {
		t.Errorf("SubmitDelay = %v, want 0", cfg.SubmitDelay())
	}
}

func TestApplyEnvBadDelay(t *testing.T) {
	t.Setenv(EnvSubmitDelay, "soon")
	if err := DefaultConfig().ApplyEnv(); err == nil {
		t.Fatal("expected error for non-numeric delay")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("CALGRID_LOCALE=ko\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set; start unset
	// and restore afterwards.
	t.Setenv(EnvLocale, "")
	os.Unsetenv(EnvLocale)

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), env); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(EnvLocale); got != "ko" {
		t.Errorf("%s = %q, want ko", EnvLocale, got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "none.env")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("empty timezone: loc=%v err=%v", loc, err)
	}

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("UTC: loc=%v err=%v", loc, err)
	}

	cfg.Timezone = "Nowhere/Special"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for unknown zone")
	}
}
