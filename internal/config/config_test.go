package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PORT", "")
	t.Setenv("ADA_TEST_TOKEN", "secret-token")
	path := writeConfig(t, `
discord:
  token: ${ADA_TEST_TOKEN}
database:
  driver: sqlite
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Scheduler.Tick != time.Minute || cfg.Scheduler.Policy != PolicyReset || cfg.Scheduler.OverdueInterval != 24*time.Hour {
		t.Errorf("scheduler defaults = %#v", cfg.Scheduler)
	}
	if cfg.Timezone != DefaultTimezone || cfg.Location == nil || cfg.Location.String() != DefaultTimezone {
		t.Errorf("timezone = %q / %v", cfg.Timezone, cfg.Location)
	}
	if cfg.Database.Path != "data/ada.db" || cfg.Log.Level != "info" || cfg.Reports.Dir == "" {
		t.Errorf("defaults not applied: %#v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	path := writeConfig(t, `
discord:
  token: abc
  client_id: "123"
database:
  host: db
  port: 5432
scheduler:
  tick: 30s
  policy: fixed_window
  overdue_interval: 12h
timezone: UTC
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Port != 6543 || cfg.Database.Driver != "postgres" {
		t.Errorf("database = %#v", cfg.Database)
	}
	if cfg.Scheduler.Tick != 30*time.Second || cfg.Scheduler.Policy != PolicyFixedWindow || cfg.Scheduler.OverdueInterval != 12*time.Hour {
		t.Errorf("scheduler = %#v", cfg.Scheduler)
	}
	if cfg.Location != time.UTC {
		t.Errorf("location = %v", cfg.Location)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("DB_PORT", "")
	cases := map[string]string{
		"missing token":  "database:\n  driver: sqlite\n",
		"bad policy":     "discord:\n  token: x\nscheduler:\n  policy: sometimes\n",
		"bad timezone":   "discord:\n  token: x\ntimezone: Mars/Olympus\n",
		"bad duration":   "discord:\n  token: x\nscheduler:\n  tick: often\n",
		"malformed yaml": "discord: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("DB_PORT", "five")
	if _, err := Load(writeConfig(t, "discord:\n  token: x\n")); err == nil {
		t.Fatal("expected an error for a non numeric DB_PORT")
	}
}
