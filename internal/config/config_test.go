package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

const sample = `
mode: online
db:
  driver: postgres
  dsn: postgres://localhost/lime
kafka:
  brokers: "k1:9092, k2:9092"
cors:
  origins_online: https://survey.example.org
settings:
  fixed:
    signature_header: X-Hub-Signature
  defaults:
    target: lrs
  hidden:
    - signing_secret
`

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(sample)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	cfg := Load(v)

	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("http timeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Mode != ModeOnline {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.DBDriver != "postgres" || cfg.TablePrefix != "lime_" {
		t.Fatalf("db = %q prefix %q", cfg.DBDriver, cfg.TablePrefix)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if got := cfg.Settings.Fixed["signature_header"]; got != "X-Hub-Signature" {
		t.Fatalf("fixed signature_header = %q", got)
	}
	if got := cfg.Settings.Defaults["target"]; got != "lrs" {
		t.Fatalf("default target = %q", got)
	}
	if len(cfg.Settings.Hidden) != 1 || cfg.Settings.Hidden[0] != "signing_secret" {
		t.Fatalf("hidden = %v", cfg.Settings.Hidden)
	}
	if o := cfg.CORSOrigins(); len(o) != 1 || o[0] != "https://survey.example.org" {
		t.Fatalf("cors origins = %v", o)
	}
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := Load(v)
	if cfg.Mode != ModeOffline || cfg.HTTPAddr != ":8080" || cfg.SettingsBackend != "sql" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("brokers should be empty, got %v", cfg.KafkaBrokers)
	}
}
