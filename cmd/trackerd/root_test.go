package main

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/mind-engage/xapi-tracker/internal/config"
)

func TestLogLevel(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("log_level", "warn")
	cfg := config.Load(v)

	if got := logLevel("", cfg); got != "warn" {
		t.Fatalf("configured level = %q", got)
	}
	if got := logLevel("debug", cfg); got != "debug" {
		t.Fatalf("flag level = %q", got)
	}
}
