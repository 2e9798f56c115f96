package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Settings holds the deployment-level tiers of the plugin settings: fixed
// values override everything and are read-only upstream, defaults replace
// the caller default when nothing is stored, hidden keys are never described.
type Settings struct {
	Fixed    map[string]string
	Defaults map[string]string
	Hidden   []string
}

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogLevel string
	// Timeout of every outbound call (LRS, webhook, token endpoint, RPC).
	HTTPTimeout time.Duration

	DBDriver string
	DBDSN    string
	// Prefix of the host's response tables, e.g. lime_ for lime_survey_123456.
	TablePrefix string

	SettingsBackend string // sql|redis|memory
	RedisURL        string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	AdminToken     string
	AdminTokenHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	Settings Settings
}

// SetDefaults registers every key Load reads so AutomaticEnv can see them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table_prefix", "lime_")
	v.SetDefault("settings_backend", "sql")
	v.SetDefault("redis.url", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "survey-lifecycle")
	v.SetDefault("kafka.group_id", "xapi-tracker")
	v.SetDefault("admin.token", "")
	v.SetDefault("admin.token_hash", "")
	v.SetDefault("cors.origins_online", "")
	v.SetDefault("cors.origins_offline", "http://localhost:3000")
}

// Load reads the deployment configuration out of v. Keys are lower-case;
// env vars use the XAPI_TRACKER_ prefix with dots replaced by underscores.
func Load(v *viper.Viper) Config {
	mode := Mode(strings.ToLower(v.GetString("mode")))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           v.GetString("http_addr"),
		LogLevel:           v.GetString("log_level"),
		HTTPTimeout:        v.GetDuration("http_timeout"),
		DBDriver:           v.GetString("db.driver"),
		DBDSN:              v.GetString("db.dsn"),
		TablePrefix:        v.GetString("db.table_prefix"),
		SettingsBackend:    strings.ToLower(v.GetString("settings_backend")),
		RedisURL:           v.GetString("redis.url"),
		KafkaBrokers:       csv(v.GetString("kafka.brokers")),
		KafkaTopic:         v.GetString("kafka.topic"),
		KafkaGroupID:       v.GetString("kafka.group_id"),
		AdminToken:         v.GetString("admin.token"),
		AdminTokenHash:     v.GetString("admin.token_hash"),
		CORSOriginsOnline:  csv(v.GetString("cors.origins_online")),
		CORSOriginsOffline: csv(v.GetString("cors.origins_offline")),
		Settings: Settings{
			Fixed:    v.GetStringMapString("settings.fixed"),
			Defaults: v.GetStringMapString("settings.defaults"),
			Hidden:   v.GetStringSlice("settings.hidden"),
		},
	}
}

// CORSOrigins picks the origin list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
