package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/config"
)

var (
	ErrUnknownKey   = errors.New("settings: unknown key")
	ErrFixedKey     = errors.New("settings: key is fixed by deployment configuration")
	ErrInvalidValue = errors.New("settings: invalid value")
	ErrNotSurvey    = errors.New("settings: key cannot be set per survey")
)

// Resolver answers setting lookups in order: fixed deployment value, stored
// per-scope value, deployment default, caller default.
type Resolver struct {
	Store Store
	Tiers config.Settings
	Log   logrus.FieldLogger
}

func NewResolver(store Store, tiers config.Settings, log logrus.FieldLogger) *Resolver {
	return &Resolver{Store: store, Tiers: tiers, Log: log}
}

// Get never fails; store errors are logged and read as "not set".
func (r *Resolver) Get(ctx context.Context, key string, scope Scope, scopeID, def string) string {
	if v, ok := r.Tiers.Fixed[key]; ok {
		return v
	}
	if r.Store != nil {
		v, ok, err := r.Store.Get(ctx, scope, scopeID, key)
		if err != nil {
			r.Log.WithError(err).WithField("key", key).Warn("settings lookup failed")
		} else if ok {
			return v
		}
	}
	if v, ok := r.Tiers.Defaults[key]; ok {
		return v
	}
	return def
}

// Global is Get at global scope with the schema default as caller default.
func (r *Resolver) Global(ctx context.Context, key string) string {
	d, _ := Lookup(key)
	return r.Get(ctx, key, ScopeGlobal, "", d.Default)
}

// ReadOnly reports whether key is pinned by deployment configuration.
func (r *Resolver) ReadOnly(key string) bool {
	_, ok := r.Tiers.Fixed[key]
	return ok
}

func (r *Resolver) hidden(key string) bool {
	for _, h := range r.Tiers.Hidden {
		if h == key {
			return true
		}
	}
	return false
}

// Field is a schema entry with its resolved value.
type Field struct {
	Definition
	Current  string `json:"current"`
	ReadOnly bool   `json:"readOnly"`
}

// Describe returns the settings form: hidden keys are dropped and fixed
// keys are flagged read-only. With a surveyID, survey-scoped keys resolve
// against that survey first.
func (r *Resolver) Describe(ctx context.Context, surveyID string) []Field {
	out := make([]Field, 0, len(Schema))
	for _, d := range Schema {
		if r.hidden(d.Key) {
			continue
		}
		cur := r.Global(ctx, d.Key)
		if surveyID != "" && d.SurveyScoped {
			cur = r.Get(ctx, d.Key, ScopeSurvey, surveyID, cur)
		}
		out = append(out, Field{Definition: d, Current: cur, ReadOnly: r.ReadOnly(d.Key)})
	}
	return out
}

// Apply validates and stores a batch of updates, at survey scope when
// surveyID is set. Nothing is written if any entry is rejected.
func (r *Resolver) Apply(ctx context.Context, surveyID string, updates map[string]string) error {
	scope, scopeID := ScopeGlobal, ""
	if surveyID != "" {
		scope, scopeID = ScopeSurvey, surveyID
	}
	clean := make(map[string]string, len(updates))
	for k, v := range updates {
		d, ok := Lookup(k)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
		if r.ReadOnly(k) {
			return fmt.Errorf("%w: %s", ErrFixedKey, k)
		}
		if scope == ScopeSurvey && !d.SurveyScoped {
			return fmt.Errorf("%w: %s", ErrNotSurvey, k)
		}
		switch d.Type {
		case TypeCheckbox:
			b, ok := ParseBool(v)
			if !ok {
				return fmt.Errorf("%w: %s=%q", ErrInvalidValue, k, v)
			}
			v = "0"
			if b {
				v = "1"
			}
		case TypeSelect:
			v = strings.ToLower(strings.TrimSpace(v))
			if !contains(d.Choices, v) {
				return fmt.Errorf("%w: %s=%q", ErrInvalidValue, k, v)
			}
		}
		clean[k] = v
	}
	for k, v := range clean {
		if err := r.Store.Set(ctx, scope, scopeID, k, v); err != nil {
			return fmt.Errorf("store %s: %w", k, err)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
