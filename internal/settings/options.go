package settings

import (
	"context"
	"strings"
)

type Target string

const (
	TargetWebhook Target = "webhook"
	TargetLRS     Target = "lrs"
)

type AuthType string

const (
	AuthBasic  AuthType = "basic"
	AuthOAuth2 AuthType = "oauth2"
)

type RemoteControl struct {
	URL      string
	Username string
	Password string
}

type LRS struct {
	Endpoint string
	AuthType AuthType
	Username string
	Password string
}

type OAuth struct {
	ClientID  string
	TokenURL  string
	LogoutURL string
}

// Options is the typed view of every recognised setting for one dispatch.
type Options struct {
	Target          Target
	WebhookURL      string
	HostEventNames  bool
	SurveyIDs       string
	SigningSecret   string
	SignatureHeader string
	SignaturePrefix string
	RemoteControl   RemoteControl
	LRS             LRS
	OAuth           OAuth
	ActorHomepage   string
	ActivityBase    string
	DefaultLanguage string
	Debug           bool
}

// Options resolves all settings for surveyID. Invalid enum values are
// logged and replaced by their defaults.
func (r *Resolver) Options(ctx context.Context, surveyID string) Options {
	g := func(k string) string { return strings.TrimSpace(r.Global(ctx, k)) }

	o := Options{
		Target:          Target(strings.ToLower(g(KeyTarget))),
		WebhookURL:      g(KeyWebhookURL),
		SurveyIDs:       r.Global(ctx, KeySurveyIDs),
		SigningSecret:   r.Global(ctx, KeySigningSecret),
		SignatureHeader: g(KeySignatureHeader),
		SignaturePrefix: r.Global(ctx, KeySignaturePrefix),
		RemoteControl: RemoteControl{
			URL:      g(KeyRCURL),
			Username: g(KeyRCUsername),
			Password: r.Global(ctx, KeyRCPassword),
		},
		LRS: LRS{
			Endpoint: g(KeyLRSEndpoint),
			AuthType: AuthType(strings.ToLower(g(KeyLRSAuthType))),
			Username: g(KeyLRSUsername),
			Password: r.Global(ctx, KeyLRSPassword),
		},
		OAuth: OAuth{
			ClientID:  g(KeyOAuthClientID),
			TokenURL:  g(KeyOAuthTokenURL),
			LogoutURL: g(KeyOAuthLogoutURL),
		},
		ActorHomepage:   g(KeyActorHomepage),
		ActivityBase:    g(KeyActivityBase),
		DefaultLanguage: g(KeyDefaultLanguage),
	}
	o.Debug, _ = ParseBool(g(KeyDebug))
	o.HostEventNames, _ = ParseBool(g(KeyHostEventNames))

	if surveyID != "" {
		if override, _ := ParseBool(g(KeyLRSSurveyOverride)); override {
			o.LRS.Endpoint = strings.TrimSpace(r.Get(ctx, KeyLRSEndpoint, ScopeSurvey, surveyID, o.LRS.Endpoint))
		}
		o.DefaultLanguage = strings.TrimSpace(r.Get(ctx, KeyDefaultLanguage, ScopeSurvey, surveyID, o.DefaultLanguage))
	}

	switch o.Target {
	case TargetWebhook, TargetLRS:
	case "":
		o.Target = TargetWebhook
	default:
		r.Log.WithField("target", o.Target).Warn("unknown delivery target, using webhook")
		o.Target = TargetWebhook
	}
	switch o.LRS.AuthType {
	case AuthBasic, AuthOAuth2:
	case "":
		o.LRS.AuthType = AuthBasic
	default:
		r.Log.WithField("auth_type", o.LRS.AuthType).Warn("unknown LRS auth type, using basic")
		o.LRS.AuthType = AuthBasic
	}
	if o.SignatureHeader == "" {
		o.SignatureHeader = "X-Signature-SHA256"
	}
	if o.ActivityBase == "" {
		o.ActivityBase = o.ActorHomepage
	}
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = "en"
	}
	return o
}

// StatementsURL is {endpoint}/statements, or "" without an endpoint.
func (l LRS) StatementsURL() string {
	if l.Endpoint == "" {
		return ""
	}
	return strings.TrimRight(l.Endpoint, "/") + "/statements"
}
