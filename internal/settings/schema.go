package settings

import "strings"

const (
	KeyTarget            = "target"
	KeyWebhookURL        = "webhook_url"
	KeyHostEventNames    = "webhook_host_event_names"
	KeySurveyIDs         = "survey_ids"
	KeySigningSecret     = "signing_secret"
	KeySignatureHeader   = "signature_header"
	KeySignaturePrefix   = "signature_prefix"
	KeyRCURL             = "rc_url"
	KeyRCUsername        = "rc_username"
	KeyRCPassword        = "rc_password"
	KeyLRSEndpoint       = "lrs_endpoint"
	KeyLRSSurveyOverride = "lrs_survey_override"
	KeyLRSAuthType       = "lrs_auth_type"
	KeyLRSUsername       = "lrs_username"
	KeyLRSPassword       = "lrs_password"
	KeyOAuthClientID     = "oauth_client_id"
	KeyOAuthTokenURL     = "oauth_token_url"
	KeyOAuthLogoutURL    = "oauth_logout_url"
	KeyActorHomepage     = "actor_homepage"
	KeyActivityBase      = "activity_base"
	KeyDefaultLanguage   = "default_language"
	KeyDebug             = "debug"
)

type FieldType string

const (
	TypeString   FieldType = "string"
	TypePassword FieldType = "password"
	TypeCheckbox FieldType = "checkbox"
	TypeSelect   FieldType = "select"
)

// Definition describes one recognised setting the host renders a form for.
type Definition struct {
	Key     string    `json:"key"`
	Type    FieldType `json:"type"`
	Label   string    `json:"label"`
	Help    string    `json:"help,omitempty"`
	Default string    `json:"default"`
	Choices []string  `json:"choices,omitempty"`
	// SurveyScoped settings may also be stored per survey.
	SurveyScoped bool `json:"surveyScoped,omitempty"`
}

// Schema lists every recognised setting in form order.
var Schema = []Definition{
	{Key: KeyTarget, Type: TypeSelect, Label: "Delivery target", Default: string(TargetWebhook),
		Choices: []string{string(TargetWebhook), string(TargetLRS)},
		Help:    "webhook posts a signed JSON envelope; lrs posts xAPI statements"},
	{Key: KeyWebhookURL, Type: TypeString, Label: "The default URL to send the webhook to",
		Help: "To test get one from https://webhook.site"},
	{Key: KeyHostEventNames, Type: TypeCheckbox, Label: "Use host event names in webhooks", Default: "0",
		Help: "Send afterSurveyComplete, beforeSurveyPage and afterResponseSave instead of survey-completed and the like"},
	{Key: KeySurveyIDs, Type: TypeString, Label: "The ID of the surveys",
		Help: "Comma separated, e.g. 123456, 234567. Leave empty to track all surveys"},
	{Key: KeySigningSecret, Type: TypePassword, Label: "Signing secret",
		Help: "When set, every webhook body is signed with HMAC-SHA256"},
	{Key: KeySignatureHeader, Type: TypeString, Label: "Header signature name", Default: "X-Signature-SHA256"},
	{Key: KeySignaturePrefix, Type: TypeString, Label: "Header signature prefix"},
	{Key: KeyRCURL, Type: TypeString, Label: "RemoteControl API URL"},
	{Key: KeyRCUsername, Type: TypeString, Label: "RemoteControl username"},
	{Key: KeyRCPassword, Type: TypePassword, Label: "RemoteControl password"},
	{Key: KeyLRSEndpoint, Type: TypeString, Label: "LRS endpoint", SurveyScoped: true,
		Help: "Statements are posted to {endpoint}/statements"},
	{Key: KeyLRSSurveyOverride, Type: TypeCheckbox, Label: "Allow per-survey LRS endpoint", Default: "0"},
	{Key: KeyLRSAuthType, Type: TypeSelect, Label: "LRS authentication", Default: string(AuthBasic),
		Choices: []string{string(AuthBasic), string(AuthOAuth2)}},
	{Key: KeyLRSUsername, Type: TypeString, Label: "LRS username"},
	{Key: KeyLRSPassword, Type: TypePassword, Label: "LRS password"},
	{Key: KeyOAuthClientID, Type: TypeString, Label: "OAuth2 client id"},
	{Key: KeyOAuthTokenURL, Type: TypeString, Label: "OAuth2 token endpoint"},
	{Key: KeyOAuthLogoutURL, Type: TypeString, Label: "OAuth2 logout endpoint"},
	{Key: KeyActorHomepage, Type: TypeString, Label: "Actor account homepage", Default: "https://example.org"},
	{Key: KeyActivityBase, Type: TypeString, Label: "Activity id base URL",
		Help: "Defaults to the actor homepage"},
	{Key: KeyDefaultLanguage, Type: TypeString, Label: "Survey default language", Default: "en", SurveyScoped: true},
	{Key: KeyDebug, Type: TypeCheckbox, Label: "Enable Debug Mode", Default: "0",
		Help: "Respondents see the transmitted data as well, turn this off for live surveys"},
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, d := range Schema {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseBool accepts the checkbox encodings the host uses.
func ParseBool(v string) (b bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true, true
	case "", "0", "false", "off", "no":
		return false, true
	}
	return false, false
}
