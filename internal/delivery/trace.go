package delivery

import (
	"html"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Trace is the human-readable record of one dispatch shown in debug mode.
type Trace struct {
	Event    string            `yaml:"event"`
	SurveyID string            `yaml:"survey_id"`
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Payload  string            `yaml:"payload"`
	Status   int               `yaml:"status"`
	Response string            `yaml:"response"`
	Elapsed  string            `yaml:"execution_time"`
}

// NewTrace records a delivery. Headers are redacted.
func NewTrace(event, surveyID, url string, r Response, elapsed time.Duration) Trace {
	t := Trace{
		Event:    event,
		SurveyID: surveyID,
		URL:      url,
		Payload:  string(r.Payload),
		Status:   r.Status,
		Response: r.Body,
		Elapsed:  elapsed.Round(time.Microsecond).String(),
	}
	if r.Headers != nil {
		t.Headers = redact(r.Headers)
	}
	return t
}

// HTML renders the trace as escaped YAML inside a <pre> block.
func (t Trace) HTML() string {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return "<pre>" + html.EscapeString(err.Error()) + "</pre>"
	}
	_ = enc.Close()
	return "<pre>" + html.EscapeString(b.String()) + "</pre>"
}
