package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mind-engage/xapi-tracker/internal/auth"
	"github.com/mind-engage/xapi-tracker/internal/auth/middleware"
	"github.com/mind-engage/xapi-tracker/internal/config"
	"github.com/mind-engage/xapi-tracker/internal/delivery"
	"github.com/mind-engage/xapi-tracker/internal/httpclient"
	"github.com/mind-engage/xapi-tracker/internal/logging"
	"github.com/mind-engage/xapi-tracker/internal/settings"
	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

type upstream struct {
	mu      sync.Mutex
	hooks   []string
	logouts []string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	defer u.mu.Unlock()
	switch r.URL.Path {
	case "/hook":
		u.hooks = append(u.hooks, string(b))
	case "/logout":
		u.logouts = append(u.logouts, string(b))
	}
	w.WriteHeader(http.StatusOK)
}

type fixture struct {
	srv   *httptest.Server
	store *settings.MemoryStore
	up    *upstream
	upURL string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	up := &upstream{}
	upSrv := httptest.NewServer(up)
	t.Cleanup(upSrv.Close)

	log := logging.Discard()
	store := settings.NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, settings.ScopeGlobal, "", settings.KeyWebhookURL, upSrv.URL+"/hook")
	_ = store.Set(ctx, settings.ScopeGlobal, "", settings.KeySurveyIDs, "123456")

	res := settings.NewResolver(store, config.Settings{Fixed: map[string]string{settings.KeySignatureHeader: "X-Sig"}}, log)
	eng := tracker.NewEngine(res, nil, delivery.New(httpclient.New(log, 0), log), log)
	r := NewRouter(Server{Engine: eng, Settings: res, Admin: middleware.AdminToken{Token: "admin-secret"}, Log: log}, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, up: up, upURL: upSrv.URL}
}

func (f *fixture) do(t *testing.T, method, path, bearer, body string) (int, string) {
	t.Helper()
	req, _ := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	if code, _ := f.do(t, http.MethodGet, "/healthz", "", ""); code != 200 {
		t.Fatalf("healthz = %d", code)
	}
}

func TestPostEvent(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/events?token=tok&lang=de", "", `{"event":"survey-started","surveyId":"123456"}`)
	if code != 200 {
		t.Fatalf("status = %d %s", code, body)
	}
	var out tracker.Outcome
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Delivered || out.Target != "webhook" {
		t.Fatalf("outcome = %+v", out)
	}
	if len(f.up.hooks) != 1 || !strings.Contains(f.up.hooks[0], `"name":"tok"`) || !strings.Contains(f.up.hooks[0], `"lang":"de"`) {
		t.Fatalf("hooks = %v", f.up.hooks)
	}

	if code, _ := f.do(t, http.MethodPost, "/events", "", `{"event":`); code != 400 {
		t.Fatalf("bad json status = %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/events", "", `{"event":"nope","surveyId":"1"}`); code != 400 {
		t.Fatalf("bad event status = %d", code)
	}
}

func TestAdminSettings(t *testing.T) {
	f := newFixture(t)
	post := func(bearer, body string) (int, string) {
		return f.do(t, http.MethodPost, "/admin/settings", bearer, body)
	}

	if code, _ := post("", `{"settings":{"debug":"1"}}`); code != 401 {
		t.Fatalf("no bearer = %d", code)
	}
	if code, _ := post("wrong", `{"settings":{"debug":"1"}}`); code != 401 {
		t.Fatalf("wrong bearer = %d", code)
	}
	if code, _ := post("admin-secret", `not json`); code != 400 {
		t.Fatalf("malformed = %d", code)
	}
	if code, _ := post("admin-secret", `{"settings":{"no_such_key":"1"}}`); code != 400 {
		t.Fatalf("unknown key = %d", code)
	}
	if code, _ := post("admin-secret", `{"settings":{"signature_header":"X-Other"}}`); code != 400 {
		t.Fatalf("fixed key = %d", code)
	}

	code, body := post("admin-secret", `{"settings":{"target":"lrs","lrs_endpoint":"https://lrs.example/xapi"}}`)
	if code != 200 || strings.TrimSpace(body) != `{"result":"ok"}` {
		t.Fatalf("update = %d %s", code, body)
	}
	if v, _, _ := f.store.Get(context.Background(), settings.ScopeGlobal, "", settings.KeyTarget); v != "lrs" {
		t.Fatalf("target = %q", v)
	}

	code, body = post("admin-secret", `{"surveyId":"123456","settings":{"default_language":"fr"}}`)
	if code != 200 {
		t.Fatalf("survey update = %d %s", code, body)
	}

	code, body = f.do(t, http.MethodGet, "/admin/settings", "admin-secret", "")
	if code != 200 || !strings.Contains(body, `"lrs_endpoint"`) {
		t.Fatalf("describe = %d %s", code, body)
	}
}

func TestCredentialChangeLogsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.Set(ctx, settings.ScopeGlobal, "", settings.KeyOAuthLogoutURL, f.upURL+"/logout")
	_ = f.store.Set(ctx, settings.ScopeGlobal, "", auth.KeyAccessToken, "old-access")
	_ = f.store.Set(ctx, settings.ScopeGlobal, "", auth.KeyRefreshToken, "old-refresh")

	code, _ := f.do(t, http.MethodPost, "/admin/settings", "admin-secret", `{"settings":{"oauth_client_id":"new-client"}}`)
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if len(f.up.logouts) != 1 || !strings.Contains(f.up.logouts[0], "refresh_token=old-refresh") {
		t.Fatalf("logouts = %v", f.up.logouts)
	}
	if _, ok, _ := f.store.Get(ctx, settings.ScopeGlobal, "", auth.KeyAccessToken); ok {
		t.Fatalf("token cache not cleared")
	}
}
