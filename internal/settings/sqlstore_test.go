package settings_test

import (
	"context"
	"testing"

	"github.com/mind-engage/xapi-tracker/internal/db"
	"github.com/mind-engage/xapi-tracker/internal/settings"
)

func TestSQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, "file:sqlstore_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	st := settings.NewSQLStore(h)

	if _, ok, err := st.Get(ctx, settings.ScopeGlobal, "", "oauth_access_token"); err != nil || ok {
		t.Fatalf("empty get: ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, settings.ScopeGlobal, "", "oauth_access_token", "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, settings.ScopeGlobal, "", "oauth_access_token", "tok-2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.Set(ctx, settings.ScopeSurvey, "123456", "oauth_access_token", "survey-tok"); err != nil {
		t.Fatalf("survey set: %v", err)
	}
	v, ok, err := st.Get(ctx, settings.ScopeGlobal, "", "oauth_access_token")
	if err != nil || !ok || v != "tok-2" {
		t.Fatalf("get = %q %v %v", v, ok, err)
	}
	if err := st.Delete(ctx, settings.ScopeGlobal, "", "oauth_access_token"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.Get(ctx, settings.ScopeGlobal, "", "oauth_access_token"); ok {
		t.Fatalf("value still present after delete")
	}
	if v, ok, _ := st.Get(ctx, settings.ScopeSurvey, "123456", "oauth_access_token"); !ok || v != "survey-tok" {
		t.Fatalf("survey scope clobbered: %q %v", v, ok)
	}
}
