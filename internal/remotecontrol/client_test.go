package remotecontrol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mind-engage/xapi-tracker/internal/httpclient"
	"github.com/mind-engage/xapi-tracker/internal/logging"
)

// fakeRC is a scripted remote-control endpoint keyed by method name.
type fakeRC struct {
	mu      sync.Mutex
	calls   []string
	results map[string]any
}

func (f *fakeRC) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		Params []any  `json:"params"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.calls = append(f.calls, req.Method)
	res, ok := f.results[req.Method]
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "error": "unknown method"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "result": res, "error": nil})
}

func (f *fakeRC) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newClient(t *testing.T, results map[string]any) (*Client, *fakeRC) {
	t.Helper()
	fake := &fakeRC{results: results}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	log := logging.Discard()
	return New(srv.URL, httpclient.New(log, 0), log), fake
}

func TestWithSessionReleasesOnError(t *testing.T) {
	c, fake := newClient(t, map[string]any{
		"get_session_key":     "sess-1",
		"release_session_key": "OK",
	})
	boom := errors.New("boom")
	var seen string
	err := c.WithSession(context.Background(), "admin", "pw", func(key string) error {
		seen = key
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if seen != "sess-1" {
		t.Fatalf("key = %q", seen)
	}
	calls := fake.called()
	if len(calls) != 2 || calls[1] != "release_session_key" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestWithSessionMissingResult(t *testing.T) {
	c, fake := newClient(t, map[string]any{})
	ran := false
	err := c.WithSession(context.Background(), "admin", "pw", func(string) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
	if ran || len(fake.called()) != 1 {
		t.Fatalf("fn ran=%v calls=%v", ran, fake.called())
	}
}

func TestGetSessionKeyStatus(t *testing.T) {
	c, _ := newClient(t, map[string]any{
		"get_session_key": map[string]any{"status": "Invalid user name or password"},
	})
	if _, err := c.GetSessionKey(context.Background(), "admin", "bad"); !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
}

func TestExportResponsesByToken(t *testing.T) {
	export := `{"responses":[{"8":{"id":"8","Q1[SQ001]":"old"}},{"9":{"id":"9","token":"tok","Q1[SQ001]":"A1","Q2":"yes","Q3":null}}]}`
	c, _ := newClient(t, map[string]any{
		"export_responses_by_token": base64.StdEncoding.EncodeToString([]byte(export)),
	})
	got, err := c.ExportResponsesByToken(context.Background(), "sess", 123456, "tok", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got["id"] != "9" || got["Q1[SQ001]"] != "A1" || got["Q2"] != "yes" {
		t.Fatalf("export = %v", got)
	}
	if v, ok := got["Q3"]; !ok || v != "" {
		t.Fatalf("null answer = %q %v", v, ok)
	}
}

func TestDecodeExportFlat(t *testing.T) {
	got, err := decodeExport([]byte(`{"responses":[{"id":"4","Q2":"no"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got["Q2"] != "no" || got["id"] != "4" {
		t.Fatalf("export = %v", got)
	}
	if _, err := decodeExport([]byte(`{"responses":[]}`)); !errors.Is(err, ErrNoResult) {
		t.Fatalf("empty export err = %v", err)
	}
}

func TestListGroupsAndQuestions(t *testing.T) {
	c, _ := newClient(t, map[string]any{
		"list_groups": []map[string]any{
			{"gid": 20, "group_order": "2", "group_name": "Second"},
			{"gid": 10, "group_order": "1", "group_name": "First"},
		},
		"list_questions": []map[string]any{
			{"qid": "102", "parent_qid": "100", "gid": "10", "title": "SQ002", "type": "T", "question_order": "2"},
			{"qid": "101", "parent_qid": "100", "gid": "10", "title": "SQ001", "type": "T", "question_order": "1"},
			{"qid": "100", "parent_qid": "0", "gid": "10", "title": "Q1", "type": "F", "question_order": "1", "question_theme_name": "arrays/array"},
		},
	})
	ctx := context.Background()
	groups, err := c.ListGroups(ctx, "sess", 123456)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].ID != 10 || groups[1].Name != "Second" {
		t.Fatalf("groups = %+v", groups)
	}
	qs, err := c.ListQuestions(ctx, "sess", 123456, 10, "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 3 || qs[0].Title != "Q1" || qs[1].Title != "SQ001" || qs[2].ParentID != 100 {
		t.Fatalf("questions = %+v", qs)
	}
	if qs[0].Theme != "arrays/array" {
		t.Fatalf("theme = %q", qs[0].Theme)
	}
}

func TestListQuestionsKeepsSubQuestionsWithParent(t *testing.T) {
	c, _ := newClient(t, map[string]any{
		"list_questions": []map[string]any{
			{"qid": "1", "parent_qid": "0", "gid": "10", "title": "Q1", "type": "F", "question_order": "1"},
			{"qid": "2", "parent_qid": "0", "gid": "10", "title": "Q2", "type": "T", "question_order": "2"},
			{"qid": "3", "parent_qid": "0", "gid": "10", "title": "Q3", "type": "F", "question_order": "3"},
			{"qid": "12", "parent_qid": "1", "gid": "10", "title": "SQ002", "type": "T", "question_order": "2"},
			{"qid": "31", "parent_qid": "3", "gid": "10", "title": "SQ001", "type": "T", "question_order": "1"},
			{"qid": "11", "parent_qid": "1", "gid": "10", "title": "SQ001", "type": "T", "question_order": "1"},
		},
	})
	qs, err := c.ListQuestions(context.Background(), "sess", 123456, 10, "en")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 11, 12, 2, 3, 31}
	if len(qs) != len(want) {
		t.Fatalf("questions = %+v", qs)
	}
	for i, id := range want {
		if qs[i].ID != id {
			t.Fatalf("position %d: qid %d, want %d (all: %+v)", i, qs[i].ID, id, qs)
		}
	}
}
