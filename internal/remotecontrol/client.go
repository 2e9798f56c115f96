// Package remotecontrol talks to the survey platform's JSON-RPC remote
// control API: session keys, response export and question metadata.
package remotecontrol

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

var (
	// ErrNoResult means the RPC answer carried no usable result field.
	ErrNoResult = errors.New("remotecontrol: no result")
	// ErrStatus means the API answered with a {"status": "..."} object.
	ErrStatus = errors.New("remotecontrol: status")
)

type Client struct {
	URL  string
	HTTP *retryablehttp.Client
	Log  logrus.FieldLogger
}

func New(url string, hc *retryablehttp.Client, log logrus.FieldLogger) *Client {
	return &Client{URL: url, HTTP: hc, Log: log}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

// call posts one request and returns its result. A missing or null result,
// or a status object in place of data, is an error.
func (c *Client) call(ctx context.Context, method string, params ...any) (gjson.Result, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: 1})
	if err != nil {
		return gjson.Result{}, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read: %w", method, err)
	}
	if res.StatusCode/100 != 2 {
		return gjson.Result{}, fmt.Errorf("%s: %s", method, res.Status)
	}
	result := gjson.GetBytes(raw, "result")
	if !result.Exists() || result.Type == gjson.Null {
		if msg := gjson.GetBytes(raw, "error").String(); msg != "" {
			return gjson.Result{}, fmt.Errorf("%s: %w: %s", method, ErrNoResult, msg)
		}
		return gjson.Result{}, fmt.Errorf("%s: %w", method, ErrNoResult)
	}
	if result.IsObject() {
		if st := result.Get("status"); st.Exists() && len(result.Map()) == 1 && st.String() != "OK" {
			return gjson.Result{}, fmt.Errorf("%s: %w: %s", method, ErrStatus, st.String())
		}
	}
	return result, nil
}

// GetSessionKey authenticates and returns a fresh session key.
func (c *Client) GetSessionKey(ctx context.Context, username, password string) (string, error) {
	res, err := c.call(ctx, "get_session_key", username, password)
	if err != nil {
		return "", err
	}
	if res.Type != gjson.String || res.Str == "" {
		return "", fmt.Errorf("get_session_key: %w", ErrNoResult)
	}
	return res.Str, nil
}

func (c *Client) ReleaseSessionKey(ctx context.Context, key string) error {
	_, err := c.call(ctx, "release_session_key", key)
	return err
}

// WithSession acquires a session key, runs fn with it and releases the key
// afterwards whatever fn returned. Release failures are logged only.
func (c *Client) WithSession(ctx context.Context, username, password string, fn func(key string) error) error {
	key, err := c.GetSessionKey(ctx, username, password)
	if err != nil {
		return err
	}
	defer func() {
		// release must go out even when ctx is already done
		if err := c.ReleaseSessionKey(context.WithoutCancel(ctx), key); err != nil {
			c.Log.WithError(err).WithField("url", c.URL).Warn("release_session_key failed")
		}
	}()
	return fn(key)
}

// ExportResponsesByToken returns the newest exported response for token as
// a map of answer code to value. Codes use the export's "code" heading
// style, so sub-questions come back as Parent[Child].
func (c *Client) ExportResponsesByToken(ctx context.Context, key string, surveyID int, token, lang string) (map[string]string, error) {
	res, err := c.call(ctx, "export_responses_by_token", key, surveyID, "json", token, lang, "all", "code", "long")
	if err != nil {
		return nil, err
	}
	if res.Type != gjson.String {
		return nil, fmt.Errorf("export_responses_by_token: %w", ErrNoResult)
	}
	doc, err := base64.StdEncoding.DecodeString(res.Str)
	if err != nil {
		return nil, fmt.Errorf("export_responses_by_token: decode: %w", err)
	}
	return decodeExport(doc)
}

// decodeExport picks the last entry of "responses". Older exports wrap each
// response in an object keyed by its id; that wrapper is removed.
func decodeExport(doc []byte) (map[string]string, error) {
	list := gjson.GetBytes(doc, "responses").Array()
	if len(list) == 0 {
		return nil, fmt.Errorf("export_responses_by_token: %w: empty export", ErrNoResult)
	}
	last := list[len(list)-1]
	if m := last.Map(); len(m) == 1 {
		for _, v := range m {
			if v.IsObject() {
				last = v
			}
		}
	}
	out := map[string]string{}
	last.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.Null {
			out[k.String()] = ""
		} else {
			out[k.String()] = v.String()
		}
		return true
	})
	return out, nil
}

type Group struct {
	ID    int
	Order int
	Name  string
}

// ListGroups returns the survey's question groups sorted by display order.
func (c *Client) ListGroups(ctx context.Context, key string, surveyID int) ([]Group, error) {
	res, err := c.call(ctx, "list_groups", key, surveyID)
	if err != nil {
		return nil, err
	}
	var out []Group
	for _, g := range res.Array() {
		out = append(out, Group{
			ID:    int(g.Get("gid").Int()),
			Order: int(g.Get("group_order").Int()),
			Name:  g.Get("group_name").String(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

type Question struct {
	ID       int
	ParentID int
	GroupID  int
	Title    string
	Type     string
	Order    int
	Theme    string
}

// ListQuestions returns the questions of one group, sub-questions included,
// in display order with each parent directly ahead of its children.
func (c *Client) ListQuestions(ctx context.Context, key string, surveyID, groupID int, lang string) ([]Question, error) {
	res, err := c.call(ctx, "list_questions", key, surveyID, groupID, lang)
	if err != nil {
		return nil, err
	}
	var out []Question
	for _, q := range res.Array() {
		out = append(out, Question{
			ID:       int(q.Get("qid").Int()),
			ParentID: int(q.Get("parent_qid").Int()),
			GroupID:  int(q.Get("gid").Int()),
			Title:    q.Get("title").String(),
			Type:     q.Get("type").String(),
			Order:    int(q.Get("question_order").Int()),
			Theme:    q.Get("question_theme_name").String(),
		})
	}
	sortQuestions(out)
	return out, nil
}

// sortQuestions puts qs in display order: top-level questions by order,
// each followed directly by its sub-questions in their own order.
func sortQuestions(qs []Question) {
	top := make(map[int]Question, len(qs))
	for _, q := range qs {
		if q.ParentID == 0 {
			top[q.ID] = q
		}
	}
	// root is the top-level question q belongs to; orphans stand alone.
	root := func(q Question) Question {
		if p, ok := top[q.ParentID]; ok {
			return p
		}
		return q
	}
	sort.SliceStable(qs, func(i, j int) bool {
		ri, rj := root(qs[i]), root(qs[j])
		if ri.Order != rj.Order {
			return ri.Order < rj.Order
		}
		if ri.ID != rj.ID {
			return ri.ID < rj.ID
		}
		ci, cj := qs[i].ID != ri.ID, qs[j].ID != rj.ID
		if ci != cj {
			return cj
		}
		return qs[i].Order < qs[j].Order
	})
}
