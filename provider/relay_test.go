package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type recordedCall struct {
	method string
	path   string
	body   any
}

type fakeDoer struct {
	calls []recordedCall
	reply string
	err   error
}

func (f *fakeDoer) Do(_ context.Context, method, path string, body, out any) error {
	f.calls = append(f.calls, recordedCall{method: method, path: path, body: body})
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.reply), out)
}

func newTestRelay(t *testing.T, doer *fakeDoer) *Relay {
	t.Helper()
	a, err := NewAdapter[any](NewSet(), MustPreset("n8n"), WithSource("n8n_api"))
	if err != nil {
		t.Fatal(err)
	}
	return NewRelay(a, doer)
}

func TestRelay_GetIsCached(t *testing.T) {
	doer := &fakeDoer{reply: `{"data":[{"id":"wf1"}]}`}
	r := newTestRelay(t, doer)
	ctx := context.Background()
	req := RelayRequest{
		Tool:   "n8n_list_workflows",
		Path:   "/workflows",
		Params: map[string]any{"active": true, "tags": "prod"},
	}

	first := r.Call(ctx, req)
	second := r.Call(ctx, req)

	if len(doer.calls) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(doer.calls))
	}
	c := doer.calls[0]
	if c.method != "GET" || c.path != "/workflows?active=true&tags=prod" || c.body != nil {
		t.Errorf("call = %+v", c)
	}
	if m := decodeText(t, first); m["source"] != "n8n_api" {
		t.Errorf("first source = %v", m["source"])
	}
	if m := decodeText(t, second); m["source"] != SourceCache {
		t.Errorf("second source = %v", m["source"])
	}
	if r.Provider() != "n8n" {
		t.Errorf("Provider() = %q", r.Provider())
	}
}

func TestRelay_DistinctPathsDoNotCollide(t *testing.T) {
	doer := &fakeDoer{reply: `{}`}
	r := newTestRelay(t, doer)
	ctx := context.Background()

	r.Call(ctx, RelayRequest{Tool: "n8n_get", Path: "/workflows/1"})
	r.Call(ctx, RelayRequest{Tool: "n8n_get", Path: "/workflows/2"})

	if len(doer.calls) != 2 {
		t.Errorf("upstream calls = %d, want 2", len(doer.calls))
	}
}

func TestRelay_WriteSendsBodyAndInvalidates(t *testing.T) {
	doer := &fakeDoer{reply: `{"id":"wf1","active":true}`}
	r := newTestRelay(t, doer)
	ctx := context.Background()

	r.Call(ctx, RelayRequest{Tool: "n8n_list_workflows", Path: "/workflows"})
	if r.adapter.Cache().Len() != 1 {
		t.Fatalf("cache len = %d", r.adapter.Cache().Len())
	}

	resp := r.Call(ctx, RelayRequest{
		Tool:   "n8n_activate",
		Method: "post",
		Path:   "/workflows/wf1/activate",
		Params: map[string]any{"force": true, UseCacheParam: false},
	})
	if resp.IsError {
		t.Fatalf("write failed: %s", resp.Text())
	}

	c := doer.calls[len(doer.calls)-1]
	if c.method != "POST" || c.path != "/workflows/wf1/activate" {
		t.Errorf("call = %+v", c)
	}
	body, ok := c.body.(map[string]any)
	if !ok || body["force"] != true {
		t.Errorf("body = %#v", c.body)
	}
	if _, ok := body[UseCacheParam]; ok {
		t.Error("useCache leaked into the upstream body")
	}
	if r.adapter.Cache().Len() != 0 {
		t.Errorf("cache len after write = %d, want 0", r.adapter.Cache().Len())
	}
}

func TestRelay_Errors(t *testing.T) {
	doer := &fakeDoer{err: errors.New("n8n API error (404): not found")}
	r := newTestRelay(t, doer)
	ctx := context.Background()

	resp := r.Call(ctx, RelayRequest{Tool: "n8n_get", Path: "/workflows/x"})
	if !resp.IsError || resp.Text() != "n8n API error (404): not found" {
		t.Errorf("response = %+v", resp)
	}

	resp = r.Call(ctx, RelayRequest{Tool: "n8n_get"})
	if !resp.IsError || len(doer.calls) != 1 {
		t.Errorf("missing path: response=%+v calls=%d", resp, len(doer.calls))
	}
}

func TestWithQuery(t *testing.T) {
	tests := []struct {
		path   string
		params map[string]any
		want   string
	}{
		{"/files", nil, "/files"},
		{"/files", map[string]any{"q": "name contains 'x'"}, "/files?q=name+contains+%27x%27"},
		{"/files?fields=id", map[string]any{"pageSize": 10}, "/files?fields=id&pageSize=10"},
		{"/files", map[string]any{"skip": nil, "ids": []string{"a"}}, "/files?ids=%5B%22a%22%5D"},
	}
	for _, tt := range tests {
		got, err := withQuery(tt.path, tt.params)
		if err != nil || got != tt.want {
			t.Errorf("withQuery(%q, %v) = (%q, %v), want %q", tt.path, tt.params, got, err, tt.want)
		}
	}
}
