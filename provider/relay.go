package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Doer sends one JSON request to a provider API. *upstream.Client
// implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// RelayRequest is a generic tool call forwarded to a provider API.
type RelayRequest struct {
	Tool   string         `json:"tool"`
	Method string         `json:"method,omitempty"`
	Path   string         `json:"path"`
	Params map[string]any `json:"params,omitempty"`
	Tags   []string       `json:"tags,omitempty"`
}

// Relay forwards RelayRequests through an Adapter, so GET results are
// cached per provider and writes invalidate the provider cache.
type Relay struct {
	adapter *Adapter[any]
	client  Doer
}

// NewRelay creates a Relay.
func NewRelay(adapter *Adapter[any], client Doer) *Relay {
	return &Relay{adapter: adapter, client: client}
}

// Provider returns the provider name.
func (r *Relay) Provider() string {
	return r.adapter.Name()
}

// Call forwards req. GET params become the query string; other methods
// send params as the JSON body and are tagged "write".
func (r *Relay) Call(ctx context.Context, req RelayRequest) Response {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if req.Tool == "" || req.Path == "" {
		return ErrorResponse(fmt.Errorf("provider: tool and path are required"))
	}

	input, _ := splitUseCache(req.Params)
	tags := req.Tags
	if method != http.MethodGet && !slices.Contains(tags, "write") {
		tags = append(slices.Clone(tags), "write")
	}

	keyParams := maps.Clone(req.Params)
	if keyParams == nil {
		keyParams = map[string]any{}
	}
	keyParams["_method"] = method
	keyParams["_path"] = req.Path

	return r.adapter.Call(ctx, req.Tool, keyParams, tags, func(ctx context.Context) (any, error) {
		var out any
		if method == http.MethodGet {
			path, err := withQuery(req.Path, input)
			if err != nil {
				return nil, err
			}
			err = r.client.Do(ctx, method, path, nil, &out)
			return out, err
		}
		err := r.client.Do(ctx, method, req.Path, input, &out)
		return out, err
	})
}

func withQuery(path string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return path, nil
	}
	q := url.Values{}
	for _, k := range slices.Sorted(maps.Keys(params)) {
		switch v := params[k].(type) {
		case string:
			q.Set(k, v)
		case nil:
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("provider: encode query param %q: %w", k, err)
			}
			q.Set(k, string(b))
		}
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode(), nil
}
