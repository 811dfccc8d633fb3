package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SourceCache marks a result served from the provider cache.
const SourceCache = "cache"

// Content is one block of tool output.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the envelope a meta-tool returns to its client.
type Response struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text returns the concatenated text blocks.
func (r Response) Text() string {
	var b bytes.Buffer
	for _, c := range r.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// TextResponse wraps plain text.
func TextResponse(text string) Response {
	return Response{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResponse reports err to the client.
func ErrorResponse(err error) Response {
	r := TextResponse(err.Error())
	r.IsError = true
	return r
}

// JSONResponse renders data as indented JSON tagged with source. JSON
// objects get a "source" member, replacing any "source" the payload already
// carries; any other value is wrapped as {"source": ..., "data": ...}.
// Callers that must keep an upstream "source" field should wrap the payload
// themselves before calling.
func JSONResponse(source string, data any) (Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{}, fmt.Errorf("provider: encode result: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Response{}, fmt.Errorf("provider: encode result: %w", err)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		obj = map[string]any{"data": doc}
	}
	obj["source"] = source

	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return Response{}, fmt.Errorf("provider: encode result: %w", err)
	}
	return TextResponse(string(out)), nil
}
