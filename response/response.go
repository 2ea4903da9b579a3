// Package response carries action results back through the dispatch core
// and renders them onto the wire. Renderers are selected by content
// negotiation; the JSON renderer is the default.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/restflow"
)

// Response is the unrendered result of an action.
type Response struct {
	Status  int
	Data    any
	Headers http.Header

	finalized bool
}

// New returns a response with the given status and payload.
func New(status int, data any) *Response {
	return &Response{Status: status, Data: data, Headers: make(http.Header)}
}

// NoContent returns an empty 204 response.
func NoContent() *Response { return New(http.StatusNoContent, nil) }

// Header sets a response header and returns the response for chaining.
func (r *Response) Header(key, value string) *Response {
	r.Headers.Set(key, value)
	return r
}

// Finalized reports whether the response has been written.
func (r *Response) Finalized() bool { return r.finalized }

// Write renders the response once. Writing twice is an integrator defect.
func (r *Response) Write(w http.ResponseWriter, renderer Renderer) error {
	if r.finalized {
		panic(restflow.Contractf("response already finalized"))
	}
	r.finalized = true
	for key, values := range r.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if r.Data == nil {
		w.WriteHeader(r.Status)
		return nil
	}
	body, err := renderer.Render(r.Data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(r.Status)
	_, err = w.Write(body)
	return err
}

// Renderer serializes a payload for one media type.
type Renderer interface {
	Render(v any) ([]byte, error)
	ContentType() string
}

// JSONRenderer renders application/json.
type JSONRenderer struct {
	// Indent pretty-prints output when non-empty.
	Indent string
}

// Render implements Renderer.
func (r JSONRenderer) Render(v any) ([]byte, error) {
	if r.Indent != "" {
		return json.MarshalIndent(v, "", r.Indent)
	}
	return json.Marshal(v)
}

// ContentType implements Renderer.
func (JSONRenderer) ContentType() string { return "application/json" }

// MsgpackRenderer renders application/x-msgpack.
type MsgpackRenderer struct{}

// Render implements Renderer.
func (MsgpackRenderer) Render(v any) ([]byte, error) { return msgpack.Marshal(v) }

// ContentType implements Renderer.
func (MsgpackRenderer) ContentType() string { return "application/x-msgpack" }

// Negotiate selects a renderer for the request's Accept header. The first
// renderer is the default, matching */* and absent headers.
func Negotiate(renderers []Renderer, accept string) Renderer {
	if len(renderers) == 0 {
		return JSONRenderer{}
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mediaType == "" || mediaType == "*/*" {
			return renderers[0]
		}
		for _, r := range renderers {
			if mediaType == r.ContentType() {
				return r
			}
			if strings.HasSuffix(mediaType, "/*") &&
				strings.HasPrefix(r.ContentType(), strings.TrimSuffix(mediaType, "*")) {
				return r
			}
		}
	}
	return renderers[0]
}
