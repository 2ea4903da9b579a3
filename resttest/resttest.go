// Package resttest builds requests and drives handlers in tests the same
// way a real client would: encoded payloads, content negotiation headers
// and per-client credentials.
package resttest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/request"
)

// Format selects the payload encoding of a factory.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatForm    Format = "form"
)

// Factory builds *http.Request values with encoded payloads.
type Factory struct {
	// Format is the payload encoding. Defaults to JSON.
	Format Format
}

// Get builds a GET request.
func (f *Factory) Get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

// Options builds an OPTIONS request.
func (f *Factory) Options(target string) *http.Request {
	return httptest.NewRequest(http.MethodOptions, target, nil)
}

// Delete builds a DELETE request.
func (f *Factory) Delete(target string) *http.Request {
	return httptest.NewRequest(http.MethodDelete, target, nil)
}

// Post builds a POST request with an encoded payload.
func (f *Factory) Post(target string, payload any) *http.Request {
	return f.withBody(http.MethodPost, target, payload)
}

// Put builds a PUT request with an encoded payload.
func (f *Factory) Put(target string, payload any) *http.Request {
	return f.withBody(http.MethodPut, target, payload)
}

// Patch builds a PATCH request with an encoded payload.
func (f *Factory) Patch(target string, payload any) *http.Request {
	return f.withBody(http.MethodPatch, target, payload)
}

func (f *Factory) withBody(method, target string, payload any) *http.Request {
	body, contentType := f.encode(payload)
	raw := httptest.NewRequest(method, target, bytes.NewReader(body))
	raw.Header.Set("Content-Type", contentType)
	return raw
}

func (f *Factory) encode(payload any) ([]byte, string) {
	format := f.Format
	if format == "" {
		format = FormatJSON
	}
	switch format {
	case FormatJSON:
		body, err := json.Marshal(payload)
		if err != nil {
			panic(restflow.Contractf("resttest: encode payload: %v", err))
		}
		return body, "application/json"
	case FormatMsgpack:
		body, err := msgpack.Marshal(payload)
		if err != nil {
			panic(restflow.Contractf("resttest: encode payload: %v", err))
		}
		return body, "application/x-msgpack"
	case FormatForm:
		m, ok := payload.(map[string]any)
		if !ok {
			panic(restflow.Contractf("resttest: form payloads must be maps, got %T", payload))
		}
		values := url.Values{}
		for k, v := range m {
			values.Set(k, toString(v))
		}
		return []byte(values.Encode()), "application/x-www-form-urlencoded"
	}
	panic(restflow.Contractf("resttest: unknown format %q", format))
}

// ForceAuthenticate returns a copy of raw pinned to the given identity,
// bypassing the handler's authenticator chain.
func ForceAuthenticate(raw *http.Request, user request.Identity, auth any) *http.Request {
	return request.WithForcedIdentity(raw, user, auth)
}
