package resttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/restflow/request"
)

// Client issues requests against an in-process handler. Credentials and a
// forced identity, once set, apply to every request the client sends.
type Client struct {
	// Handler receives the requests: a view, a bound viewset or a router
	// tree.
	Handler http.Handler

	// Factory encodes payloads.
	Factory Factory

	headers    http.Header
	forced     bool
	forcedUser request.Identity
	forcedAuth any
}

// NewClient returns a client over the handler.
func NewClient(h http.Handler) *Client {
	return &Client{Handler: h, headers: make(http.Header)}
}

// Credentials sets a header sent with every request, e.g.
// ("Authorization", "Token abc").
func (c *Client) Credentials(header, value string) *Client {
	c.headers.Set(header, value)
	return c
}

// ForceAuthenticate pins every request to the given identity.
func (c *Client) ForceAuthenticate(user request.Identity, auth any) *Client {
	c.forced = true
	c.forcedUser, c.forcedAuth = user, auth
	return c
}

// Accept sets the Accept header sent with every request.
func (c *Client) Accept(mediaType string) *Client {
	c.headers.Set("Accept", mediaType)
	return c
}

// Do sends one request through the handler.
func (c *Client) Do(raw *http.Request) *Result {
	for key, values := range c.headers {
		for _, v := range values {
			raw.Header.Set(key, v)
		}
	}
	if c.forced {
		raw = ForceAuthenticate(raw, c.forcedUser, c.forcedAuth)
	}
	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, raw)
	return &Result{Code: w.Code, Header: w.Result().Header, Body: w.Body.Bytes()}
}

// Get issues a GET.
func (c *Client) Get(target string) *Result { return c.Do(c.Factory.Get(target)) }

// Options issues an OPTIONS.
func (c *Client) Options(target string) *Result { return c.Do(c.Factory.Options(target)) }

// Delete issues a DELETE.
func (c *Client) Delete(target string) *Result { return c.Do(c.Factory.Delete(target)) }

// Post issues a POST with an encoded payload.
func (c *Client) Post(target string, payload any) *Result {
	return c.Do(c.Factory.Post(target, payload))
}

// Put issues a PUT with an encoded payload.
func (c *Client) Put(target string, payload any) *Result {
	return c.Do(c.Factory.Put(target, payload))
}

// Patch issues a PATCH with an encoded payload.
func (c *Client) Patch(target string, payload any) *Result {
	return c.Do(c.Factory.Patch(target, payload))
}

// Result is one completed exchange.
type Result struct {
	Code   int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into v according to the response content
// type.
func (r *Result) Decode(v any) error {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-msgpack") {
		return msgpack.Unmarshal(r.Body, v)
	}
	return json.Unmarshal(r.Body, v)
}

// JSON returns the body decoded into a generic value.
func (r *Result) JSON() (any, error) {
	var v any
	err := json.Unmarshal(r.Body, &v)
	return v, err
}

// Map returns the body decoded as an object.
func (r *Result) Map() (map[string]any, error) {
	var m map[string]any
	if err := r.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
