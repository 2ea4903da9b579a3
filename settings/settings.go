// Package settings holds the deployment-level configuration: pagination
// defaults, renderer selection, throttle rates and the auth header scheme.
// Settings are validated on load and immutable afterwards; hot reload
// swaps whole snapshots atomically.
package settings

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/throttle"
)

// Settings is one immutable configuration snapshot.
type Settings struct {
	// PageSize is the default page size for paginated lists.
	PageSize int `yaml:"page_size"`

	// PageSizeParam, when set, lets clients pick a page size up to
	// MaxPageSize.
	PageSizeParam string `yaml:"page_size_param"`
	MaxPageSize   int    `yaml:"max_page_size"`

	// Renderers names the response renderers, first is the negotiation
	// default. Known names: "json", "msgpack".
	Renderers []string `yaml:"renderers"`

	// ThrottleRates maps throttle scopes to rates like "100/min".
	ThrottleRates map[string]string `yaml:"throttle_rates"`

	// AuthScheme is the Authorization header keyword for token
	// authentication.
	AuthScheme string `yaml:"auth_scheme"`
}

// Default returns the baseline configuration.
func Default() Settings {
	return Settings{
		PageSize:   25,
		Renderers:  []string{"json"},
		AuthScheme: "Token",
	}
}

var rendererNames = map[string]func() response.Renderer{
	"json":    func() response.Renderer { return response.JSONRenderer{} },
	"msgpack": func() response.Renderer { return response.MsgpackRenderer{} },
}

// Validate checks the snapshot for configuration defects.
func (s Settings) Validate() error {
	if s.PageSize <= 0 {
		return restflow.Configf("settings: page_size must be positive, got %d", s.PageSize)
	}
	if len(s.Renderers) == 0 {
		return restflow.Configf("settings: at least one renderer is required")
	}
	for _, name := range s.Renderers {
		if _, ok := rendererNames[name]; !ok {
			return restflow.Configf("settings: unknown renderer %q", name)
		}
	}
	for scope, spec := range s.ThrottleRates {
		if _, err := throttle.ParseRate(spec); err != nil {
			return restflow.Configf("settings: throttle scope %q: %v", scope, err)
		}
	}
	if s.AuthScheme == "" {
		return restflow.Configf("settings: auth_scheme must not be empty")
	}
	return nil
}

// RendererList resolves the configured renderer names.
func (s Settings) RendererList() []response.Renderer {
	out := make([]response.Renderer, 0, len(s.Renderers))
	for _, name := range s.Renderers {
		if build, ok := rendererNames[name]; ok {
			out = append(out, build())
		}
	}
	return out
}

// Load reads a yaml file over the defaults and validates the result.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, restflow.Configf("settings: read %s: %v", path, err)
	}
	return Parse(raw)
}

// Parse decodes yaml over the defaults and validates the result.
func Parse(raw []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Settings{}, restflow.Configf("settings: parse: %v", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
