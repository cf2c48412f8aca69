package platform

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// queryPlaceholder is substituted with the escaped query in SearchURL templates
const queryPlaceholder = "{query}"

// fallbackSearchURL is used for platforms missing from the registry
const fallbackSearchURL = "https://www.google.com/search?q=" + queryPlaceholder

// Platform describes one AI service the search pretends to query
type Platform struct {
	Name      string `yaml:"name" json:"name"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	HomeURL   string `yaml:"home_url" json:"homeUrl"`
	SearchURL string `yaml:"search_url" json:"searchUrl"`
}

// Registry is an immutable, ordered set of platforms
type Registry struct {
	platforms []Platform
	byName    map[string]int
}

type registryFile struct {
	Platforms []Platform `yaml:"platforms"`
}

// DefaultPlatforms returns the built-in five platform registry entries
func DefaultPlatforms() []Platform {
	return []Platform{
		{
			Name:      "OpenAI GPT",
			Endpoint:  "https://api.openai.com",
			HomeURL:   "https://openai.com",
			SearchURL: "https://www.google.com/search?q=site:openai.com+" + queryPlaceholder,
		},
		{
			Name:      "Google Bard",
			Endpoint:  "https://bard.google.com",
			HomeURL:   "https://bard.google.com",
			SearchURL: "https://www.google.com/search?q=Google+Bard+" + queryPlaceholder,
		},
		{
			Name:      "Anthropic Claude",
			Endpoint:  "https://api.anthropic.com",
			HomeURL:   "https://claude.ai",
			SearchURL: "https://www.google.com/search?q=site:anthropic.com+" + queryPlaceholder,
		},
		{
			Name:      "Microsoft Copilot",
			Endpoint:  "https://copilot.microsoft.com",
			HomeURL:   "https://copilot.microsoft.com",
			SearchURL: "https://www.google.com/search?q=Microsoft+Copilot+" + queryPlaceholder,
		},
		{
			Name:      "Meta LLaMA",
			Endpoint:  "https://llama.meta.com",
			HomeURL:   "https://llama.meta.com",
			SearchURL: "https://www.google.com/search?q=Meta+LLaMA+" + queryPlaceholder,
		},
	}
}

// Default returns the built-in registry
func Default() *Registry {
	reg, err := NewRegistry(DefaultPlatforms())
	if err != nil {
		// built-in data is static; a failure here is a programming error
		panic(err)
	}
	return reg
}

// NewRegistry validates platforms and builds a registry preserving their order
func NewRegistry(platforms []Platform) (*Registry, error) {
	if len(platforms) == 0 {
		return nil, fmt.Errorf("at least one platform must be configured")
	}

	reg := &Registry{
		platforms: make([]Platform, 0, len(platforms)),
		byName:    make(map[string]int, len(platforms)),
	}

	for i, p := range platforms {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("platform[%d]: name is required", i)
		}
		if _, dup := reg.byName[p.Name]; dup {
			return nil, fmt.Errorf("platform[%d]: duplicate name %q", i, p.Name)
		}
		if p.SearchURL != "" && !strings.Contains(p.SearchURL, queryPlaceholder) {
			return nil, fmt.Errorf("platform[%d]: search_url must contain %s", i, queryPlaceholder)
		}
		reg.byName[p.Name] = len(reg.platforms)
		reg.platforms = append(reg.platforms, p)
	}

	return reg, nil
}

// LoadRegistry reads a YAML registry file of the form
//
//	platforms:
//	  - name: OpenAI GPT
//	    search_url: "https://www.google.com/search?q=site:openai.com+{query}"
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry YAML: %w", err)
	}

	reg, err := NewRegistry(file.Platforms)
	if err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	return reg, nil
}

// Platforms returns a copy of the registry entries in order
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, len(r.platforms))
	copy(out, r.platforms)
	return out
}

// Names returns the platform names in registry order
func (r *Registry) Names() []string {
	names := make([]string, len(r.platforms))
	for i, p := range r.platforms {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of registered platforms
func (r *Registry) Len() int {
	return len(r.platforms)
}

// Lookup finds a platform by exact name
func (r *Registry) Lookup(name string) (Platform, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Platform{}, false
	}
	return r.platforms[idx], true
}

// Contains reports whether name is registered
func (r *Registry) Contains(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// SearchURL resolves the search-engine URL for query on the named platform.
// Unknown platforms, or ones without a template, get a generic query for "query platform".
func (r *Registry) SearchURL(platformName, query string) string {
	if p, ok := r.Lookup(platformName); ok && p.SearchURL != "" {
		return strings.ReplaceAll(p.SearchURL, queryPlaceholder, escapeComponent(query))
	}
	return strings.ReplaceAll(fallbackSearchURL, queryPlaceholder, escapeComponent(query+" "+platformName))
}

// escapeComponent percent-encodes s for use inside a query string value,
// encoding spaces as %20 rather than '+'
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
