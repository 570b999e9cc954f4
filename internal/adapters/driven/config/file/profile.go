package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-research/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.ConfigStore = (*ProfileStore)(nil)

// ProfileStore overlays a read-only YAML research profile on a base store.
//
// A profile uses the same sections as config.toml in nested YAML:
//
//	llm:
//	  provider: openai
//	  base_url: https://dashscope.aliyuncs.com/compatible-mode/v1
//	  api_key: ${DASHSCOPE_API_KEY}
//	research:
//	  max_rounds: 5
//
// ${VAR} references are expanded from the environment before parsing.
// Reads consult the profile first; writes go to the base store.
type ProfileStore struct {
	base    driven.ConfigStore
	path    string
	overlay map[string]any
}

// NewProfileStore loads the profile at path and layers it over base.
func NewProfileStore(base driven.ConfigStore, path string) (*ProfileStore, error) {
	p := &ProfileStore{base: base, path: path}
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load re-reads the profile. The base store is reloaded as well.
func (p *ProfileStore) Load() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return fmt.Errorf("parse profile %s: %w", filepath.Base(p.path), err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	p.overlay = flattenMap(raw, "")

	return p.base.Load()
}

// Get returns the profile value for key, or the base value if unset.
func (p *ProfileStore) Get(key string) (any, bool) {
	if val, ok := p.overlay[key]; ok {
		return val, true
	}
	return p.base.Get(key)
}

// GetString retrieves a string configuration value.
func (p *ProfileStore) GetString(key string) string {
	val, _ := p.Get(key)
	return asString(val)
}

// GetInt retrieves an integer configuration value.
func (p *ProfileStore) GetInt(key string) int {
	val, _ := p.Get(key)
	return asInt(val)
}

// GetFloat retrieves a floating point configuration value.
func (p *ProfileStore) GetFloat(key string) float64 {
	val, _ := p.Get(key)
	return asFloat(val)
}

// GetBool retrieves a boolean configuration value.
func (p *ProfileStore) GetBool(key string) bool {
	val, _ := p.Get(key)
	return asBool(val)
}

// GetStringSlice retrieves a string slice configuration value.
func (p *ProfileStore) GetStringSlice(key string) []string {
	val, _ := p.Get(key)
	return asStringSlice(val)
}

// Set writes to the base store. The profile itself is never modified.
func (p *ProfileStore) Set(key string, value any) error {
	return p.base.Set(key, value)
}

// Save persists the base store.
func (p *ProfileStore) Save() error {
	return p.base.Save()
}

// Path returns the base configuration file path.
func (p *ProfileStore) Path() string {
	return p.base.Path()
}

// ProfilePath returns the profile file path.
func (p *ProfileStore) ProfilePath() string {
	return p.path
}

// LoadDotEnv loads KEY=value pairs from dir/.env into the process
// environment. Variables already set are left untouched. A missing file
// is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
