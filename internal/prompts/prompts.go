// Package prompts holds the versioned prompt pack used by the AI flows.
//
// A pack is a YAML document of named templates, each with a system and a
// user part written in Liquid. The default pack is embedded in the binary;
// a file path in config replaces it.
package prompts

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/osteele/liquid"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPack []byte

// Template names used by the application.
const (
	SuggestCount     = "suggest_count"
	PlanChat         = "plan_chat"
	GenerateVariants = "generate_variants"
	ProductWizard    = "product_wizard"
	Titles           = "titles"
)

var required = []string{SuggestCount, PlanChat, GenerateVariants, ProductWizard, Titles}

// Template is one named prompt.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type packFile struct {
	Version   string              `yaml:"version"`
	Templates map[string]Template `yaml:"templates"`
}

type compiled struct {
	system *liquid.Template
	user   *liquid.Template
}

// Pack is a parsed, compiled prompt pack.
type Pack struct {
	Version   string
	templates map[string]compiled
}

// Load reads the pack at path, or the embedded default when path is empty.
func Load(path string) (*Pack, error) {
	data := defaultPack
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading prompt pack: %w", err)
		}
	}
	return Parse(data)
}

// Default returns the embedded pack. It panics if the embedded file is
// broken, which tests catch.
func Default() *Pack {
	p, err := Parse(defaultPack)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse compiles a pack from YAML. Every template the application uses must
// be present.
func Parse(data []byte) (*Pack, error) {
	var f packFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing prompt pack: %w", err)
	}

	engine := newEngine()
	p := &Pack{Version: f.Version, templates: make(map[string]compiled, len(f.Templates))}
	for name, t := range f.Templates {
		sys, err := engine.ParseString(t.System)
		if err != nil {
			return nil, fmt.Errorf("prompt %s.system: %w", name, err)
		}
		usr, err := engine.ParseString(t.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %s.user: %w", name, err)
		}
		p.templates[name] = compiled{system: sys, user: usr}
	}
	for _, name := range required {
		if _, ok := p.templates[name]; !ok {
			return nil, fmt.Errorf("prompt pack %q is missing template %q", f.Version, name)
		}
	}
	return p, nil
}

// Render fills the named template with vars and returns its system and user
// parts.
func (p *Pack) Render(name string, vars map[string]interface{}) (system, user string, err error) {
	t, ok := p.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt %q", name)
	}
	system, err = t.system.RenderString(vars)
	if err != nil {
		return "", "", fmt.Errorf("render %s.system: %w", name, err)
	}
	user, err = t.user.RenderString(vars)
	if err != nil {
		return "", "", fmt.Errorf("render %s.user: %w", name, err)
	}
	return system, user, nil
}

func newEngine() *liquid.Engine {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value interface{}, fallback interface{}) interface{} {
		if value == nil {
			return fallback
		}
		if s, ok := value.(string); ok && s == "" {
			return fallback
		}
		return value
	})
	return engine
}
