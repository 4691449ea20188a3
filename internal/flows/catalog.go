package flows

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"miinplanner-backend/pkg/ai"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Definition is one flow of the prompt catalog
type Definition struct {
	Prompt      string     `yaml:"prompt"`
	Temperature float32    `yaml:"temperature"`
	Schema      *ai.Schema `yaml:"schema"`

	tmpl *template.Template
}

// Catalog holds every flow definition keyed by flow name
type Catalog struct {
	Flows map[string]*Definition `yaml:"flows"`
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// LoadCatalog parses a YAML catalog and compiles its templates
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}
	for name, def := range c.Flows {
		if def == nil || strings.TrimSpace(def.Prompt) == "" {
			return nil, fmt.Errorf("flow %q has no prompt", name)
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(def.Prompt)
		if err != nil {
			return nil, fmt.Errorf("flow %q: %w", name, err)
		}
		def.tmpl = tmpl
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(promptsYAML)
}

func (d *Definition) render(input any) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
