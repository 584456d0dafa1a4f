package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params are the listing filter parameters sent with every page request.
// The file may be JSON or YAML.
type Params map[string]any

func LoadParams(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}
	p := Params{}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse params %s: %w", path, err)
	}
	return p, nil
}

// WithPage returns a copy of p with the page number set.
func (p Params) WithPage(page int) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["page"] = page
	return out
}
