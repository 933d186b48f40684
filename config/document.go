// Package config loads a Phlow document from disk, runs it through the
// YAML preprocessor macros, parses it by extension, and hands the
// result to package transform and package pipeline. Modeled on the
// teacher's config package (WorkflowConfig / FileSource), narrowed to
// Phlow's single-document shape.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/value"
)

// ModuleDecl is one entry of the document's top-level `modules` array.
type ModuleDecl struct {
	Module string
	Name   string
	With   value.Value
}

// Document is a parsed Phlow document.
type Document struct {
	Modules []ModuleDecl
	Main    string
	Steps   value.Value
}

// ParseDocument decodes raw document bytes (already macro-expanded by
// package yamlpp when the source is YAML) according to ext, then lifts
// the recognized top-level keys into a Document.
func ParseDocument(data []byte, ext string) (*Document, error) {
	raw, err := decode(data, ext)
	if err != nil {
		return nil, &phlowerr.LoadError{Reason: fmt.Sprintf("parse document (%s)", ext), Cause: err}
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, &phlowerr.LoadError{Reason: "document root must be an object"}
	}

	v := value.FromAny(doc)
	out := &Document{}

	if main, ok := v.Get("main"); ok {
		s, ok := main.Str()
		if !ok {
			return nil, &phlowerr.LoadError{Reason: "'main' must be a string"}
		}
		out.Main = s
	}

	if steps, ok := v.Get("steps"); ok {
		out.Steps = steps
	} else {
		return nil, &phlowerr.LoadError{Reason: "document is missing required 'steps'"}
	}

	if modules, ok := v.Get("modules"); ok {
		if modules.Kind() != value.KindArray {
			return nil, &phlowerr.LoadError{Reason: "'modules' must be an array"}
		}
		for _, m := range modules.Items() {
			decl, err := parseModuleDecl(m)
			if err != nil {
				return nil, &phlowerr.LoadError{Reason: "parse modules entry", Cause: err}
			}
			out.Modules = append(out.Modules, decl)
		}
	}

	return out, nil
}

func parseModuleDecl(m value.Value) (ModuleDecl, error) {
	moduleName, ok := m.Get("module")
	if !ok {
		return ModuleDecl{}, fmt.Errorf("missing 'module'")
	}
	mod, ok := moduleName.Str()
	if !ok {
		return ModuleDecl{}, fmt.Errorf("'module' must be a string")
	}
	decl := ModuleDecl{Module: mod, Name: mod}
	if name, ok := m.Get("name"); ok {
		s, ok := name.Str()
		if !ok {
			return ModuleDecl{}, fmt.Errorf("'name' must be a string")
		}
		decl.Name = s
	}
	if with, ok := m.Get("with"); ok {
		decl.With = with
	} else {
		decl.With = value.Null
	}
	return decl, nil
}

// decode dispatches parsing by file extension.
func decode(data []byte, ext string) (any, error) {
	switch strings.ToLower(ext) {
	case ".json":
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	case ".yaml", ".yml":
		var out any
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return normalizeYAMLMaps(out), nil
	case ".toml":
		var out map[string]any
		if err := toml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unrecognized config extension %q", ext)
	}
}

// normalizeYAMLMaps recursively converts the map[interface{}]interface{}
// values yaml.v3 produces for mappings with non-string keys into
// map[string]interface{} (keys formatted with fmt.Sprint), so
// value.FromAny only ever has to handle one map shape.
func normalizeYAMLMaps(in any) any {
	switch v := in.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalizeYAMLMaps(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = normalizeYAMLMaps(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalizeYAMLMaps(val)
		}
		return out
	default:
		return v
	}
}

// candidateNames is the search order used during directory discovery.
var candidateNames = []string{"main.yaml", "main.yml", "main.json", "main.toml"}

// Ext returns path's extension, lowercased, including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
