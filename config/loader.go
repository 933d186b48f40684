package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lowcarboncode/phlow/phlowerr"
	"github.com/lowcarboncode/phlow/yamlpp"
)

// FileSource loads a Phlow document from a single file on disk,
// preprocessing YAML macros (package yamlpp) before parsing.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string { return s.path }

// Load reads, macro-expands (if YAML), and parses the document.
func (s *FileSource) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &phlowerr.LoadError{Reason: fmt.Sprintf("read %s", s.path), Cause: err}
	}

	ext := Ext(s.path)
	if ext == ".yaml" || ext == ".yml" {
		data, err = yamlpp.Expand(data, filepath.Dir(s.path))
		if err != nil {
			return nil, &phlowerr.LoadError{Reason: fmt.Sprintf("preprocess %s", s.path), Cause: err}
		}
	}

	return ParseDocument(data, ext)
}

// Discover: if target is a file, use it directly; if it's a directory
// (or empty, meaning the current working directory), search for
// main.yaml, main.yml, main.json, main.toml in that order.
func Discover(target string) (string, error) {
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", &phlowerr.LoadError{Reason: "resolve working directory", Cause: err}
		}
		target = cwd
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", &phlowerr.LoadError{Reason: fmt.Sprintf("stat %s", target), Cause: err}
	}
	if !info.IsDir() {
		return target, nil
	}

	for _, name := range candidateNames {
		candidate := filepath.Join(target, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", &phlowerr.LoadError{Reason: fmt.Sprintf("no main.{yaml,yml,json,toml} found in %s", target)}
}

// Load discovers then loads the document at or under target.
func Load(target string) (*Document, error) {
	path, err := Discover(target)
	if err != nil {
		return nil, err
	}
	return NewFileSource(path).Load()
}
