// Package yamlpp implements Phlow's YAML preprocessor macros
// (!include, !import, !eval) as pure text-to-text transforms, using
// stdlib regexp in place of Rust's regex crate.
package yamlpp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	includeBlockRe  = regexp.MustCompile(`(?m)^(\s*)!include\s+(\S+)`)
	includeInlineRe = regexp.MustCompile(`!include\s+(\S+)`)
	importInlineRe  = regexp.MustCompile(`!import\s+(\S+)`)
)

// Expand runs the full macro pipeline (include/import, then eval) over
// raw YAML text, resolving relative paths against baseDir.
func Expand(raw []byte, baseDir string) ([]byte, error) {
	withIncludes := expandIncludes(string(raw), baseDir)
	return []byte(expandEval(withIncludes)), nil
}

// expandIncludes handles !include (block and inline) and !import.
func expandIncludes(text, baseDir string) string {
	withBlockIncludes := includeBlockRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := includeBlockRe.FindStringSubmatch(match)
		indent, relPath := groups[1], groups[2]
		fullPath := filepath.Join(baseDir, relPath)
		jsonStr, err := processIncludeFile(fullPath)
		if err != nil {
			return fmt.Sprintf("%s<!-- Error including file: %s: %s -->", indent, relPath, err)
		}
		lines := strings.Split(jsonStr, "\n")
		for i, line := range lines {
			lines[i] = indent + line
		}
		return strings.Join(lines, "\n")
	})

	withInlineIncludes := includeInlineRe.ReplaceAllStringFunc(withBlockIncludes, func(match string) string {
		relPath := includeInlineRe.FindStringSubmatch(match)[1]
		fullPath := filepath.Join(baseDir, relPath)
		jsonStr, err := processIncludeFile(fullPath)
		if err != nil {
			return fmt.Sprintf("<!-- Error including file: %s: %s -->", relPath, err)
		}
		return jsonStr
	})

	return importInlineRe.ReplaceAllStringFunc(withInlineIncludes, func(match string) string {
		relPath := importInlineRe.FindStringSubmatch(match)[1]
		fullPath := filepath.Join(baseDir, relPath)
		contents, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Sprintf("<!-- Error importing file: %s -->", relPath)
		}
		lines := strings.Split(string(contents), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimSpace(l)
		}
		oneLine := strings.ReplaceAll(strings.Join(lines, " "), `"`, `\"`)
		return fmt.Sprintf(`"{{ %s }}"`, oneLine)
	})
}

// expandEval substitutes !eval <expr>, !eval ```multi line```, and the
// indented-block form with "{{ expr }}" strings, left for the
// expression evaluator to resolve at run time.
func expandEval(text string) string {
	var out strings.Builder
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		pos := strings.Index(line, "!eval")
		if pos < 0 {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		beforeEval := line[:pos]
		afterEval := strings.TrimSpace(line[pos+len("!eval"):])
		indent := strings.Repeat(" ", pos)

		switch {
		case strings.HasPrefix(afterEval, "```"):
			var blockLines []string
			if afterEval == "```" {
				for i+1 < len(lines) {
					i++
					if strings.TrimSpace(lines[i]) == "```" {
						break
					}
					blockLines = append(blockLines, strings.TrimSpace(lines[i]))
				}
			} else if endPos := strings.Index(afterEval[3:], "```"); endPos >= 0 {
				blockLines = append(blockLines, strings.TrimSpace(afterEval[3:3+endPos]))
			}
			escaped := strings.ReplaceAll(strings.Join(blockLines, " "), `"`, `\"`)
			if strings.TrimSpace(beforeEval) == "" {
				fmt.Fprintf(&out, "%s\"{{ %s }}\"\n", indent, escaped)
			} else {
				fmt.Fprintf(&out, "%s\"{{ %s }}\"\n", beforeEval, escaped)
			}

		case afterEval != "":
			escaped := strings.ReplaceAll(afterEval, `"`, `\"`)
			fmt.Fprintf(&out, "%s\"{{ %s }}\"\n", beforeEval, escaped)

		default:
			var blockLines []string
			for i+1 < len(lines) {
				next := lines[i+1]
				lineIndent := len(next) - len(strings.TrimLeft(next, " \t"))
				if strings.TrimSpace(next) == "" || lineIndent > pos {
					i++
					if pos+1 <= len(next) {
						blockLines = append(blockLines, strings.TrimSpace(next[pos+1:]))
					} else {
						blockLines = append(blockLines, strings.TrimSpace(next))
					}
					continue
				}
				break
			}
			escaped := strings.ReplaceAll(strings.Join(blockLines, " "), `"`, `\"`)
			fmt.Fprintf(&out, "%s\"{{ %s }}\"\n", indent, escaped)
		}
	}

	return strings.TrimSuffix(out.String(), "\n")
}

// processIncludeFile loads path (yaml/yml/json/toml), recursively
// expanding includes in nested YAML, and renders it as compact JSON.
func processIncludeFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var decoded any
	switch ext {
	case ".yaml", ".yml":
		transformed := expandIncludes(string(raw), filepath.Dir(path))
		if err := yaml.Unmarshal([]byte(transformed), &decoded); err != nil {
			return "", err
		}
	case ".json":
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return "", err
		}
	case ".toml":
		var m map[string]any
		if err := toml.Unmarshal(raw, &m); err != nil {
			return "", err
		}
		decoded = m
	default:
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}

	out, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
