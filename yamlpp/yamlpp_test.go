package yamlpp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEvalInline(t *testing.T) {
	got, err := Expand([]byte("payload: !eval params.requested\n"), t.TempDir())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `payload: "{{ params.requested }}"`
	if strings.TrimSpace(string(got)) != want {
		t.Errorf("Expand() = %q, want %q", got, want)
	}
}

func TestExpandEvalFencedBlock(t *testing.T) {
	src := "payload:\n  !eval ```\n  params.requested * 2\n  ```\n"
	got, err := Expand([]byte(src), t.TempDir())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !strings.Contains(string(got), `"{{ params.requested * 2 }}"`) {
		t.Errorf("Expand() = %q, missing expected eval substitution", got)
	}
}

func TestExpandImportInlinesFileAsQuotedTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("hello\nworld"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Expand([]byte("message: !import greeting.txt\n"), dir)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := `message: "{{ hello world }}"`
	if strings.TrimSpace(string(got)) != want {
		t.Errorf("Expand() = %q, want %q", got, want)
	}
}

func TestExpandIncludeInlinesJSONFromYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sub.yaml"), []byte("a: 1\nb: two\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Expand([]byte("nested: !include sub.yaml\n"), dir)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	out := strings.TrimSpace(string(got))
	if !strings.Contains(out, `"a":1`) || !strings.Contains(out, `"b":"two"`) {
		t.Errorf("Expand() = %q, missing included JSON fields", out)
	}
}

func TestExpandIncludeBlockPreservesIndent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "block.json"), []byte(`{"k":"v"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Expand([]byte("steps:\n  !include block.json\n"), dir)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !strings.Contains(string(got), `  {"k":"v"}`) {
		t.Errorf("Expand() = %q, want indented inline json", got)
	}
}
