package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const input = `{"offers": [
  {"id": 1, "title": "Dinner", "description": "Two courses", "category": 1,
   "merchants": [{"id": 1, "distance": 0.5}], "valid_to": "2020-01-10"},
  {"id": 2, "title": "Spa", "description": "Hotel spa", "category": 3,
   "merchants": [{"id": 2, "distance": 0.1}], "valid_to": "2020-01-10"}
]}`

func TestRun_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "input.json")
	out := filepath.Join(dir, "output.json")
	if err := os.WriteFile(in, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := run(context.Background(), []string{"-input", in, "-output", out, "2020-01-05"}, io.Discard); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !strings.Contains(string(got), `"id": 1`) || strings.Contains(string(got), `"id": 2`) {
		t.Errorf("Unexpected output: %s", got)
	}
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "input.json")
	out := filepath.Join(dir, "output.json")
	if err := os.WriteFile(in, []byte(`{"offers": [{"id": 1, "category": 9}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := map[string][]string{
		"no arguments":   {},
		"two dates":      {"2020-01-05", "2020-01-06"},
		"bad date":       {"-input", in, "-output", out, "05/01/2020"},
		"invalid offers": {"-input", in, "-output", out, "2020-01-05"},
		"missing input":  {"-input", filepath.Join(dir, "missing.json"), "-output", out, "2020-01-05"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if code := run(context.Background(), args, io.Discard); code != 1 {
				t.Errorf("Expected exit code 1, got %d", code)
			}
		})
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("Expected no output file after failures")
	}
}

func TestRun_DateCheckedBeforeConfig(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", filepath.Join(dir, "missing.yaml"), "05/01/2020"}, &stderr)
	if code != 1 {
		t.Fatalf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "incorrect date format") {
		t.Errorf("Expected date error, got %q", stderr.String())
	}
	if strings.Contains(stderr.String(), "config file") {
		t.Errorf("Config should not be loaded before the date is valid, got %q", stderr.String())
	}
}
