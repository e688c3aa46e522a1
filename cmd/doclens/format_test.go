package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout replaces os.Stdout with a pipe, calls f, then returns the
// captured output and restores os.Stdout. It is NOT safe for parallel use
// because os.Stdout is a package-level variable.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		io.Copy(&buf, r)
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

// TestFormatJSON verifies that formatJSON emits indented JSON to stdout.
func TestFormatJSON(t *testing.T) {
	type sample struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	}
	v := sample{ID: "abc-123", Question: "invoices from Acme"}

	got := captureStdout(t, func() { formatJSON(v) })

	// Must be valid JSON.
	var out sample
	if err := json.Unmarshal([]byte(got), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, got)
	}
	if out.ID != "abc-123" {
		t.Errorf("id: got %q, want %q", out.ID, "abc-123")
	}
	if out.Question != "invoices from Acme" {
		t.Errorf("question: got %q, want %q", out.Question, "invoices from Acme")
	}
}

// TestFormatTable verifies column alignment and separators.
func TestFormatTable(t *testing.T) {
	headers := []string{"ID", "TEMPLATE"}
	rows := [][]string{
		{"doc-1", "Invoice"},
		{"doc-22", "Receipt"},
	}

	got := captureStdout(t, func() { formatTable(headers, rows) })
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (header, separator, 2 rows), got %d:\n%s", len(lines), got)
	}
	if !strings.Contains(lines[0], "ID") || !strings.Contains(lines[0], "TEMPLATE") {
		t.Errorf("header missing columns: %q", lines[0])
	}
	if !strings.Contains(lines[1], "--") {
		t.Errorf("expected separator line, got %q", lines[1])
	}
	if !strings.Contains(lines[3], "doc-22") {
		t.Errorf("expected row with doc-22, got %q", lines[3])
	}
}

// TestFormatQuiet verifies quiet mode prints only the value.
func TestFormatQuiet(t *testing.T) {
	got := captureStdout(t, func() { formatQuiet("m1") })
	if got != "m1\n" {
		t.Errorf("got %q, want %q", got, "m1\n")
	}
}

// TestParseMappings verifies template=field pair parsing.
func TestParseMappings(t *testing.T) {
	got, err := parseMappings([]string{"Invoice=freight_total", "Receipt=shipping_paid"})
	if err != nil {
		t.Fatalf("parseMappings error: %v", err)
	}
	if got["Invoice"] != "freight_total" || got["Receipt"] != "shipping_paid" {
		t.Errorf("unexpected mappings: %v", got)
	}

	if _, err := parseMappings([]string{"no-separator"}); err == nil {
		t.Error("expected error for pair without =")
	}
	if _, err := parseMappings([]string{"=field"}); err == nil {
		t.Error("expected error for empty template")
	}
}
