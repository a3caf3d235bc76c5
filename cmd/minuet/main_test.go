package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minuet/internal/api"
)

func TestFlagGlyphs(t *testing.T) {
	status := api.EntryStatus{AffectReady: true, TranscriptReady: true, ResponseReady: true}
	if got := flagGlyphs(status); got != "++-+-" {
		t.Fatalf("unexpected glyphs %q", got)
	}
}

func TestRenderTableRowPadding(t *testing.T) {
	out := renderTable([]string{"ID", "Status"}, [][]string{{"1"}})
	if !strings.Contains(out, "ID") || !strings.Contains(out, "1") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newConfigInitCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing paths section:\n%s", data)
	}

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}
