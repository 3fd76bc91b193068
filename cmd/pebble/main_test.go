package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func fixtureDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.peb"), "<{% block body %}base{% endblock %}>")
	writeFile(t, filepath.Join(dir, "pages", "home.peb"),
		"{% extends 'base' %}{% macro m() %}{% endmacro %}{% block body %}Hi {{ name }}{% endblock %}")
	writeFile(t, filepath.Join(dir, "price.peb"), "{{ 1234.5 | numberformat('#,##0.00') }}")
	return dir
}

func TestRenderCommand(t *testing.T) {
	dir := fixtureDir(t)
	data := filepath.Join(t.TempDir(), "ctx.yaml")
	writeFile(t, data, "name: Ann\n")

	out, err := run(t, "render", "--dir", dir, "--suffix", ".peb", "--data", data, "pages/home")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "<Hi Ann>" {
		t.Fatalf("got %q", out)
	}

	out, err = run(t, "render", "--dir", dir, "--suffix", ".peb", "--locale", "de", "price")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "1.234,50" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderCommandSuggestsTemplate(t *testing.T) {
	dir := fixtureDir(t)
	_, err := run(t, "render", "--dir", dir, "--suffix", ".peb", "home")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `did you mean "pages/home"?`) {
		t.Fatalf("missing suggestion: %v", err)
	}
}

func TestRenderCommandStrict(t *testing.T) {
	dir := fixtureDir(t)
	if _, err := run(t, "render", "--dir", dir, "--suffix", ".peb", "--strict", "pages/home"); err == nil {
		t.Fatal("expected strict variables to fail on the missing name")
	}
}

func TestInspectCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := run(t, "inspect", "--dir", dir, "--suffix", ".peb", "pages/home")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	want := "template: pages/home\nblocks: body\nmacros: m\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := fixtureDir(t)
	out, err := run(t, "check", "--dir", dir, "--suffix", ".peb")
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}

	writeFile(t, filepath.Join(dir, "broken.peb"), "{% if true %}never closed")
	out, err = run(t, "check", "--dir", dir, "--suffix", ".peb")
	if err == nil {
		t.Fatal("expected check to fail")
	}
	if !strings.Contains(out, "FAIL broken") {
		t.Fatalf("broken template not reported:\n%s", out)
	}
}

func TestConfigFlag(t *testing.T) {
	dir := fixtureDir(t)
	cfg := filepath.Join(t.TempDir(), "pebble.yaml")
	writeFile(t, cfg, "template_dir: "+dir+"\nsuffix: .peb\n")
	out, err := run(t, "render", "--config", cfg, "base")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "<base>" {
		t.Fatalf("got %q", out)
	}
}

func TestClosestMatch(t *testing.T) {
	names := []string{"base", "pages/home", "pages/about"}
	if got := closestMatch("about", names); got != "pages/about" {
		t.Fatalf("got %q", got)
	}
	if got := closestMatch("zzz", names); got != "" {
		t.Fatalf("got %q", got)
	}
}
