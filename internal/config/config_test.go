package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.Kind != RemoteNone || cfg.Local.Dir != dir {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestGeneratedTemplateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "opsmap.yml"), []byte(GenerateDefault("alice")), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.User.ID != "alice" || cfg.Assist.Timeout != 60*time.Second || cfg.Server.Store != RemoteLocal {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"remote:\n  kind: ftp\n":                    "config.remote.kind",
		"remote:\n  kind: http\n":                   "config.remote.url is required",
		"remote:\n  kind: http\n  url: not-a-url\n": "not an absolute url",
		"remote:\n  kind: redis\n":                  "redis_url",
		"log:\n  level: loud\n":                     "config.log.level",
		"log:\n  format: xml\n":                     "config.log.format",
		"server:\n  base_path: api\n":               "base_path",
		"server:\n  store: s3\n":                    "config.server.store",
		"remote:\n  kind: none\n  timeout: -1s\n":   "timeout",
	}
	for doc, want := range cases {
		_, err := FromYAML([]byte(doc))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%q: expected error containing %q, got %v", doc, want, err)
		}
	}
}

func TestValidHTTPRemote(t *testing.T) {
	cfg, err := FromYAML([]byte("remote:\n  kind: http\n  url: https://api.example.com\n  timeout: 5s\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Fatalf("timeout: %v", cfg.Remote.Timeout)
	}
}
