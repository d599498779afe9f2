package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "", []string{"config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, env, "", []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init must not clobber the existing file.
	if _, _, err := runCLI(t, env, "", []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected config init over an existing file to fail")
	}
}
