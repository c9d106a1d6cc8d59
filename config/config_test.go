package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(HomeEnvVar, "/tmp/custom-turnstream-home")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Home != "/tmp/custom-turnstream-home" {
		t.Fatalf("Home = %q, want /tmp/custom-turnstream-home", c.Home)
	}
}

func TestLoad_DefaultsUnderUserHome(t *testing.T) {
	t.Setenv(HomeEnvVar, "")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no user home dir available in this environment")
	}
	want := filepath.Join(userHome, ".turnstream")
	if c.Home != want {
		t.Fatalf("Home = %q, want %q", c.Home, want)
	}
}

func TestConfig_DerivedPaths(t *testing.T) {
	c := Config{Home: "/home/u/.turnstream"}
	if got := c.SessionsDir(); got != "/home/u/.turnstream/sessions" {
		t.Fatalf("SessionsDir = %q", got)
	}
}

func TestEnsureHome_CreatesDirectories(t *testing.T) {
	base := t.TempDir()
	c := Config{Home: filepath.Join(base, "home")}
	if err := c.EnsureHome(); err != nil {
		t.Fatalf("EnsureHome: %v", err)
	}
	for _, dir := range []string{c.Home, c.SessionsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}
