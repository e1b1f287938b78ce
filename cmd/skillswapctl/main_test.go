package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixtures_default(t *testing.T) {
	fx, err := loadFixtures("")
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if len(fx.Users) == 0 {
		t.Error("built-in fixtures have no users")
	}
}

func TestLoadFixtures_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.yaml")
	doc := "users:\n  - {email: a@example.com, password: password123, name: A}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	fx, err := loadFixtures(path)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if len(fx.Users) != 1 || fx.Users[0].Email != "a@example.com" {
		t.Errorf("users = %+v", fx.Users)
	}

	if _, err := loadFixtures(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"seed", "recompute-ratings", "ensure-indexes", "version"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (err=%v)", name, err)
		}
	}
}
