package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPathEnv(t *testing.T) {
	t.Setenv("CATTONGUE_DB_PATH", "/tmp/explicit.sqlite3")
	t.Setenv("CATTONGUE_DB_BASE_PATH", "/tmp/base")
	t.Setenv("CATTONGUE_DB_FILE", "")
	t.Setenv("CATTONGUE_DB_SESSION_PATH", "/tmp/sessions.sqlite3")
	t.Setenv("CATTONGUE_HOMEDIR", "true")

	pathEnv, err := LoadPathEnv()
	if err != nil {
		t.Fatalf("LoadPathEnv failed: %v", err)
	}
	if pathEnv.DBPath != "/tmp/explicit.sqlite3" {
		t.Errorf("unexpected DatabasePath %q", pathEnv.DBPath)
	}
	if pathEnv.SessionDatabasePath != "/tmp/sessions.sqlite3" {
		t.Errorf("unexpected SessionDatabasePath %q", pathEnv.SessionDatabasePath)
	}
	if !pathEnv.HomeDir {
		t.Errorf("expected HomeDir to be true")
	}
}

func TestPathEnv_DatabasePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "data")

	tests := []struct {
		name string
		env  PathEnv
		want string
	}{
		{"explicit path wins", PathEnv{DBPath: "/x/y.sqlite3", BasePath: base}, "/x/y.sqlite3"},
		{"base and file", PathEnv{BasePath: base, DatabaseFile: "cats.db"}, filepath.Join(base, "cats.db")},
		{"base and default file", PathEnv{BasePath: base}, filepath.Join(base, defaultDatabaseFile)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.env.DatabasePath()
			if err != nil {
				t.Fatalf("DatabasePath failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DatabasePath() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := os.Stat(base); err != nil {
		t.Fatalf("expected base directory to be created: %v", err)
	}
}

func TestPathEnv_SessionPath(t *testing.T) {
	base := t.TempDir()

	got, err := PathEnv{BasePath: base}.SessionPath()
	if err != nil {
		t.Fatalf("SessionPath failed: %v", err)
	}
	if want := filepath.Join(base, "sessions.sqlite3"); got != want {
		t.Fatalf("SessionPath() = %q, want %q", got, want)
	}

	got, err = PathEnv{SessionDatabasePath: "/s/sessions.db", BasePath: base}.SessionPath()
	if err != nil {
		t.Fatalf("SessionPath failed: %v", err)
	}
	if got != "/s/sessions.db" {
		t.Fatalf("SessionPath() = %q, want explicit path", got)
	}
}

func TestPathEnv_HomeDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := PathEnv{HomeDir: true}.DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath failed: %v", err)
	}
	if want := filepath.Join(home, ".data", "cattongue", defaultDatabaseFile); got != want {
		t.Fatalf("DatabasePath() = %q, want %q", got, want)
	}
}
