package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const (
	defaultDataDir      = "/var/local/data/cattongue"
	defaultDatabaseFile = "cattongue.sqlite3"
	sessionFileName     = "sessions.sqlite3"
	homeDataSubdirName  = ".data"
)

// PathEnv holds the environment overrides for storage locations.
type PathEnv struct {
	DBPath              string `env:"CATTONGUE_DB_PATH"`
	BasePath            string `env:"CATTONGUE_DB_BASE_PATH"`
	DatabaseFile        string `env:"CATTONGUE_DB_FILE" envDefault:"cattongue.sqlite3"`
	SessionDatabasePath string `env:"CATTONGUE_DB_SESSION_PATH"`
	HomeDir             bool   `env:"CATTONGUE_HOMEDIR"`
}

func LoadPathEnv() (PathEnv, error) {
	var pathEnv PathEnv
	if err := env.Parse(&pathEnv); err != nil {
		return PathEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return pathEnv, nil
}

// DatabasePath returns CATTONGUE_DB_PATH, or the database file inside the base directory.
func (p PathEnv) DatabasePath() (string, error) {
	if p.DBPath != "" {
		return p.DBPath, nil
	}
	base, err := p.baseDir()
	if err != nil {
		return "", err
	}
	file := p.DatabaseFile
	if file == "" {
		file = defaultDatabaseFile
	}
	return filepath.Join(base, file), nil
}

// SessionPath returns CATTONGUE_DB_SESSION_PATH, or sessions.sqlite3 inside the base directory.
func (p PathEnv) SessionPath() (string, error) {
	if p.SessionDatabasePath != "" {
		return p.SessionDatabasePath, nil
	}
	base, err := p.baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, sessionFileName), nil
}

// baseDir picks the data directory and creates it.
func (p PathEnv) baseDir() (string, error) {
	dir := p.BasePath
	if dir == "" {
		dir = defaultDataDir
		if p.HomeDir {
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			dir = filepath.Join(home, homeDataSubdirName, "cattongue")
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return dir, nil
}
