package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotenv loads a .env file from dir (or the CWD when dir is empty)
// into the process environment without overriding variables that are
// already set. A missing .env is not an error.
func LoadDotenv(dir string) error {
	path := ".env"
	if dir != "" {
		path = filepath.Join(dir, ".env")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
