package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce reads .env files into the process environment on the first
// call only.
//
//	NO_DOTENV=1        skip loading entirely
//	ENV_FILE=path      load exactly this file
//	DOTENV_OVERLOAD=1  let .env values replace variables already set
//
// Without ENV_FILE every .env between this package and the module root is
// loaded, nearest first.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}
	dir, ok := sourceDir()
	if !ok {
		_ = load(".env")
		return
	}
	walkUp(dir, func(d string) bool {
		_ = load(filepath.Join(d, ".env"))
		return false
	})
}
