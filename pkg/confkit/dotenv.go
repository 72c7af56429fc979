package confkit

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

// maxAscend bounds the upward .env search when no repository marker is found.
const maxAscend = 8

var dotenvOnce sync.Once

// LoadDotenvOnce loads environment variables from a .env file. ENV_FILE names
// one explicitly; otherwise the search walks from this source file's directory
// up to the repository root (go.mod or .git). The first call wins; later calls
// are no-ops. Existing variables are left untouched unless DOTENV_OVERLOAD=1.
// NO_DOTENV=1 disables the whole mechanism.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	apply := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		apply = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = apply(envFile)
		return
	}

	_, src, _, ok := runtime.Caller(0)
	if !ok {
		_ = apply(".env")
		return
	}
	dir := filepath.Dir(src)
	for i := 0; i < maxAscend; i++ {
		_ = apply(filepath.Join(dir, ".env"))
		if fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git")) {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
