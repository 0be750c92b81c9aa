package runtime

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvSwitch disables .env discovery when set to 0/false/off/no.
const DotEnvSwitch = "KMARES_DOTENV"

// LoadDotEnv loads .env.local and .env from the working directory and each
// of its parents. It only sets vars that are not already set, matching
// godotenv's behavior, so files closer to the working directory win.
func LoadDotEnv(logPrefix string) error {
	if IsDotEnvDisabled() {
		return nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	return LoadDotEnvFrom(logPrefix, wd)
}

// LoadDotEnvFrom is LoadDotEnv rooted at dir.
func LoadDotEnvFrom(logPrefix, dir string) error {
	for _, p := range dotEnvCandidates(dir) {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		log.Printf("%s loaded env from %s", logPrefix, p)
	}
	return nil
}

func dotEnvCandidates(dir string) []string {
	var paths []string
	seen := make(map[string]struct{})
	for d := filepath.Clean(dir); ; {
		for _, name := range []string{".env.local", ".env"} {
			p := filepath.Join(d, name)
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return paths
}

func IsDotEnvDisabled() bool {
	v := strings.TrimSpace(os.Getenv(DotEnvSwitch))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "0", "false", "off", "no":
		return true
	default:
		return false
	}
}
