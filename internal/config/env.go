package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables that are already set win over the file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// EnvFileFromArgs returns the value of --env-file from raw arguments, or ".env".
// It runs before Kong so that env-backed flags can see the file's variables.
func EnvFileFromArgs(args []string) string {
	for i, a := range args {
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
	}
	return ".env"
}
