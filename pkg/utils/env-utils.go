package utils

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var envVarNameInvalidChars = regexp.MustCompile(`[^A-Z0-9]+`)

// GenerateEnvVarName generates a standardized environment variable name from a given string.
// It converts the input to uppercase and replaces any non-alphanumeric characters with underscores.
// Leading and trailing underscores are removed.
func GenerateEnvVarName(input string) string {
	normalized := strings.ToUpper(input)
	normalized = envVarNameInvalidChars.ReplaceAllString(normalized, "_")
	return strings.Trim(normalized, "_")
}

// OverrideFromEnv sets target to the value of the environment variable if it is set and not empty.
func OverrideFromEnv(target *string, envName string) bool {
	if value := os.Getenv(envName); value != "" {
		*target = value
		return true
	}
	return false
}

// LoadDotEnvFiles loads variables from .env style files for local runs. Variables already set in
// the environment win. Missing files are skipped.
func LoadDotEnvFiles(filenames ...string) error {
	for _, filename := range filenames {
		err := godotenv.Load(filename)
		if err == nil {
			slog.Debug("Loaded environment file", slog.String("file", filename))
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return err
	}
	return nil
}
