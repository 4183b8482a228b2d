package settings

import (
	"os"

	"github.com/bitnames/bitnames/errors"
	"github.com/joho/godotenv"
)

// LoadEnvFiles exports the variables of dotenv files to the environment, where the gocore
// configuration looks first. Variables that are already set keep their value. Missing files
// are skipped.
func LoadEnvFiles(files ...string) error {
	existing := make([]string, 0, len(files))

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}

		existing = append(existing, file)
	}

	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return errors.NewConfigurationError("failed to load env files %v", existing, err)
	}

	return nil
}
