package config

import (
	"os"
	"path/filepath"

	"chatterbox-studio/internal/domain"
)

// DefaultModelCLI is the expected name of the external model executable.
const DefaultModelCLI = "chatterbox"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputDir:    filepath.Join(homeDir, "ChatterBox_Output"),
		ModelCLIPath: DefaultModelCLI,
		Device:       "auto",
		BaseFilename: "output",
	}
}
