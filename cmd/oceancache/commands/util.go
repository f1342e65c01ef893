package commands

import (
	"fmt"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/config"
)

// InitLogger applies the logging section of cfg to the process logger.
func InitLogger(cfg *config.Config) error {
	err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource names the file the configuration came from, or
// "defaults" when none was found.
func getConfigSource(configFile string) string {
	switch {
	case configFile != "":
		return configFile
	case config.DefaultConfigExists():
		return config.GetDefaultConfigPath()
	default:
		return "defaults"
	}
}
