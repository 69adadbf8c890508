package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kilianp07/districtopt/infra/logger"
)

// validateLogging checks the level name and the rotation settings.
func validateLogging(c logger.Config) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return err
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation settings must not be negative")
	}
	return nil
}
