package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = "# syntaxworker configuration. Point SYNTAXWORKER_CONFIG at this file.\n"

// Template renders the default configuration as TOML, one key per setting.
func Template() (string, error) {
	def := Default()
	out, err := toml.Marshal(fileConfig{
		TickPeriod:           def.Worker.TickPeriod.String(),
		ChunkLines:           def.Worker.Tokenize.ChunkLines,
		VisibleChunkLines:    def.Worker.Tokenize.VisibleChunkLines,
		LivenessStrategy:     string(def.LivenessStrategy),
		LivenessPollInterval: def.LivenessInterval.String(),
		ConnectMaxAttempts:   def.Worker.Transport.MaxConnectAttempts,
		DrainTimeout:         def.Worker.DrainTimeout.String(),
		DiagnosticsAddr:      def.DiagnosticsAddr,
		LogLevel:             "info",
	})
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return templateHeader + string(out), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
