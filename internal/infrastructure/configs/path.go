package configs

import (
	"flag"
	"os"

	"github.com/viewcall/chatrelay/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location: --config flag first,
// then CHATRELAY_CONFIG, then well-known candidates. An empty result is fine;
// Load falls back to defaults and environment variables.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("CHATRELAY_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/chatrelay/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
