package cli

import (
	"github.com/ddmitov/twiga"
)

// loadConfig overlays the --data-dir flag onto the environment-derived
// configuration, letting a one-off CLI invocation override
// TWIGA_DATA_DIR without touching the process environment.
func loadConfig(dataDirFlag string) (twiga.Config, error) {
	cfg, err := twiga.ConfigFromEnv()
	if err != nil {
		return twiga.Config{}, err
	}

	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}

	return cfg, cfg.Validate()
}
