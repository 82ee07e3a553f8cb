package config

import (
	"fmt"
	"os"
)

func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# Device model string embedded in packed containers. Must match the
# device exactly, including case and spaces.
model = "ZXHN F450"

# Width of the identifier field. 0 writes exactly len(model) bytes.
identifier_width = 0

# Overwrite existing output files.
force = false

# trace, debug, info, warn, error, off
log_level = "info"
`
