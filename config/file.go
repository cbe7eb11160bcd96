package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile parses a .conf file into key/value pairs.
// Format: key = value (one per line, # for comments). A missing file is not
// an error; the config then stays at its defaults.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// Apply writes file values onto a Config. Unknown keys are an error so
// typos do not pass silently.
func Apply(cfg *Config, values map[string]string) error {
	for key, value := range values {
		var err error
		switch key {
		case "network":
			cfg.Network = value
		case "gap_limit":
			err = parseUint32(value, &cfg.GapLimit)
		case "min_addresses":
			err = parseUint32(value, &cfg.MinAddresses)
		case "fee_rate":
			cfg.FeeRate, err = strconv.ParseUint(value, 10, 64)
		case "keystore_dir":
			cfg.KeystoreDir = value
		case "log.level":
			cfg.Log.Level = value
		case "log.json":
			cfg.Log.JSON, err = strconv.ParseBool(value)
		default:
			return fmt.Errorf("unknown config key %q", key)
		}
		if err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// Load reads the config file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()
	values, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := Apply(cfg, values); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseUint32(s string, dst *uint32) error {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*dst = uint32(v)
	return nil
}
