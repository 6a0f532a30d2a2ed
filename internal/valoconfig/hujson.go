package valoconfig

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// parseHuJSON tolerates comments and trailing commas (hujson.Standardize)
// before handing the result to the standard decoder, exactly as the
// teacher's own config loader does.
func parseHuJSON(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("valoconfig: standardize jsonc: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("valoconfig: unmarshal: %w", err)
	}
	return cfg, nil
}
