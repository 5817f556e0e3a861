package reactor

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultPort is the reference listen port (§6).
	DefaultPort = 9000
	// DefaultWorkers is the reference worker-pool size (§6).
	DefaultWorkers = 2
)

// Config holds the two recognized environment/config overrides described
// in §6: PORT and WORKERS.
type Config struct {
	Port    uint16 `toml:"port"`
	Workers int    `toml:"workers"`
}

// DefaultConfig returns the reference defaults (port 9000, 2 workers).
func DefaultConfig() Config {
	return Config{Port: DefaultPort, Workers: DefaultWorkers}
}

// LoadConfig builds a Config starting from DefaultConfig, layering a TOML
// file (if path is non-empty) on top, then environment variables PORT and
// WORKERS on top of that — env wins over file, matching §2a/§6's stated
// precedence. github.com/BurntSushi/toml is the config-file reader,
// following its use as an indirect dependency across the retrieved pack.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reactor: decode config %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv("PORT"); ok {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return Config{}, fmt.Errorf("reactor: invalid PORT %q: %w", v, err)
		}
		cfg.Port = uint16(p)
	}

	if v, ok := os.LookupEnv("WORKERS"); ok {
		w, err := strconv.Atoi(v)
		if err != nil || w <= 0 {
			return Config{}, fmt.Errorf("reactor: invalid WORKERS %q: must be a positive integer", v)
		}
		cfg.Workers = w
	}

	return cfg, nil
}
