package confs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Dispatch modes. "simulated" runs the deterministic in-process dispatcher;
// "node" pushes commands to connected controller nodes over websocket.
const (
	DispatchSimulated = "simulated"
	DispatchNode      = "node"
)

// Config holds the environment-derived settings.
type Config struct {
	Addr                 string
	DispatchMode         string
	DispatchTimeout      time.Duration
	SimulatedLatency     time.Duration
	DefaultPulseDuration time.Duration
}

// LoadConfig loads environment variables from a .env file if present and
// resolves the typed configuration.
func LoadConfig() (*Config, error) {
	// Load .env if it exists; ignore error if file not found
	if err := godotenv.Load(); err != nil {
		// Only log when the file truly doesn't exist; not an error for runtime
		if !os.IsNotExist(err) {
			log.Printf("warning: could not load .env: %v", err)
		}
	}

	cfg := &Config{
		Addr:                 "0.0.0.0:" + envOr("PORT", "3536"),
		DispatchMode:         envOr("DISPATCH_MODE", DispatchSimulated),
		DispatchTimeout:      envDurationMs("DISPATCH_TIMEOUT_MS", 5000),
		SimulatedLatency:     envDurationMs("SIM_LATENCY_MS", 50),
		DefaultPulseDuration: envDurationMs("PULSE_DURATION_MS", 1000),
	}
	if cfg.DispatchMode != DispatchSimulated && cfg.DispatchMode != DispatchNode {
		log.Printf("warning: unknown DISPATCH_MODE %q, using %q", cfg.DispatchMode, DispatchSimulated)
		cfg.DispatchMode = DispatchSimulated
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationMs(key string, fallbackMs int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
		log.Printf("warning: invalid %s=%q, using default", key, v)
	}
	return time.Duration(fallbackMs) * time.Millisecond
}
