// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Demo fallbacks used when the environment is not configured. Shipping
// with these is a deployment misconfiguration; Load warns about each one.
const (
	defaultGatePassword  = "Mathsp@silico"
	defaultSessionSecret = "silicoshield-dev-secret"
)

// Config holds the runtime configuration for the gateway.
type Config struct {
	Port          string
	APIBaseURL    string
	APIKey        string
	GatePassword  string
	SessionSecret string

	PredictTimeout time.Duration
	GeoTimeout     time.Duration
	GateDelay      time.Duration

	// Idle lifetime of a per-session image store before its previews
	// are released and the store is dropped.
	SessionTTL time.Duration
}

// Load reads the environment and returns the configuration. Unset values
// fall back to insecure demo defaults, which are logged as warnings.
func Load() *Config {
	cfg := &Config{
		Port:           get("PORT", "8080"),
		APIBaseURL:     get("API_BASE_URL", "http://localhost:5000"),
		APIKey:         os.Getenv("API_KEY"),
		GatePassword:   os.Getenv("APP_PASSWORD"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		PredictTimeout: seconds("PREDICT_TIMEOUT_SECONDS", 60),
		GeoTimeout:     seconds("GEO_TIMEOUT_SECONDS", 10),
		GateDelay:      500 * time.Millisecond,
		SessionTTL:     seconds("SESSION_TTL_SECONDS", 3600),
	}

	if cfg.GatePassword == "" {
		cfg.GatePassword = defaultGatePassword
		log.Println("WARNING: APP_PASSWORD not set, using insecure demo password")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = defaultSessionSecret
		log.Println("WARNING: SESSION_SECRET not set, using insecure demo secret")
	}
	if cfg.APIKey == "" {
		log.Println("WARNING: API_KEY not set, prediction requests will be unauthenticated unless a login token is present")
	}

	return cfg
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func seconds(k string, def int) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("WARNING: invalid %s=%q, using default %ds", k, v, def)
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}
