// Package config loads runtime configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds every value the application reads from the environment.
type Config struct {
	Env            string
	Port           string
	DBUser         string
	DBPass         string // empty allowed
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int // access token lifetime in minutes
	RefreshTTLDays int // refresh token lifetime in days
	BcryptCost     int

	MaxSubFieldsPerBooking int // cap on sub-fields reserved in one booking transaction
	CompletionSweepMin     int // minutes between completion sweeps (0 disables)
	ReminderSweepMin       int // minutes between reminder sweeps (0 disables)
}

// Load reads the environment into a Config.  A missing required variable is
// fatal; the optional knobs fall back to their defaults.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		MaxSubFieldsPerBooking: intOr("MAX_SUBFIELDS_PER_BOOKING", 5),
		CompletionSweepMin:     intOr("COMPLETION_SWEEP_MIN", 10),
		ReminderSweepMin:       intOr("REMINDER_SWEEP_MIN", 60),
	}
}

// intOr reads an optional integer env var, falling back to a default when the
// variable is unset or malformed.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
