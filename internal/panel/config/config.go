// Package config loads the control plane's environment-variable driven
// settings, matching the daemon's own internal/daemon/config idiom (plain
// os.Getenv plus small typed accessors, no config framework), per spec.md
// §6 "Environment variables".
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppKey        string
	DatabaseURL   string
	JWTSecret     string
	JWTExpiryDays int
	APIAddr       string
	AppURL        string
	BcryptCost    int
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	Debug         bool
}

func Load() (*Config, error) {
	appKey := os.Getenv("APP_KEY")
	if appKey == "" {
		return nil, fmt.Errorf("APP_KEY is required")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := getenvDefault("JWT_SECRET", appKey)

	jwtExpiryDays := 7
	if v := os.Getenv("JWT_EXPIRY_DAYS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRY_DAYS: %w", err)
		}
		jwtExpiryDays = parsed
	}

	bcryptCost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		bcryptCost = parsed
	}

	return &Config{
		AppKey:        appKey,
		DatabaseURL:   dbURL,
		JWTSecret:     jwtSecret,
		JWTExpiryDays: jwtExpiryDays,
		APIAddr:       getenvDefault("API_ADDR", "0.0.0.0:3000"),
		AppURL:        getenvDefault("APP_URL", "http://localhost:5173"),
		BcryptCost:    bcryptCost,
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		Debug:         os.Getenv("DEBUG") == "TRUE",
	}, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
