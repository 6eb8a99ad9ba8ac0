// Package config reads the daemon's environment-variable configuration,
// matching the ambient-stack convention set in pkg/log: small typed
// accessors over os.Getenv rather than a config framework, since the
// teacher never reaches for one either.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is every environment variable spec.md §6 names for the agent.
type Config struct {
	Addr           string
	APIKey         string
	DataDir        string
	FTPBasePath    string
	FTPHost        string
	FTPPort        int
	DockerHost     string
	Debug          bool
}

// Load reads Config from the environment, applying the defaults spec.md
// §6 specifies.
func Load() (*Config, error) {
	apiKey := os.Getenv("DAEMON_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("DAEMON_API_KEY is required")
	}

	ftpPort := 2121
	if v := os.Getenv("FTP_PORT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FTP_PORT: %w", err)
		}
		ftpPort = parsed
	}

	ftpBasePath := getenvDefault("FTP_BASE_PATH", "/data/raptor")
	if override := os.Getenv("SFTP_BASE_PATH"); override != "" {
		ftpBasePath = override
	}

	return &Config{
		Addr:        getenvDefault("DAEMON_ADDR", "0.0.0.0:8080"),
		APIKey:      apiKey,
		DataDir:     getenvDefault("DAEMON_DATA_DIR", "/var/lib/raptor-daemon"),
		FTPBasePath: ftpBasePath,
		FTPHost:     os.Getenv("FTP_HOST"),
		FTPPort:     ftpPort,
		DockerHost:  os.Getenv("DOCKER_HOST"),
		Debug:       os.Getenv("DEBUG") == "TRUE",
	}, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
