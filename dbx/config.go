package dbx

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dbxmcp/dbxmcp/internal/config"
)

const defaultAccountHost = "https://accounts.cloud.databricks.com"

// Config carries the connection settings for one Databricks endpoint.
// Authentication is a personal access token from the environment; OAuth
// browser flows are out of scope.
type Config struct {
	Host        string
	Token       string
	AccountID   string
	AccountHost string
	HTTPTimeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Host:        strings.TrimSpace(os.Getenv("DATABRICKS_HOST")),
		Token:       strings.TrimSpace(os.Getenv("DATABRICKS_TOKEN")),
		AccountID:   strings.TrimSpace(os.Getenv("DATABRICKS_ACCOUNT_ID")),
		AccountHost: strings.TrimSpace(os.Getenv("DATABRICKS_ACCOUNT_HOST")),
		HTTPTimeout: config.ParseDurationEnv("DBXMCP_HTTP_TIMEOUT", 60*time.Second),
	}
}

func (c Config) validateWorkspace() error {
	if c.Host == "" {
		return fmt.Errorf("DATABRICKS_HOST is required")
	}
	if c.Token == "" {
		return fmt.Errorf("DATABRICKS_TOKEN is required")
	}
	return nil
}

func (c Config) validateAccount() error {
	if c.AccountID == "" {
		return fmt.Errorf("DATABRICKS_ACCOUNT_ID environment variable required for account operations")
	}
	if c.Token == "" {
		return fmt.Errorf("DATABRICKS_TOKEN is required")
	}
	return nil
}

func (c Config) accountHost() string {
	if c.AccountHost != "" {
		return c.AccountHost
	}
	return defaultAccountHost
}
