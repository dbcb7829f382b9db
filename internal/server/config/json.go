package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/verisafe/docvault/internal/flagx"
	"github.com/verisafe/docvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which
// allows parsing both string values such as "15m" and integer
// nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into
// the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN               string         `json:"database_dsn"`
	MasterSecret              string         `json:"master_secret"`
	EditWindow                timex.Duration `json:"edit_window"`
	MaxDeletionsPerTypePerDay int            `json:"max_deletions_per_type_per_day"`
	AnchorMaxAttempts         int            `json:"anchor_max_attempts"`
	AnchorBaseBackoff         timex.Duration `json:"anchor_base_backoff"`
	AnchorAttemptTimeout      timex.Duration `json:"anchor_attempt_timeout"`
	AnchorPollInterval        timex.Duration `json:"anchor_poll_interval"`
	LedgerBaseURL             string         `json:"ledger_base_url"`
	MetricsAddr               string         `json:"metrics_addr"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the
// provided Config instance.
//
// The JSON file path is taken from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot
// be read or contains invalid JSON, the function panics: a broken
// config file must not silently fall back to defaults.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.MasterSecret = c.MasterSecret
	config.EditWindow = time.Duration(c.EditWindow.Duration)
	config.MaxDeletionsPerTypePerDay = c.MaxDeletionsPerTypePerDay
	config.AnchorMaxAttempts = c.AnchorMaxAttempts
	config.AnchorBaseBackoff = time.Duration(c.AnchorBaseBackoff.Duration)
	config.AnchorAttemptTimeout = time.Duration(c.AnchorAttemptTimeout.Duration)
	config.AnchorPollInterval = time.Duration(c.AnchorPollInterval.Duration)
	config.LedgerBaseURL = c.LedgerBaseURL
	config.MetricsAddr = c.MetricsAddr
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
