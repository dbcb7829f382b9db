package config

import (
	"flag"
	"os"
	"time"

	"github.com/verisafe/docvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-s string   master secret (prefer the environment variable)
//	-w int      edit window, minutes
//	-q int      deletion quota per document type per day
//	-n int      anchor attempt budget
//	-l string   ledger base URL
//	-a string   metrics bind address (e.g., ":9090")
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - The edit window is accepted as an integer in minutes and then
//     converted to a time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-w", "-q", "-n", "-l", "-a", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MasterSecret, "s", config.MasterSecret, "master secret")

	editWindowMinutes := fs.Int("w", int(config.EditWindow.Minutes()), "edit window (in minutes)")

	fs.IntVar(&config.MaxDeletionsPerTypePerDay, "q", config.MaxDeletionsPerTypePerDay, "max deletions per document type per day")
	fs.IntVar(&config.AnchorMaxAttempts, "n", config.AnchorMaxAttempts, "anchor attempt budget")
	fs.StringVar(&config.LedgerBaseURL, "l", config.LedgerBaseURL, "ledger base URL")
	fs.StringVar(&config.MetricsAddr, "a", config.MetricsAddr, "metrics bind address")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.EditWindow = time.Duration(*editWindowMinutes) * time.Minute
}
