// Package config loads a cell manager's cluster-wide settings from cobra
// flags, optionally overlaid with a YAML file read through viper, the same
// flag-then-file precedence cmd/cellar/main.go's root command uses for its
// own persistent flags.
package config

import (
	"fmt"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds everything a cellar manager process needs to start: node
// identity, network addresses, and the cluster-wide tuning knobs for the
// scheduler's cleaner and the transaction manager's default lease.
type Config struct {
	NodeID   string
	BindAddr string
	APIAddr  string
	DataDir  string
	CellTag  ids.CellTag

	LogLevel  string
	LogJSON   bool
	MetricsAddr string

	// RetentionDelay is how long a finished operation stays in the live
	// table before the cleaner considers it for archival.
	RetentionDelay time.Duration
	// ArchiveBatchSize bounds how many operations the cleaner archives in
	// one batch.
	ArchiveBatchSize int
	// ArchiveBatchWait is the maximum time the cleaner waits for a batch to
	// fill before flushing it anyway.
	ArchiveBatchWait time.Duration
	// DefaultTransactionTimeout is used by `cellar txn start` when the
	// caller does not pass --timeout.
	DefaultTransactionTimeout time.Duration
}

// BindFlags registers the cobra flags that back Config and binds them into
// viper under the same keys a config file would use, mirroring the
// viper.BindPFlag wiring in cmd/cellar/main.go's root command.
func BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("node-id", "manager-1", "Unique node ID")
	cmd.PersistentFlags().String("bind-addr", "127.0.0.1:7946", "Address for Raft communication")
	cmd.PersistentFlags().String("api-addr", "127.0.0.1:8080", "Address for the gRPC API")
	cmd.PersistentFlags().String("data-dir", "./cellar-data", "Data directory for cluster state")
	cmd.PersistentFlags().Uint16("cell-tag", 1, "Cell tag for IDs minted by this cell")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9090", "Address for the metrics/health HTTP server")
	cmd.PersistentFlags().Duration("retention-delay", 0, "How long a finished operation stays live before archival (0 = cleaner default)")
	cmd.PersistentFlags().Int("archive-batch-size", 0, "Max operations per archive batch (0 = cleaner default)")
	cmd.PersistentFlags().Duration("archive-batch-wait", 0, "Max time an archive batch waits before flushing (0 = cleaner default)")
	cmd.PersistentFlags().Duration("txn-timeout", 0, "Default transaction lease timeout (0 = txn manager default)")
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file overlaying these flags")

	for _, name := range []string{
		"node-id", "bind-addr", "api-addr", "data-dir", "cell-tag",
		"log-level", "log-json", "metrics-addr",
		"retention-delay", "archive-batch-size", "archive-batch-wait", "txn-timeout",
	} {
		_ = viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}
}

// Load reads the --config file (if set) through viper, then resolves Config
// from the bound flags/file/defaults, in that precedence order (viper's
// own: explicit Set > flag > config file > default).
func Load(cmd *cobra.Command) (*Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cellTag := viper.GetUint32("cell-tag")
	if cellTag > 0xFFFF {
		return nil, fmt.Errorf("cell-tag %d out of range for a 16-bit cell tag", cellTag)
	}

	return &Config{
		NodeID:      viper.GetString("node-id"),
		BindAddr:    viper.GetString("bind-addr"),
		APIAddr:     viper.GetString("api-addr"),
		DataDir:     viper.GetString("data-dir"),
		CellTag:     ids.CellTag(cellTag),
		LogLevel:    viper.GetString("log-level"),
		LogJSON:     viper.GetBool("log-json"),
		MetricsAddr: viper.GetString("metrics-addr"),

		RetentionDelay:            viper.GetDuration("retention-delay"),
		ArchiveBatchSize:          viper.GetInt("archive-batch-size"),
		ArchiveBatchWait:          viper.GetDuration("archive-batch-wait"),
		DefaultTransactionTimeout: viper.GetDuration("txn-timeout"),
	}, nil
}
