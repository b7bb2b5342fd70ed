/*
Package config resolves a cell manager's startup configuration from three
layered sources, in precedence order: explicit overrides, cobra flags, and
an optional YAML file - the same flag/file split cmd/cellar/main.go's root
command uses for its persistent flags, enriched here with viper so a
cluster can also ship a checked-in config file for the knobs that
rarely change between restarts (retention windows, archive batch size,
default transaction timeout).

# Usage

Registering flags on a command and loading the result:

	func init() {
		config.BindFlags(clusterInitCmd)
	}

	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	mgr, err := manager.NewManager(&manager.Config{
		NodeID:           cfg.NodeID,
		BindAddr:         cfg.BindAddr,
		DataDir:          cfg.DataDir,
		CellTag:          cfg.CellTag,
		RetentionDelay:   cfg.RetentionDelay,
		ArchiveBatchSize: cfg.ArchiveBatchSize,
		ArchiveBatchWait: cfg.ArchiveBatchWait,
	})

A config file passed via --config overlays the flags' defaults; an
explicitly-set flag always wins over the file, matching viper's own
precedence rules. Example file:

	node-id: manager-1
	bind-addr: 127.0.0.1:7946
	api-addr: 127.0.0.1:8080
	retention-delay: 1m
	archive-batch-size: 200

# See Also

  - pkg/manager for where these settings are consumed
  - pkg/scheduler/cleaner for the archival knobs' defaults
*/
package config
