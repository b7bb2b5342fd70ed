/*
Package log provides structured logging for Cellar using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable levels, and a handful of
package-level helpers for the common cases.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│  Global Logger (zerolog.Logger, set by log.Init())        │
	│           │                                                │
	│  Config: Level / JSONOutput / Output                      │
	│           │                                                │
	│  Context Loggers: WithComponent / WithCellTag /            │
	│                   WithTransactionID / WithOperationID      │
	│           │                                                │
	│  JSON or console-formatted output                          │
	└────────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	log.Info("cell starting")

	schedLog := log.WithComponent("scheduler")
	schedLog.Info().Str("operation_id", opID.String()).Msg("operation transitioned")

	txnLog := log.WithTransactionID(txnID.String())
	txnLog.Warn().Msg("lease expired")

# Integration points

  - pkg/manager: logs Raft/FSM events
  - pkg/cypress, pkg/txn, pkg/scheduler: component loggers per subsystem
  - pkg/api: logs request handling

# Security

Never log secret values or node attribute payloads that may carry Secret
node contents; log identifiers (node/transaction/operation IDs), not
values.

# See Also

  - https://github.com/rs/zerolog
*/
package log
