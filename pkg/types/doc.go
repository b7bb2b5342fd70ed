// Package types defines the data model shared by the Cypress tree
// (pkg/cypress), the transaction manager (pkg/txn), and the scheduler
// (pkg/scheduler): nodes, locks, access control descriptors, transactions,
// operations, jobs, and archive requests.
//
// Every type here is a plain Go struct, JSON-marshaled into a BoltDB record
// by pkg/storage, the same way pkg/types held
// Node/Service/Container/Secret for pkg/storage.BoltStore.
package types
