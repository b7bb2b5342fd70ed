/*
Package client provides a Go client library for the Cellar gRPC API.

The client package wraps pkg/api's hand-rolled JSON-over-gRPC service with a
convenient, idiomatic Go interface: connection management, mTLS certificate
handling, and typed methods for every Cypress, transaction, operation, and
cluster-management verb the manager serves.

# Architecture

	┌──────────────────── APPLICATION CODE ──────────────────────┐
	│                                                              │
	│  import "github.com/cuemby/cellar/pkg/client"               │
	│                                                              │
	│  c, err := client.NewClient("manager:8080")                 │
	│  node, err := c.Get("//sys/cells", ids.Nil)                 │
	│                                                              │
	└──────────────────┬───────────────────────────────────────┘
	                   │
	┌──────────────────▼──── pkg/client ─────────────────────────┐
	│                                                              │
	│  ┌──────────────────────────────────────────────┐          │
	│  │           Client                              │          │
	│  │  - Typed Cypress/transaction/operation verbs  │          │
	│  │  - Certificate request + mTLS dial            │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                        │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │         gRPC ClientConn (mTLS, JSON codec)    │          │
	│  └──────────────────┬───────────────────────────┘          │
	└─────────────────────┼────────────────────────────────────┘
	                      │ gRPC (port 8080)
	                      ▼
	                Cell Manager (pkg/api.Server)

# Core Features

Connection Management:
  - mTLS dial against a manager address
  - Certificates loaded from the local CLI cert directory (pkg/security)

Certificate Management:
  - NewClientWithToken auto-requests a certificate using a join token
  - NewClient requires a certificate already present on disk

Wire Format:
  - No protobuf: requests/responses are plain structs from pkg/api,
    carried by the "json" gRPC codec registered in pkg/api

# Usage

Creating a client with an existing certificate:

	import (
		"log"

		"github.com/cuemby/cellar/pkg/client"
		"github.com/cuemby/cellar/pkg/ids"
	)

	c, err := client.NewClient("192.168.1.10:8080")
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	node, err := c.Get("//sys/cells/0", ids.Nil)
	if err != nil {
		log.Fatal(err)
	}

Creating a client from a join token (requests a certificate first):

	c, err := client.NewClientWithToken("192.168.1.10:8080", joinToken)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

Starting a transaction and writing under it:

	txn, err := c.StartTransaction(ids.Nil, "batch update", "alice", 60, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := c.Set("//home/alice/config", []byte(`{"retries":3}`), txn.ID); err != nil {
		log.Fatal(err)
	}
	if err := c.CommitTransaction(txn.ID, 0); err != nil {
		log.Fatal(err)
	}

Submitting an operation:

	op := &types.Operation{ID: ids.MustNew(0, ids.KindNode), Spec: spec}
	submitted, err := c.SubmitOperation(op)

# Error Handling

Every method returns the gRPC error verbatim (wrapped with context where the
client itself fails, e.g. during cert loading or dialing). Write verbs
return a "not leader" error naming the current leader's address when the
contacted node isn't the Raft leader; callers should redial that address
and retry.

# See Also

  - pkg/api for the service this client talks to
  - pkg/security for certificate issuance and storage
*/
package client
