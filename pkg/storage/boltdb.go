package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketNodes             = []byte("nodes")
	bucketBranches          = []byte("branches")
	bucketLocks             = []byte("locks")
	bucketTransactions      = []byte("transactions")
	bucketTimestampHolders  = []byte("timestamp_holders")
	bucketOperations        = []byte("operations")
	bucketJobs              = []byte("jobs")
	bucketArchiveRequests   = []byte("archive_requests")
	bucketCA                = []byte("ca")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "cellar.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNodes,
			bucketBranches,
			bucketLocks,
			bucketTransactions,
			bucketTimestampHolders,
			bucketOperations,
			bucketJobs,
			bucketArchiveRequests,
			bucketCA,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func idKey(id ids.ID) []byte {
	return []byte(id.String())
}

func branchKey(id, txnID ids.ID) []byte {
	return []byte(id.String() + "/" + txnID.String())
}

func timestampHolderKey(timestamp uint64, cell ids.CellTag) []byte {
	var buf [10]byte
	binary.BigEndian.PutUint64(buf[:8], timestamp)
	binary.BigEndian.PutUint16(buf[8:], uint16(cell))
	return buf[:]
}

// Node operations
func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put(idKey(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id ids.ID) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("node not found: %s", id)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) GetBranch(id, txnID ids.ID) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)
		data := b.Get(branchKey(id, txnID))
		if data == nil {
			return fmt.Errorf("branch not found: %s under %s", id, txnID)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListBranches(txnID ids.ID) ([]*types.Node, error) {
	var branches []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			if node.TransactionID == txnID {
				branches = append(branches, &node)
			}
			return nil
		})
	})
	return branches, err
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	if node.IsBranch() {
		return s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketBranches)
			data, err := json.Marshal(node)
			if err != nil {
				return err
			}
			return b.Put(branchKey(node.ID, node.TransactionID), data)
		})
	}
	return s.CreateNode(node) // trunk upsert
}

func (s *BoltStore) DeleteNode(id ids.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.Delete(idKey(id))
	})
}

// DeleteBranch removes only the (id, txnID) branch record, never the trunk
// node stored under bucketNodes. A branch shares its trunk's ID, so
// DeleteNode must never be used to discard a branch on abort.
func (s *BoltStore) DeleteBranch(id, txnID ids.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBranches)
		return b.Delete(branchKey(id, txnID))
	})
}

func (s *BoltStore) ListNodes() ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

// Lock operations
func (s *BoltStore) CreateLock(lock *types.Lock) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		data, err := json.Marshal(lock)
		if err != nil {
			return err
		}
		return b.Put([]byte(lock.ID), data)
	})
}

func (s *BoltStore) GetLock(id string) (*types.Lock, error) {
	var lock types.Lock
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("lock not found: %s", id)
		}
		return json.Unmarshal(data, &lock)
	})
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (s *BoltStore) ListLocksByNode(nodeID ids.ID) ([]*types.Lock, error) {
	var locks []*types.Lock
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.ForEach(func(k, v []byte) error {
			var lock types.Lock
			if err := json.Unmarshal(v, &lock); err != nil {
				return err
			}
			if lock.NodeID == nodeID {
				locks = append(locks, &lock)
			}
			return nil
		})
	})
	return locks, err
}

func (s *BoltStore) ListLocksByTransaction(txnID ids.ID) ([]*types.Lock, error) {
	var locks []*types.Lock
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.ForEach(func(k, v []byte) error {
			var lock types.Lock
			if err := json.Unmarshal(v, &lock); err != nil {
				return err
			}
			if lock.TransactionID == txnID {
				locks = append(locks, &lock)
			}
			return nil
		})
	})
	return locks, err
}

func (s *BoltStore) UpdateLock(lock *types.Lock) error {
	return s.CreateLock(lock)
}

func (s *BoltStore) DeleteLock(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		return b.Delete([]byte(id))
	})
}

// Transaction operations
func (s *BoltStore) CreateTransaction(txn *types.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		data, err := json.Marshal(txn)
		if err != nil {
			return err
		}
		return b.Put(idKey(txn.ID), data)
	})
}

func (s *BoltStore) GetTransaction(id ids.ID) (*types.Transaction, error) {
	var txn types.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("transaction not found: %s", id)
		}
		return json.Unmarshal(data, &txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *BoltStore) ListTransactions() ([]*types.Transaction, error) {
	var txns []*types.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		return b.ForEach(func(k, v []byte) error {
			var txn types.Transaction
			if err := json.Unmarshal(v, &txn); err != nil {
				return err
			}
			txns = append(txns, &txn)
			return nil
		})
	})
	return txns, err
}

func (s *BoltStore) UpdateTransaction(txn *types.Transaction) error {
	return s.CreateTransaction(txn)
}

func (s *BoltStore) DeleteTransaction(id ids.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		return b.Delete(idKey(id))
	})
}

// Timestamp holder operations
func (s *BoltStore) SaveTimestampHolder(h *types.TimestampHolder) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTimestampHolders)
		data, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return b.Put(timestampHolderKey(h.Timestamp, h.Cell), data)
	})
}

func (s *BoltStore) GetTimestampHolder(timestamp uint64, cell ids.CellTag) (*types.TimestampHolder, error) {
	var h types.TimestampHolder
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTimestampHolders)
		data := b.Get(timestampHolderKey(timestamp, cell))
		if data == nil {
			return fmt.Errorf("timestamp holder not found: %d/%d", timestamp, cell)
		}
		return json.Unmarshal(data, &h)
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *BoltStore) ListTimestampHolders() ([]*types.TimestampHolder, error) {
	var holders []*types.TimestampHolder
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTimestampHolders)
		return b.ForEach(func(k, v []byte) error {
			var h types.TimestampHolder
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			holders = append(holders, &h)
			return nil
		})
	})
	return holders, err
}

func (s *BoltStore) DeleteTimestampHolder(timestamp uint64, cell ids.CellTag) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTimestampHolders)
		return b.Delete(timestampHolderKey(timestamp, cell))
	})
}

// Operation operations
func (s *BoltStore) CreateOperation(op *types.Operation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		data, err := json.Marshal(op)
		if err != nil {
			return err
		}
		return b.Put(idKey(op.ID), data)
	})
}

func (s *BoltStore) GetOperation(id ids.ID) (*types.Operation, error) {
	var op types.Operation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("operation not found: %s", id)
		}
		return json.Unmarshal(data, &op)
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (s *BoltStore) GetOperationByAlias(alias string) (*types.Operation, error) {
	var found *types.Operation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		return b.ForEach(func(k, v []byte) error {
			var op types.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			if op.Alias == alias {
				found = &op
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("operation not found: %s", alias)
	}
	return found, nil
}

func (s *BoltStore) ListOperations() ([]*types.Operation, error) {
	var ops []*types.Operation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		return b.ForEach(func(k, v []byte) error {
			var op types.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}
			ops = append(ops, &op)
			return nil
		})
	})
	return ops, err
}

func (s *BoltStore) UpdateOperation(op *types.Operation) error {
	return s.CreateOperation(op)
}

func (s *BoltStore) DeleteOperation(id ids.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOperations)
		return b.Delete(idKey(id))
	})
}

// Job operations
func (s *BoltStore) CreateJob(job *types.Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return b.Put(idKey(job.ID), data)
	})
}

func (s *BoltStore) GetJob(id ids.ID) (*types.Job, error) {
	var job types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("job not found: %s", id)
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *BoltStore) ListJobsByOperation(opID ids.ID) ([]*types.Job, error) {
	var jobs []*types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.ForEach(func(k, v []byte) error {
			var job types.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			if job.OperationID == opID {
				jobs = append(jobs, &job)
			}
			return nil
		})
	})
	return jobs, err
}

func (s *BoltStore) UpdateJob(job *types.Job) error {
	return s.CreateJob(job)
}

func (s *BoltStore) DeleteJob(id ids.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		return b.Delete(idKey(id))
	})
}

// Archive operations
func (s *BoltStore) CreateArchiveRequest(req *types.ArchiveRequest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchiveRequests)
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		return b.Put(idKey(req.ID), data)
	})
}

func (s *BoltStore) ListArchiveRequests() ([]*types.ArchiveRequest, error) {
	var reqs []*types.ArchiveRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchiveRequests)
		return b.ForEach(func(k, v []byte) error {
			var req types.ArchiveRequest
			if err := json.Unmarshal(v, &req); err != nil {
				return err
			}
			reqs = append(reqs, &req)
			return nil
		})
	})
	return reqs, err
}

func (s *BoltStore) DeleteArchiveRequest(id ids.ID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchiveRequests)
		return b.Delete(idKey(id))
	})
}

// Certificate Authority operations
func (s *BoltStore) SaveCA(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCA)
		// Use fixed key "ca" for the CA data
		return b.Put([]byte("ca"), data)
	})
}

func (s *BoltStore) GetCA() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCA)
		data = b.Get([]byte("ca"))
		if data == nil {
			return fmt.Errorf("CA not found")
		}
		// Make a copy since BoltDB data is only valid during the transaction
		dataCopy := make([]byte, len(data))
		copy(dataCopy, data)
		data = dataCopy
		return nil
	})
	return data, err
}
