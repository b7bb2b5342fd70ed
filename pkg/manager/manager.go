package manager

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/cellar/pkg/client"
	"github.com/cuemby/cellar/pkg/cypress"
	"github.com/cuemby/cellar/pkg/events"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/metrics"
	"github.com/cuemby/cellar/pkg/reconciler"
	"github.com/cuemby/cellar/pkg/scheduler"
	"github.com/cuemby/cellar/pkg/scheduler/cleaner"
	"github.com/cuemby/cellar/pkg/security"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/txn"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"
)

// Manager represents a Cellar cell manager node.
type Manager struct {
	nodeID   string
	bindAddr string
	dataDir  string
	cell     ids.CellTag

	raft   *raft.Raft
	fsm    *cellarFSM
	store  storage.Store
	tree   *cypress.Tree
	txns   *txn.Manager
	sched  *scheduler.Scheduler
	clean  *cleaner.Cleaner
	mcol   *metrics.Collector
	recon  *reconciler.Reconciler

	tokenManager   *TokenManager
	secretsManager *security.SecretsManager
	ca             *security.CertAuthority
	eventBroker    *events.Broker

	logger zerolog.Logger
}

// Config holds configuration for creating a Manager.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
	CellTag  ids.CellTag

	// RetentionDelay, ArchiveBatchSize, and ArchiveBatchWait tune the
	// cleaner's archival loop; a zero value keeps the cleaner's own
	// default for that field. Populated from pkg/config when set.
	RetentionDelay   time.Duration
	ArchiveBatchSize int
	ArchiveBatchWait time.Duration
}

// NewManager creates a new Manager instance.
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	logger := zerolog.Nop()

	tree := cypress.NewTree(store, cfg.CellTag, logger)
	txns := txn.NewManager(store, tree, cfg.CellTag, logger)
	sched := scheduler.NewScheduler(store)
	clean := cleaner.NewCleanerWithOptions(store, cleaner.Options{
		RetentionDelay: cfg.RetentionDelay,
		BatchSize:      cfg.ArchiveBatchSize,
		BatchWait:      cfg.ArchiveBatchWait,
	})

	fsm := newCellarFSM(store, tree, txns, sched)
	tokenManager := NewTokenManager()

	clusterKey := security.DeriveKeyFromClusterID(cfg.NodeID)
	secretsManager, err := security.NewSecretsManager(clusterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets manager: %w", err)
	}
	if err := security.SetClusterEncryptionKey(clusterKey); err != nil {
		return nil, fmt.Errorf("failed to set cluster encryption key: %w", err)
	}
	tree.SetSecretsManager(secretsManager)

	ca := security.NewCertAuthority(store)
	eventBroker := events.NewBroker()
	eventBroker.Start()

	m := &Manager{
		nodeID:         cfg.NodeID,
		bindAddr:       cfg.BindAddr,
		dataDir:        cfg.DataDir,
		cell:           cfg.CellTag,
		fsm:            fsm,
		store:          store,
		tree:           tree,
		txns:           txns,
		sched:          sched,
		clean:          clean,
		secretsManager: secretsManager,
		ca:             ca,
		tokenManager:   tokenManager,
		eventBroker:    eventBroker,
		logger:         logger,
	}
	m.mcol = metrics.NewCollector(m)
	m.recon = reconciler.NewReconciler(store)

	return m, nil
}

// raftConfig builds the tuned Raft config shared by Bootstrap and Join.
func (m *Manager) raftConfig() *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(m.nodeID)

	// Hashicorp Raft's defaults (HeartbeatTimeout=1s, ElectionTimeout=1s,
	// LeaderLeaseTimeout=500ms) are tuned for WAN deployments. A cell runs
	// on a LAN, so these are halved for faster failure detection and a
	// quicker election.
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	return config
}

func (m *Manager) newRaft(config *raft.Config) (*raft.Raft, error) {
	addr, err := net.ResolveTCPAddr("tcp", m.bindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(m.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(m.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logStorePath := filepath.Join(m.dataDir, "raft-log.db")
	logStore, err := raftboltdb.NewBoltStore(logStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}

	stableStorePath := filepath.Join(m.dataDir, "raft-stable.db")
	stableStore, err := raftboltdb.NewBoltStore(stableStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create stable store: %w", err)
	}

	r, err := raft.NewRaft(config, m.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}
	return r, nil
}

// Bootstrap initializes a new single-node Raft cluster for this cell.
func (m *Manager) Bootstrap() error {
	config := m.raftConfig()
	r, err := m.newRaft(config)
	if err != nil {
		return err
	}
	m.raft = r

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: config.LocalID, Address: raft.ServerAddress(m.bindAddr)},
		},
	}
	future := m.raft.BootstrapCluster(configuration)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	if err := m.initializeCA(); err != nil {
		return fmt.Errorf("failed to initialize CA: %w", err)
	}

	if _, err := m.tree.Root(); err != nil {
		return fmt.Errorf("failed to initialize cypress root: %w", err)
	}

	return nil
}

// Join adds this manager to an existing cell by contacting the leader at
// leaderAddr with the given join token.
func (m *Manager) Join(leaderAddr string, token string) error {
	config := m.raftConfig()
	r, err := m.newRaft(config)
	if err != nil {
		return err
	}
	m.raft = r

	m.logger.Info().Str("leader_addr", leaderAddr).Str("node_id", m.nodeID).Msg("joining cell")

	c, err := client.NewClient(leaderAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to leader: %w", err)
	}
	defer c.Close()

	if err := c.JoinCluster(m.nodeID, m.bindAddr, token); err != nil {
		return fmt.Errorf("failed to join cluster via RPC: %w", err)
	}

	if err := m.ca.LoadFromStore(); err != nil {
		return fmt.Errorf("failed to load CA: %w", err)
	}

	return nil
}

// InitCluster bootstraps a brand new cell on this node.
func (m *Manager) InitCluster() error {
	return m.Bootstrap()
}

// JoinCluster joins this node to the cell whose leader is at leaderAddr.
func (m *Manager) JoinCluster(leaderAddr, token string) error {
	return m.Join(leaderAddr, token)
}

// AddVoter adds a new manager node to the Raft cluster.
func (m *Manager) AddVoter(nodeID, address string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader, current leader: %s", m.LeaderAddr())
	}
	future := m.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to add voter: %w", err)
	}
	return nil
}

// RemoveServer removes a server from the Raft cluster.
func (m *Manager) RemoveServer(nodeID string) error {
	if m.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !m.IsLeader() {
		return fmt.Errorf("not the leader")
	}
	future := m.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to remove server: %w", err)
	}
	return nil
}

// GetClusterServers returns information about all servers in the Raft cluster.
func (m *Manager) GetClusterServers() ([]raft.Server, error) {
	if m.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}
	future := m.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}
	return future.Configuration().Servers, nil
}

// IsLeader returns true if this manager is the Raft leader.
func (m *Manager) IsLeader() bool {
	if m.raft == nil {
		return false
	}
	return m.raft.State() == raft.Leader
}

// LeaderAddr returns the address of the current Raft leader.
func (m *Manager) LeaderAddr() string {
	if m.raft == nil {
		return ""
	}
	return string(m.raft.Leader())
}

// GetRaftStats returns Raft statistics for the metrics collector.
func (m *Manager) GetRaftStats() map[string]interface{} {
	if m.raft == nil {
		return nil
	}
	stats := make(map[string]interface{})
	stats["state"] = m.raft.State().String()
	stats["last_log_index"] = m.raft.LastIndex()
	stats["applied_index"] = m.raft.AppliedIndex()
	stats["leader"] = string(m.raft.Leader())

	configFuture := m.raft.GetConfiguration()
	if err := configFuture.Error(); err == nil {
		stats["peers"] = uint64(len(configFuture.Configuration().Servers))
	} else {
		stats["peers"] = uint64(0)
	}
	return stats
}

// GetEventBroker returns the event broker.
func (m *Manager) GetEventBroker() *events.Broker {
	return m.eventBroker
}

// PublishEvent publishes an event to all subscribers.
func (m *Manager) PublishEvent(event *events.Event) {
	if m.eventBroker != nil {
		m.eventBroker.Publish(event)
	}
}

// Apply submits a command to the Raft log and waits for it to commit.
func (m *Manager) Apply(cmd Command) (interface{}, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftCommitDuration)

	if m.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	future := m.raft.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to apply command: %w", err)
	}

	resp := future.Response()
	if err, ok := resp.(error); ok && err != nil {
		return nil, err
	}
	m.publishCommandEvent(cmd.Op)
	return resp, nil
}

// publishCommandEvent emits a domain event for a successfully applied
// command, mirroring the op constants dispatched in fsm.go.
func (m *Manager) publishCommandEvent(op string) {
	var eventType events.EventType
	switch op {
	case OpCreateNode:
		eventType = events.EventNodeCreated
	case OpRemoveNode:
		eventType = events.EventNodeRemoved
	case OpLockNode:
		eventType = events.EventNodeLocked
	case OpUnlockNode:
		eventType = events.EventNodeUnlocked
	case OpStartTransaction:
		eventType = events.EventTransactionStarted
	case OpCommitTransaction:
		eventType = events.EventTransactionCommitted
	case OpAbortTransaction:
		eventType = events.EventTransactionAborted
	case OpSubmitOperation:
		eventType = events.EventOperationSubmitted
	case OpAbortOperation:
		eventType = events.EventOperationAborted
	default:
		return
	}
	m.PublishEvent(&events.Event{Type: eventType})
}

// ListNodes returns every Cypress node (trunk and branch) in this cell.
func (m *Manager) ListNodes() ([]*types.Node, error) {
	return m.store.ListNodes()
}

// ListTransactions returns every transaction in this cell.
func (m *Manager) ListTransactions() ([]*types.Transaction, error) {
	return m.store.ListTransactions()
}

// ListOperations returns every operation in this cell.
func (m *Manager) ListOperations() ([]*types.Operation, error) {
	return m.store.ListOperations()
}

// Tree returns the cell's Cypress tree, used by pkg/api to serve reads
// without going through Raft.
func (m *Manager) Tree() *cypress.Tree {
	return m.tree
}

// Ping performs a lightweight storage reachability check for readiness probes.
func (m *Manager) Ping() error {
	_, err := m.store.ListNodes()
	return err
}

// Start runs the manager's leader-only background work: the scheduler, the
// operation cleaner, the runtime-parameter reconciler, and the metrics
// collector. Safe to call on every manager; each component no-ops when this
// node is not the leader.
func (m *Manager) Start() {
	m.sched.Start()
	m.clean.Start()
	m.recon.Start()
	m.mcol.Start()
}

// GenerateJoinToken generates a new join token for adding nodes.
func (m *Manager) GenerateJoinToken(role string) (*JoinToken, error) {
	if !m.IsLeader() {
		return nil, fmt.Errorf("not the leader, tokens can only be generated by the leader")
	}
	return m.tokenManager.GenerateToken(role, 24*time.Hour)
}

// ValidateJoinToken validates a join token.
func (m *Manager) ValidateJoinToken(token string) (string, error) {
	return m.tokenManager.ValidateToken(token)
}

// Shutdown gracefully shuts down the manager.
func (m *Manager) Shutdown() error {
	m.sched.Stop()
	m.clean.Stop()
	m.recon.Stop()
	m.mcol.Stop()

	if m.eventBroker != nil {
		m.eventBroker.Stop()
	}

	if m.raft != nil {
		future := m.raft.Shutdown()
		if err := future.Error(); err != nil {
			return fmt.Errorf("failed to shutdown raft: %w", err)
		}
	}

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}

	return nil
}

// initializeCA initializes the Certificate Authority for a new cell.
func (m *Manager) initializeCA() error {
	if m.ca.IsInitialized() {
		return nil
	}

	if err := m.ca.LoadFromStore(); err == nil {
		return nil
	}

	if err := m.ca.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize CA: %w", err)
	}
	if err := m.ca.SaveToStore(); err != nil {
		return fmt.Errorf("failed to save CA: %w", err)
	}

	certDir, err := security.GetCertDir("manager", m.nodeID)
	if err != nil {
		return fmt.Errorf("failed to get cert directory: %w", err)
	}

	if security.CertExists(certDir) {
		return nil
	}

	host, _, err := net.SplitHostPort(m.bindAddr)
	if err != nil {
		return fmt.Errorf("failed to parse bind address: %w", err)
	}
	var ipAddresses []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ipAddresses = []net.IP{ip}
	}

	dnsNames := []string{
		fmt.Sprintf("manager-%s", m.nodeID),
		"localhost",
	}

	cert, err := m.ca.IssueNodeCertificate(m.nodeID, "manager", dnsNames, ipAddresses)
	if err != nil {
		return fmt.Errorf("failed to issue node certificate: %w", err)
	}

	if err := security.SaveCertToFile(cert, certDir); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := security.SaveCACertToFile(m.ca.GetRootCACert(), certDir); err != nil {
		return fmt.Errorf("failed to save CA certificate: %w", err)
	}

	return nil
}

// IssueCertificate issues a client certificate for a driver or worker.
func (m *Manager) IssueCertificate(nodeID, role string) (*tls.Certificate, error) {
	if !m.ca.IsInitialized() {
		return nil, fmt.Errorf("CA not initialized")
	}
	return m.ca.IssueNodeCertificate(nodeID, role, nil, nil)
}

// CertToPEM converts a TLS certificate to PEM format.
func (m *Manager) CertToPEM(cert *tls.Certificate) (certPEM, keyPEM []byte, err error) {
	if cert == nil {
		return nil, nil, fmt.Errorf("certificate is nil")
	}

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Certificate[0],
	})

	privateKey, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("private key is not RSA")
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return certPEM, keyPEM, nil
}

// GetCACertPEM returns the CA certificate in PEM format.
func (m *Manager) GetCACertPEM() []byte {
	if !m.ca.IsInitialized() {
		return nil
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: m.ca.GetRootCACert(),
	})
}

// ValidateToken validates a join token and returns the role.
func (m *Manager) ValidateToken(token string) (string, error) {
	return m.tokenManager.ValidateToken(token)
}

// NodeID returns the manager's node ID.
func (m *Manager) NodeID() string {
	return m.nodeID
}

// SecretsManager returns the cell's secret-node encryption manager.
func (m *Manager) SecretsManager() *security.SecretsManager {
	return m.secretsManager
}
