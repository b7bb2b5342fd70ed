package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/cellar/pkg/api"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/security"
	"github.com/cuemby/cellar/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a Go driver for the Cellar gRPC API. It dials with mTLS using a
// certificate issued by the cell's CA and carries requests over the
// hand-registered JSON codec (see pkg/api/codec.go) rather than protobuf.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient dials addr using an existing CLI certificate.
func NewClient(addr string) (*Client, error) {
	certDir, err := security.GetCertDir("cli", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("CLI certificate not found at %s. Please run 'cellar init' to request a certificate from the manager", certDir)
	}

	conn, err := connectWithMTLS(addr, certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to connect with mTLS: %w", err)
	}

	return &Client{conn: conn}, nil
}

// NewClientWithToken requests a certificate using a join token (if one is
// not already on disk) and then dials addr with mTLS.
func NewClientWithToken(addr, token string) (*Client, error) {
	certDir, err := security.GetCertDir("cli", "")
	if err != nil {
		return nil, fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		fmt.Println("CLI certificate not found, requesting from manager...")
		if err := requestCertificate(addr, token, certDir); err != nil {
			return nil, fmt.Errorf("failed to request certificate: %w", err)
		}
		fmt.Printf("certificate obtained and saved to %s\n", certDir)
	} else {
		fmt.Printf("using existing certificate from %s\n", certDir)
	}

	conn, err := connectWithMTLS(addr, certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to manager: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	fullMethod := "/cellar.Cellar/" + method
	return c.conn.Invoke(ctx, fullMethod, req, resp, grpc.CallContentSubtype(jsonCodecName))
}

const jsonCodecName = "json"

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// Get reads a single node at path, as seen under the given transaction (the
// zero ids.ID reads the committed trunk).
func (c *Client) Get(path string, txnID ids.ID) (*types.Node, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.GetRequest{Path: path, TransactionID: txnID}
	resp := &api.GetResponse{}
	if err := c.invoke(ctx, "Get", req, resp); err != nil {
		return nil, err
	}
	return resp.Node, nil
}

// GetAttribute returns the raw value of attribute on the node at path
// (one of the always-present virtual attributes "type"/"id"/"path", or a
// stored user attribute).
func (c *Client) GetAttribute(path, attribute string, txnID ids.ID) ([]byte, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.GetAttributeRequest{Path: path, Attribute: attribute, TransactionID: txnID}
	resp := &api.GetAttributeResponse{}
	if err := c.invoke(ctx, "GetAttribute", req, resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Exists reports whether path exists under the given transaction.
func (c *Client) Exists(path string, txnID ids.ID) (bool, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.ExistsRequest{Path: path, TransactionID: txnID}
	resp := &api.ExistsResponse{}
	if err := c.invoke(ctx, "Exists", req, resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// List returns the child names of the map node at path.
func (c *Client) List(path string, txnID ids.ID) ([]string, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.ListRequest{Path: path, TransactionID: txnID}
	resp := &api.ListResponse{}
	if err := c.invoke(ctx, "List", req, resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// Create creates a new node named name under parentPath.
func (c *Client) Create(parentPath, name string, kind types.NodeKind, txnID ids.ID, force bool) (*types.Node, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.CreateRequest{
		ParentPath:    parentPath,
		Name:          name,
		Kind:          kind,
		TransactionID: txnID,
		Force:         force,
	}
	resp := &api.CreateResponse{}
	if err := c.invoke(ctx, "Create", req, resp); err != nil {
		return nil, err
	}
	return resp.Node, nil
}

// Set overwrites the value of the document node at path.
func (c *Client) Set(path string, value []byte, txnID ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.SetRequest{Path: path, Value: value, TransactionID: txnID}
	resp := &api.SetResponse{}
	return c.invoke(ctx, "Set", req, resp)
}

// Remove deletes the node at path.
func (c *Client) Remove(path string, txnID ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.RemoveRequest{Path: path, TransactionID: txnID}
	resp := &api.RemoveResponse{}
	return c.invoke(ctx, "Remove", req, resp)
}

// SetAttribute writes attribute on the node at path: a documented
// inheritable-attribute key (e.g. "replication_factor", "media") or a free
// user attribute, JSON-encoded in value.
func (c *Client) SetAttribute(path, attribute string, value []byte, txnID ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.SetAttributeRequest{Path: path, Attribute: attribute, Value: value, TransactionID: txnID}
	resp := &api.SetAttributeResponse{}
	return c.invoke(ctx, "SetAttribute", req, resp)
}

// RemoveAttribute clears attribute from the node at path.
func (c *Client) RemoveAttribute(path, attribute string, txnID ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.RemoveAttributeRequest{Path: path, Attribute: attribute, TransactionID: txnID}
	resp := &api.RemoveAttributeResponse{}
	return c.invoke(ctx, "RemoveAttribute", req, resp)
}

// Copy copies the subtree at srcPath to a new child of dstParentPath.
func (c *Client) Copy(srcPath, dstParentPath, name string, txnID ids.ID, force bool) (*types.Node, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.CopyRequest{
		SrcPath:       srcPath,
		DstParentPath: dstParentPath,
		Name:          name,
		TransactionID: txnID,
		Force:         force,
	}
	resp := &api.CopyResponse{}
	if err := c.invoke(ctx, "Copy", req, resp); err != nil {
		return nil, err
	}
	return resp.Node, nil
}

// Move relocates the subtree at srcPath to a new child of dstParentPath.
func (c *Client) Move(srcPath, dstParentPath, name string, txnID ids.ID, force bool) (*types.Node, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.MoveRequest{
		SrcPath:       srcPath,
		DstParentPath: dstParentPath,
		Name:          name,
		TransactionID: txnID,
		Force:         force,
	}
	resp := &api.MoveResponse{}
	if err := c.invoke(ctx, "Move", req, resp); err != nil {
		return nil, err
	}
	return resp.Node, nil
}

// Link creates a symbolic-link node pointing at targetPath.
func (c *Client) Link(parentPath, name, targetPath string, txnID ids.ID) (*types.Node, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.LinkRequest{
		ParentPath:    parentPath,
		Name:          name,
		TargetPath:    targetPath,
		TransactionID: txnID,
	}
	resp := &api.LinkResponse{}
	if err := c.invoke(ctx, "Link", req, resp); err != nil {
		return nil, err
	}
	return resp.Node, nil
}

// Lock acquires a lock on path under the given transaction.
func (c *Client) Lock(path string, txnID ids.ID, mode types.LockMode, key types.LockKey, waitable bool) (*types.Lock, ids.ID, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.LockRequest{
		Path:          path,
		TransactionID: txnID,
		Mode:          mode,
		Key:           key,
		Waitable:      waitable,
	}
	resp := &api.LockResponse{}
	if err := c.invoke(ctx, "Lock", req, resp); err != nil {
		return nil, ids.Nil, err
	}
	return resp.Lock, resp.LockID, nil
}

// Unlock releases the lock identified by lockID.
func (c *Client) Unlock(lockID string, txnID ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.UnlockRequest{LockID: lockID, TransactionID: txnID}
	resp := &api.UnlockResponse{}
	return c.invoke(ctx, "Unlock", req, resp)
}

// StartTransaction begins a new transaction, optionally nested under parentID.
func (c *Client) StartTransaction(parentID ids.ID, title, authenticatedUser string, timeoutSeconds int64, prerequisites []ids.ID, replicateTo []ids.CellTag) (*types.Transaction, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.StartTransactionRequest{
		ParentID:                   parentID,
		Title:                      title,
		AuthenticatedUser:          authenticatedUser,
		TimeoutSeconds:             timeoutSeconds,
		PrerequisiteTransactionIDs: prerequisites,
		ReplicateTo:                replicateTo,
	}
	resp := &api.StartTransactionResponse{}
	if err := c.invoke(ctx, "StartTransaction", req, resp); err != nil {
		return nil, err
	}
	return resp.Transaction, nil
}

// PingTransaction renews the lease on a transaction.
func (c *Client) PingTransaction(id ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.TransactionIDRequest{ID: id}
	resp := &api.TransactionResponse{}
	return c.invoke(ctx, "PingTransaction", req, resp)
}

// PrepareCommitTransaction runs the prepare phase of two-phase commit.
func (c *Client) PrepareCommitTransaction(id ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.TransactionIDRequest{ID: id}
	resp := &api.TransactionResponse{}
	return c.invoke(ctx, "PrepareCommitTransaction", req, resp)
}

// CommitTransaction commits a previously prepared transaction.
func (c *Client) CommitTransaction(id ids.ID, commitTimestamp uint64) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.CommitTransactionRequest{ID: id, CommitTimestamp: commitTimestamp}
	resp := &api.TransactionResponse{}
	return c.invoke(ctx, "CommitTransaction", req, resp)
}

// AbortTransaction aborts a transaction and releases its locks.
func (c *Client) AbortTransaction(id ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.TransactionIDRequest{ID: id}
	resp := &api.TransactionResponse{}
	return c.invoke(ctx, "AbortTransaction", req, resp)
}

// SubmitOperation submits a scheduler operation. The caller must set op.ID.
func (c *Client) SubmitOperation(op *types.Operation) (*types.Operation, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.SubmitOperationRequest{Operation: op}
	resp := &api.SubmitOperationResponse{}
	if err := c.invoke(ctx, "SubmitOperation", req, resp); err != nil {
		return nil, err
	}
	return resp.Operation, nil
}

// AbortOperation requests that a running operation be aborted.
func (c *Client) AbortOperation(id ids.ID) error {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.OperationIDRequest{ID: id}
	resp := &api.OperationResponse{}
	return c.invoke(ctx, "AbortOperation", req, resp)
}

// GetOperation retrieves an operation by ID.
func (c *Client) GetOperation(id ids.ID) (*types.Operation, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.GetOperationRequest{ID: id}
	resp := &api.GetOperationResponse{}
	if err := c.invoke(ctx, "GetOperation", req, resp); err != nil {
		return nil, err
	}
	return resp.Operation, nil
}

// ListOperations lists all known operations.
func (c *Client) ListOperations() ([]*types.Operation, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.ListOperationsRequest{}
	resp := &api.ListOperationsResponse{}
	if err := c.invoke(ctx, "ListOperations", req, resp); err != nil {
		return nil, err
	}
	return resp.Operations, nil
}

// GenerateJoinToken generates a join token for a node of the given role.
func (c *Client) GenerateJoinToken(role string) (*api.GenerateJoinTokenResponse, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.GenerateJoinTokenRequest{Role: role}
	resp := &api.GenerateJoinTokenResponse{}
	if err := c.invoke(ctx, "GenerateJoinToken", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetClusterInfo returns the current leader and Raft server set.
func (c *Client) GetClusterInfo() (*api.GetClusterInfoResponse, error) {
	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.GetClusterInfoRequest{}
	resp := &api.GetClusterInfoResponse{}
	if err := c.invoke(ctx, "GetClusterInfo", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// JoinCluster adds a node to the Raft cluster using a join token.
func (c *Client) JoinCluster(nodeID, bindAddr, token string) error {
	ctx, cancel := withTimeout(30 * time.Second)
	defer cancel()

	req := &api.JoinClusterRequest{NodeID: nodeID, BindAddr: bindAddr, Token: token}
	resp := &api.JoinClusterResponse{}
	return c.invoke(ctx, "JoinCluster", req, resp)
}

// requestCertificate requests a certificate from the manager using a join
// token and saves the result under certDir.
func requestCertificate(addr, token, certDir string) error {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to manager: %w", err)
	}
	defer conn.Close()

	ctx, cancel := withTimeout(10 * time.Second)
	defer cancel()

	req := &api.RequestCertificateRequest{NodeID: "cli", Token: token}
	resp := &api.RequestCertificateResponse{}
	fullMethod := "/cellar.Cellar/RequestCertificate"
	if err := conn.Invoke(ctx, fullMethod, req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return fmt.Errorf("failed to request certificate: %w", err)
	}

	if err := os.MkdirAll(certDir, 0700); err != nil {
		return fmt.Errorf("failed to create cert directory: %w", err)
	}

	certPath := certDir + "/node.crt"
	keyPath := certDir + "/node.key"
	caPath := certDir + "/ca.crt"

	if err := os.WriteFile(certPath, resp.Certificate, 0600); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, resp.PrivateKey, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(caPath, resp.CACert, 0644); err != nil {
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}

	return nil
}

// connectWithMTLS establishes a gRPC connection with mTLS.
func connectWithMTLS(addr, certDir string) (*grpc.ClientConn, error) {
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load CLI certificate: %w", err)
	}

	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate: %w", err)
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(caCert)

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      certPool,
		MinVersion:   tls.VersionTLS13,
	}

	creds := credentials.NewTLS(tlsConfig)
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to dial manager: %w", err)
	}

	return conn, nil
}
