package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/cuemby/cellar/pkg/manager"
	"github.com/cuemby/cellar/pkg/security"
	"github.com/cuemby/cellar/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Server implements the Cellar gRPC API service over mTLS.
type Server struct {
	manager *manager.Manager
	grpc    *grpc.Server
}

// NewServer creates a new API server with mTLS using the cell's CA.
func NewServer(mgr *manager.Manager) (*Server, error) {
	certDir, err := security.GetCertDir("manager", mgr.NodeID())
	if err != nil {
		return nil, fmt.Errorf("failed to get cert directory: %w", err)
	}

	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("manager certificate not found at %s - ensure the cell is initialized", certDir)
	}

	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load manager certificate: %w", err)
	}

	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate: %w", err)
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(caCert)

	tlsConfig := &tls.Config{
		ClientAuth:   tls.RequestClientCert,
		Certificates: []tls.Certificate{*cert},
		ClientCAs:    certPool,
		MinVersion:   tls.VersionTLS13,
	}

	creds := credentials.NewTLS(tlsConfig)
	grpcServer := grpc.NewServer(
		grpc.Creds(creds),
		grpc.UnaryInterceptor(AuthInterceptor()),
	)

	s := &Server{
		manager: mgr,
		grpc:    grpcServer,
	}
	grpcServer.RegisterService(&serviceDesc, s)

	return s, nil
}

// Start starts the gRPC server, blocking until it stops or errors.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

func (s *Server) ensureLeader() error {
	if !s.manager.IsLeader() {
		leaderAddr := s.manager.LeaderAddr()
		if leaderAddr == "" {
			return fmt.Errorf("no leader elected yet")
		}
		return fmt.Errorf("not the leader, current leader is at: %s", leaderAddr)
	}
	return nil
}

// --- Cypress read verbs (served from local state, no Raft round-trip) ---

func (s *Server) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	node, err := s.manager.Tree().Get(req.Path, req.TransactionID)
	if err != nil {
		return nil, err
	}
	return &GetResponse{Node: node}, nil
}

func (s *Server) GetAttribute(ctx context.Context, req *GetAttributeRequest) (*GetAttributeResponse, error) {
	path := req.Path
	if path == "/" || path == "" {
		path = "@" + req.Attribute
	} else {
		path = path + "/@" + req.Attribute
	}
	value, err := s.manager.Tree().GetAttribute(path, req.TransactionID)
	if err != nil {
		return nil, err
	}
	return &GetAttributeResponse{Value: value}, nil
}

func (s *Server) Exists(ctx context.Context, req *ExistsRequest) (*ExistsResponse, error) {
	return &ExistsResponse{Exists: s.manager.Tree().Exists(req.Path, req.TransactionID)}, nil
}

func (s *Server) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	names, err := s.manager.Tree().List(req.Path, req.TransactionID)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Names: names}, nil
}

// --- Cypress write verbs (proposed via Raft) ---

func (s *Server) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	resp, err := s.apply(manager.OpCreateNode, req)
	if err != nil {
		return nil, err
	}
	node, _ := resp.(*types.Node)
	return &CreateResponse{Node: node}, nil
}

func (s *Server) Set(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpSetNode, req); err != nil {
		return nil, err
	}
	return &SetResponse{}, nil
}

func (s *Server) Remove(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpRemoveNode, req); err != nil {
		return nil, err
	}
	return &RemoveResponse{}, nil
}

func (s *Server) SetAttribute(ctx context.Context, req *SetAttributeRequest) (*SetAttributeResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpSetAttribute, req); err != nil {
		return nil, err
	}
	return &SetAttributeResponse{}, nil
}

func (s *Server) RemoveAttribute(ctx context.Context, req *RemoveAttributeRequest) (*RemoveAttributeResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpRemoveAttribute, req); err != nil {
		return nil, err
	}
	return &RemoveAttributeResponse{}, nil
}

func (s *Server) Copy(ctx context.Context, req *CopyRequest) (*CopyResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	resp, err := s.apply(manager.OpCopyNode, req)
	if err != nil {
		return nil, err
	}
	node, _ := resp.(*types.Node)
	return &CopyResponse{Node: node}, nil
}

func (s *Server) Move(ctx context.Context, req *MoveRequest) (*MoveResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	resp, err := s.apply(manager.OpMoveNode, req)
	if err != nil {
		return nil, err
	}
	node, _ := resp.(*types.Node)
	return &MoveResponse{Node: node}, nil
}

func (s *Server) Link(ctx context.Context, req *LinkRequest) (*LinkResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	resp, err := s.apply(manager.OpLinkNode, req)
	if err != nil {
		return nil, err
	}
	node, _ := resp.(*types.Node)
	return &LinkResponse{Node: node}, nil
}

func (s *Server) Lock(ctx context.Context, req *LockRequest) (*LockResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	resp, err := s.apply(manager.OpLockNode, req)
	if err != nil {
		return nil, err
	}
	result, _ := resp.(*manager.LockResult)
	if result == nil {
		return &LockResponse{}, nil
	}
	return &LockResponse{Lock: result.Lock, LockID: result.LockID}, nil
}

func (s *Server) Unlock(ctx context.Context, req *UnlockRequest) (*UnlockResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpUnlockNode, req); err != nil {
		return nil, err
	}
	return &UnlockResponse{}, nil
}

// --- Transaction verbs ---

func (s *Server) StartTransaction(ctx context.Context, req *StartTransactionRequest) (*StartTransactionResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	resp, err := s.apply(manager.OpStartTransaction, req)
	if err != nil {
		return nil, err
	}
	txn, _ := resp.(*types.Transaction)
	return &StartTransactionResponse{Transaction: txn}, nil
}

func (s *Server) PingTransaction(ctx context.Context, req *TransactionIDRequest) (*TransactionResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpPingTransaction, req); err != nil {
		return nil, err
	}
	return &TransactionResponse{}, nil
}

func (s *Server) PrepareCommitTransaction(ctx context.Context, req *TransactionIDRequest) (*TransactionResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpPrepareCommitTransaction, req); err != nil {
		return nil, err
	}
	return &TransactionResponse{}, nil
}

func (s *Server) CommitTransaction(ctx context.Context, req *CommitTransactionRequest) (*TransactionResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpCommitTransaction, req); err != nil {
		return nil, err
	}
	return &TransactionResponse{}, nil
}

func (s *Server) AbortTransaction(ctx context.Context, req *TransactionIDRequest) (*TransactionResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpAbortTransaction, req); err != nil {
		return nil, err
	}
	return &TransactionResponse{}, nil
}

// --- Scheduler verbs ---

func (s *Server) SubmitOperation(ctx context.Context, req *SubmitOperationRequest) (*SubmitOperationResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if req.Operation.ID.IsZero() {
		return nil, fmt.Errorf("operation ID must be set by the caller")
	}
	resp, err := s.apply(manager.OpSubmitOperation, req)
	if err != nil {
		return nil, err
	}
	op, _ := resp.(*types.Operation)
	return &SubmitOperationResponse{Operation: op}, nil
}

func (s *Server) AbortOperation(ctx context.Context, req *OperationIDRequest) (*OperationResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	if _, err := s.apply(manager.OpAbortOperation, req); err != nil {
		return nil, err
	}
	return &OperationResponse{}, nil
}

func (s *Server) GetOperation(ctx context.Context, req *GetOperationRequest) (*GetOperationResponse, error) {
	ops, err := s.manager.ListOperations()
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if op.ID == req.ID {
			return &GetOperationResponse{Operation: op}, nil
		}
	}
	return nil, fmt.Errorf("operation %s not found", req.ID)
}

func (s *Server) ListOperations(ctx context.Context, req *ListOperationsRequest) (*ListOperationsResponse, error) {
	ops, err := s.manager.ListOperations()
	if err != nil {
		return nil, err
	}
	return &ListOperationsResponse{Operations: ops}, nil
}

// --- Cluster management verbs ---

func (s *Server) GenerateJoinToken(ctx context.Context, req *GenerateJoinTokenRequest) (*GenerateJoinTokenResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}
	token, err := s.manager.GenerateJoinToken(req.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate join token: %w", err)
	}
	return &GenerateJoinTokenResponse{
		Token:     token.Token,
		Role:      token.Role,
		ExpiresAt: token.ExpiresAt.Unix(),
	}, nil
}

func (s *Server) JoinCluster(ctx context.Context, req *JoinClusterRequest) (*JoinClusterResponse, error) {
	if err := s.ensureLeader(); err != nil {
		return nil, err
	}

	role, err := s.manager.ValidateJoinToken(req.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid join token: %w", err)
	}
	if role != "manager" {
		return nil, fmt.Errorf("invalid token role: expected manager, got %s", role)
	}

	if err := s.manager.AddVoter(req.NodeID, req.BindAddr); err != nil {
		return nil, fmt.Errorf("failed to add voter: %w", err)
	}

	return &JoinClusterResponse{
		Status:     "success",
		LeaderAddr: s.manager.LeaderAddr(),
	}, nil
}

func (s *Server) GetClusterInfo(ctx context.Context, req *GetClusterInfoRequest) (*GetClusterInfoResponse, error) {
	servers, err := s.manager.GetClusterServers()
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster servers: %w", err)
	}

	out := make([]ClusterServer, len(servers))
	for i, srv := range servers {
		out[i] = ClusterServer{
			ID:       string(srv.ID),
			Address:  string(srv.Address),
			Suffrage: srv.Suffrage.String(),
		}
	}

	return &GetClusterInfoResponse{
		LeaderAddr: s.manager.LeaderAddr(),
		Servers:    out,
	}, nil
}

func (s *Server) RequestCertificate(ctx context.Context, req *RequestCertificateRequest) (*RequestCertificateResponse, error) {
	role, err := s.manager.ValidateToken(req.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	cert, err := s.manager.IssueCertificate(req.NodeID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}

	certPEM, keyPEM, err := s.manager.CertToPEM(cert)
	if err != nil {
		return nil, fmt.Errorf("failed to convert certificate to PEM: %w", err)
	}

	return &RequestCertificateResponse{
		Certificate: certPEM,
		PrivateKey:  keyPEM,
		CACert:      s.manager.GetCACertPEM(),
	}, nil
}

// apply marshals req as the Data payload of a manager.Command tagged with
// op and proposes it through Raft.
func (s *Server) apply(op string, req interface{}) (interface{}, error) {
	data, err := marshalJSON(req)
	if err != nil {
		return nil, fmt.Errorf("marshal command payload: %w", err)
	}
	return s.manager.Apply(manager.Command{Op: op, Data: data})
}
