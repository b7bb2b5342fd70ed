package api

import (
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// Request/response wire types for the Cellar API service. Cellar ships no
// generated protobuf stubs, so these are the plain structs the jsonCodec
// marshals directly - gRPC supplies framing, streaming, and mTLS, not the
// message encoding.

type GetRequest struct {
	Path          string `json:"path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type GetResponse struct {
	Node *types.Node `json:"node"`
}

type GetAttributeRequest struct {
	Path          string `json:"path"`
	Attribute     string `json:"attribute"`
	TransactionID ids.ID `json:"transaction_id"`
}

type GetAttributeResponse struct {
	Value []byte `json:"value"`
}

type ExistsRequest struct {
	Path          string `json:"path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type ListRequest struct {
	Path          string `json:"path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type ListResponse struct {
	Names []string `json:"names"`
}

type CreateRequest struct {
	ParentPath    string         `json:"parent_path"`
	Name          string         `json:"name"`
	Kind          types.NodeKind `json:"kind"`
	TransactionID ids.ID         `json:"transaction_id"`
	Force         bool           `json:"force"`
}

type CreateResponse struct {
	Node *types.Node `json:"node"`
}

type SetRequest struct {
	Path          string `json:"path"`
	Value         []byte `json:"value"`
	TransactionID ids.ID `json:"transaction_id"`
}

type SetResponse struct{}

type RemoveRequest struct {
	Path          string `json:"path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type RemoveResponse struct{}

type SetAttributeRequest struct {
	Path          string `json:"path"`
	Attribute     string `json:"attribute"`
	Value         []byte `json:"value"`
	TransactionID ids.ID `json:"transaction_id"`
}

type SetAttributeResponse struct{}

type RemoveAttributeRequest struct {
	Path          string `json:"path"`
	Attribute     string `json:"attribute"`
	TransactionID ids.ID `json:"transaction_id"`
}

type RemoveAttributeResponse struct{}

type CopyRequest struct {
	SrcPath       string `json:"src_path"`
	DstParentPath string `json:"dst_parent_path"`
	Name          string `json:"name"`
	TransactionID ids.ID `json:"transaction_id"`
	Force         bool   `json:"force"`
}

type CopyResponse struct {
	Node *types.Node `json:"node"`
}

type MoveRequest struct {
	SrcPath       string `json:"src_path"`
	DstParentPath string `json:"dst_parent_path"`
	Name          string `json:"name"`
	TransactionID ids.ID `json:"transaction_id"`
	Force         bool   `json:"force"`
}

type MoveResponse struct {
	Node *types.Node `json:"node"`
}

type LinkRequest struct {
	ParentPath    string `json:"parent_path"`
	Name          string `json:"name"`
	TargetPath    string `json:"target_path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type LinkResponse struct {
	Node *types.Node `json:"node"`
}

type LockRequest struct {
	Path          string         `json:"path"`
	TransactionID ids.ID         `json:"transaction_id"`
	Mode          types.LockMode `json:"mode"`
	Key           types.LockKey  `json:"key"`
	Waitable      bool           `json:"waitable"`
}

type LockResponse struct {
	Lock   *types.Lock `json:"lock"`
	LockID ids.ID      `json:"lock_id"`
}

type UnlockRequest struct {
	LockID        string `json:"lock_id"`
	TransactionID ids.ID `json:"transaction_id"`
}

type UnlockResponse struct{}

type StartTransactionRequest struct {
	ParentID                   ids.ID        `json:"parent_id"`
	Title                      string        `json:"title"`
	AuthenticatedUser          string        `json:"authenticated_user"`
	TimeoutSeconds             int64         `json:"timeout_seconds"`
	PrerequisiteTransactionIDs []ids.ID      `json:"prerequisite_transaction_ids"`
	ReplicateTo                []ids.CellTag `json:"replicate_to"`
}

type StartTransactionResponse struct {
	Transaction *types.Transaction `json:"transaction"`
}

type TransactionIDRequest struct {
	ID ids.ID `json:"id"`
}

type TransactionResponse struct{}

type CommitTransactionRequest struct {
	ID              ids.ID `json:"id"`
	CommitTimestamp uint64 `json:"commit_timestamp"`
}

type SubmitOperationRequest struct {
	Operation *types.Operation `json:"operation"`
}

type SubmitOperationResponse struct {
	Operation *types.Operation `json:"operation"`
}

type OperationIDRequest struct {
	ID ids.ID `json:"id"`
}

type OperationResponse struct{}

type GetOperationRequest struct {
	ID ids.ID `json:"id"`
}

type GetOperationResponse struct {
	Operation *types.Operation `json:"operation"`
}

type ListOperationsRequest struct{}

type ListOperationsResponse struct {
	Operations []*types.Operation `json:"operations"`
}

type GenerateJoinTokenRequest struct {
	Role string `json:"role"`
}

type GenerateJoinTokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

type JoinClusterRequest struct {
	NodeID   string `json:"node_id"`
	BindAddr string `json:"bind_addr"`
	Token    string `json:"token"`
}

type JoinClusterResponse struct {
	Status     string `json:"status"`
	LeaderAddr string `json:"leader_addr"`
}

type GetClusterInfoRequest struct{}

type ClusterServer struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Suffrage string `json:"suffrage"`
}

type GetClusterInfoResponse struct {
	LeaderAddr string          `json:"leader_addr"`
	Servers    []ClusterServer `json:"servers"`
}

type RequestCertificateRequest struct {
	NodeID string `json:"node_id"`
	Token  string `json:"token"`
}

type RequestCertificateResponse struct {
	Certificate []byte `json:"certificate"`
	PrivateKey  []byte `json:"private_key"`
	CACert      []byte `json:"ca_cert"`
}
