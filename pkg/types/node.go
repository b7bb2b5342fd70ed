package types

import (
	"time"

	"github.com/cuemby/cellar/pkg/ids"
)

// NodeKind discriminates the tagged-union payload a Cypress node carries.
// Rewritten from the original's deep class hierarchy into a kind
// discriminant plus dispatch tables (spec §9 "Tagged unions over
// inheritance").
type NodeKind string

const (
	NodeKindMap      NodeKind = "map"
	NodeKindList     NodeKind = "list"
	NodeKindString   NodeKind = "string"
	NodeKindInt64    NodeKind = "int64"
	NodeKindUint64   NodeKind = "uint64"
	NodeKindDouble   NodeKind = "double"
	NodeKindBoolean  NodeKind = "boolean"
	NodeKindEntity   NodeKind = "entity"
	NodeKindDocument NodeKind = "document"
	NodeKindLink     NodeKind = "link"
	NodeKindFile     NodeKind = "file"
	NodeKindTable    NodeKind = "table"
	NodeKindJournal  NodeKind = "journal"
	NodeKindSecret   NodeKind = "secret"
)

// IsContainer reports whether a node kind holds children addressed by name
// or index, rather than a scalar payload.
func (k NodeKind) IsContainer() bool {
	switch k {
	case NodeKindMap, NodeKindList, NodeKindDocument:
		return true
	default:
		return false
	}
}

// LockMode is the acquisition mode of a Lock (spec §3 "Lock (C1)").
type LockMode string

const (
	LockModeSnapshot  LockMode = "snapshot"
	LockModeShared    LockMode = "shared"
	LockModeExclusive LockMode = "exclusive"
)

// LockState is the lifecycle state of a Lock.
type LockState string

const (
	LockStatePending  LockState = "pending"
	LockStateAcquired LockState = "acquired"
)

// LockKeyKind discriminates what a shared lock's key names.
type LockKeyKind string

const (
	LockKeyNone      LockKeyKind = ""
	LockKeyChild     LockKeyKind = "child"
	LockKeyAttribute LockKeyKind = "attribute"
)

// LockKey names the child or attribute a shared lock guards. The zero value
// (Kind == LockKeyNone) means the lock guards the whole node.
type LockKey struct {
	Kind LockKeyKind
	Name string
}

// Lock associates a node with a transaction under a given mode (spec §3).
type Lock struct {
	ID            string
	NodeID        ids.ID
	TransactionID ids.ID
	Mode          LockMode
	Key           LockKey
	State         LockState
	Waitable      bool
	// Timestamp is set for snapshot locks: the commit timestamp the lock's
	// reads are pinned to.
	Timestamp uint64
	CreatedAt time.Time
}

// InheritableAttributes are the attributes propagated down the tree from
// the nearest ancestor that sets them (spec §3, §4.1). A nil pointer field
// means "not set on this node" -- read falls through to the parent.
type InheritableAttributes struct {
	CompressionCodec  *string
	ErasureCodec      *string
	PrimaryMedium     *string
	Media             map[string]MediumDescriptor
	ReplicationFactor *int32
	Vital             *bool
	TabletCellBundle  *string
	Atomicity         *Atomicity
	CommitOrdering    *CommitOrdering
	InMemoryMode      *InMemoryMode
	OptimizeFor       *OptimizeFor
}

// MediumDescriptor is one entry of the inheritable "media" replication map.
type MediumDescriptor struct {
	Replicas          int32
	DataPartsOnly     bool
}

// Atomicity controls transaction write semantics for tablet-backed nodes.
type Atomicity string

const (
	AtomicityFull  Atomicity = "full"
	AtomicityNone  Atomicity = "none"
)

// CommitOrdering controls whether tablet writes commit in strict row order.
type CommitOrdering string

const (
	CommitOrderingWeak   CommitOrdering = "weak"
	CommitOrderingStrong CommitOrdering = "strong"
)

// InMemoryMode controls whether a tablet keeps its data resident in memory.
type InMemoryMode string

const (
	InMemoryModeNone      InMemoryMode = "none"
	InMemoryModeCompressed InMemoryMode = "compressed"
	InMemoryModeUncompressed InMemoryMode = "uncompressed"
)

// OptimizeFor hints the storage layout towards scan or lookup workloads.
type OptimizeFor string

const (
	OptimizeForLookup OptimizeFor = "lookup"
	OptimizeForScan   OptimizeFor = "scan"
)

// AccessControlEntry is one ACE of an AccessControlDescriptor.
type AccessControlEntry struct {
	Allow       bool
	Subjects    []string
	Permissions []Permission
	// InheritanceMode narrows whether this ACE applies to the node itself,
	// its immediate children, or the whole subtree (spec §4.1 scope flags).
	InheritanceMode InheritanceMode
}

// Permission is a single verb-level capability checked against an ACD.
type Permission string

const (
	PermissionRead        Permission = "read"
	PermissionWrite       Permission = "write"
	PermissionCreate      Permission = "create"
	PermissionRemove      Permission = "remove"
	PermissionAdminister  Permission = "administer"
	PermissionMount       Permission = "mount"
)

// InheritanceMode is the scope flag on an AccessControlEntry.
type InheritanceMode string

const (
	InheritanceThis         InheritanceMode = "this"
	InheritanceParent       InheritanceMode = "parent"
	InheritanceDescendants  InheritanceMode = "descendants"
)

// AccessControlDescriptor is the ACD carried by every node (spec §3, §4.1).
type AccessControlDescriptor struct {
	Inherit bool
	Entries []AccessControlEntry
}

// Node is the versioned vertex of the metadata tree (spec §3 "Node (C1)").
// A Node value may represent either a trunk node (TransactionID.IsZero())
// or a branch created under a transaction.
type Node struct {
	ID            ids.ID
	TransactionID ids.ID // zero for trunk nodes
	OriginatorID  ids.ID // the node this branch shadows; zero for trunk

	Kind   NodeKind
	Parent ids.ID

	// Payload holds the node's own content. For container kinds this is
	// nil and Children/Value carry the structure instead.
	Value    []byte // scalar payload: string/int64/uint64/double/boolean
	Children map[string]ids.ID // map-node children, keyed by name
	Items    []ids.ID          // list-node children, in order
	LinkTarget string          // for NodeKindLink

	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time
	AccessCounter    int64

	AttributesRevision int64
	ContentRevision    int64
	Revision           int64

	Account          string
	Opaque           bool
	Annotation       string
	ExpirationTime   *time.Time

	LockMode LockMode // coarse "what kind of lock, if any, currently pending/acquired on the trunk's write path" hint cache

	ACD AccessControlDescriptor

	Foreign        bool
	ExternalCellTag ids.CellTag

	Inheritable InheritableAttributes

	// UserAttributes is the free key -> JSON-value map (spec §4.1 "User
	// attributes").
	UserAttributes map[string][]byte
}

// IsBranch reports whether this Node value is a transaction-local branch.
func (n *Node) IsBranch() bool {
	return !n.TransactionID.IsZero()
}
