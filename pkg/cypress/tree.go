package cypress

import (
	"strings"
	"time"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/security"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
)

// Tree resolves paths, evaluates locks and ACLs, and applies the
// inheritable-attribute walk over a cell's node table. It holds no tree
// state itself -- every call reads storage.Store fresh instead of caching
// cluster state in memory.
type Tree struct {
	store   storage.Store
	locks   *LockManager
	cell    ids.CellTag
	logger  zerolog.Logger
	secrets *security.SecretsManager
}

// NewTree builds a Tree backed by store, scoped to the given native cell.
func NewTree(store storage.Store, cell ids.CellTag, logger zerolog.Logger) *Tree {
	return &Tree{
		store:  store,
		locks:  newLockManager(store),
		cell:   cell,
		logger: logger.With().Str("component", "cypress").Logger(),
	}
}

// SetSecretsManager attaches the cell's secret-node encryption manager, so
// Set and Resolve can transparently encrypt/decrypt NodeKindSecret values.
// A Tree with no secrets manager attached stores Secret node values as
// given, for callers (tests, tools) that don't need at-rest encryption.
func (t *Tree) SetSecretsManager(sm *security.SecretsManager) {
	t.secrets = sm
}

// Root returns the id of the cell's root map node, creating it on first
// use. The root has no parent and is never locked.
func (t *Tree) Root() (ids.ID, error) {
	nodes, err := t.store.ListNodes()
	if err != nil {
		return ids.Nil, err
	}
	for _, n := range nodes {
		if n.Parent.IsZero() && !n.IsBranch() && n.Kind == types.NodeKindMap && n.Annotation == "root" {
			return n.ID, nil
		}
	}
	id := ids.MustNew(t.cell, ids.KindNode)
	root := &types.Node{
		ID:               id,
		Kind:             types.NodeKindMap,
		Children:         map[string]ids.ID{},
		CreationTime:     now(),
		ModificationTime: now(),
		Annotation:       "root",
		ACD:              types.AccessControlDescriptor{Inherit: true},
	}
	if err := t.store.CreateNode(root); err != nil {
		return ids.Nil, err
	}
	return id, nil
}

func now() time.Time { return time.Now().UTC() }

// splitPath tokenizes a Cypress path into its child-name/list-index/link
// segments, stripping the leading "//<root>" or "/" the way
// node_proxy_detail.cpp's resolver does before descent. Escaped slashes
// ("\/") are rejoined into a single token.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "//")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	raw := strings.Split(path, "/")
	tokens := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		for strings.HasSuffix(tok, `\`) && i+1 < len(raw) {
			i++
			tok = tok[:len(tok)-1] + "/" + raw[i]
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// splitAttribute splits a path's trailing "@attr" pseudo-segment, if any,
// returning the node path and the attribute name (empty if none).
func splitAttribute(path string) (nodePath, attr string) {
	idx := strings.LastIndex(path, "/@")
	if idx < 0 {
		if strings.HasPrefix(path, "@") {
			return "", path[1:]
		}
		return path, ""
	}
	return path[:idx], path[idx+2:]
}

func (t *Tree) errNotFound(path string) error {
	return cellarerr.Resolve(path, nil)
}
