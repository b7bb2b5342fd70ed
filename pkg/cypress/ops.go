package cypress

import (
	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// Get resolves path and returns its node as seen from txn (zero transaction
// id for a trunk read). A Secret-kind node's Value is decrypted in the
// returned copy; the stored node and any cached branch are left encrypted.
func (t *Tree) Get(path string, txnID ids.ID) (*types.Node, error) {
	node, err := t.Resolve(path, txnID)
	if err != nil {
		return nil, err
	}
	if node.Kind == types.NodeKindSecret && t.secrets != nil && len(node.Value) > 0 {
		plaintext, err := t.secrets.DecryptSecretNodeValue(node)
		if err != nil {
			return nil, err
		}
		decrypted := *node
		decrypted.Value = plaintext
		return &decrypted, nil
	}
	return node, nil
}

// Exists reports whether path resolves to a node, swallowing resolve
// errors into a false rather than propagating them (spec §6 "exists").
func (t *Tree) Exists(path string, txnID ids.ID) bool {
	_, err := t.Resolve(path, txnID)
	return err == nil
}

// List returns the named children of a map node, or the indices of a list
// node, in the order Set would enumerate them.
func (t *Tree) List(path string, txnID ids.ID) ([]string, error) {
	node, err := t.Resolve(path, txnID)
	if err != nil {
		return nil, err
	}
	switch node.Kind {
	case types.NodeKindMap:
		names := make([]string, 0, len(node.Children))
		for name := range node.Children {
			names = append(names, name)
		}
		return names, nil
	case types.NodeKindList:
		names := make([]string, len(node.Items))
		for i := range node.Items {
			names[i] = itoa(i)
		}
		return names, nil
	default:
		return nil, cellarerr.TransactionState("%q is not a container node", path)
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Create makes a new node of kind under parentPath/name, inside txn. The
// parent must already be branched (its write path locked) by the caller
// via Lock before Create is applied, matching the two-step
// lock-then-mutate flow the driver exposes at spec §6.
func (t *Tree) Create(parentPath, name string, kind types.NodeKind, txn *types.Transaction, force bool) (*types.Node, error) {
	parent, err := t.Resolve(parentPath, txn.ID)
	if err != nil {
		return nil, err
	}
	if parent.Kind != types.NodeKindMap {
		return nil, cellarerr.TransactionState("%q is not a map node", parentPath)
	}
	if _, exists := parent.Children[name]; exists && !force {
		return nil, cellarerr.AlreadyExists(parentPath + "/" + name)
	}

	id := ids.MustNew(t.cell, ids.KindNode)
	child := &types.Node{
		ID:               id,
		TransactionID:    txn.ID,
		Parent:           parent.ID,
		Kind:             kind,
		CreationTime:     now(),
		ModificationTime: now(),
		ACD:              types.AccessControlDescriptor{Inherit: true},
	}
	if kind.IsContainer() {
		child.Children = map[string]ids.ID{}
	}
	if err := t.store.CreateNode(child); err != nil {
		return nil, err
	}

	branchParent, err := t.branch(parent, txn)
	if err != nil {
		return nil, err
	}
	if branchParent.Children == nil {
		branchParent.Children = map[string]ids.ID{}
	}
	branchParent.Children[name] = id
	branchParent.ModificationTime = now()
	if err := t.store.UpdateNode(branchParent); err != nil {
		return nil, err
	}
	return child, nil
}

// Remove deletes the node at path inside txn. The parent must be branched
// under txn first (see Create).
func (t *Tree) Remove(path string, txn *types.Transaction) error {
	parent, token, err := t.ResolveParent(path, txn.ID)
	if err != nil {
		return err
	}
	if parent.Kind != types.NodeKindMap {
		return cellarerr.TransactionState("%q has no removable children", path)
	}
	childID, ok := parent.Children[token]
	if !ok {
		return t.errNotFound(path)
	}
	branchParent, err := t.branch(parent, txn)
	if err != nil {
		return err
	}
	delete(branchParent.Children, token)
	branchParent.ModificationTime = now()
	if err := t.store.UpdateNode(branchParent); err != nil {
		return err
	}
	_ = childID
	return nil
}

// Set overwrites the scalar payload of path's node inside txn. A
// Secret-kind node's value is encrypted before it reaches storage when a
// secrets manager is attached (see SetSecretsManager).
func (t *Tree) Set(path string, value []byte, txn *types.Transaction) error {
	node, err := t.Resolve(path, txn.ID)
	if err != nil {
		return err
	}
	branch, err := t.branch(node, txn)
	if err != nil {
		return err
	}
	if branch.Kind == types.NodeKindSecret && t.secrets != nil && len(value) > 0 {
		if err := t.secrets.EncryptSecretNodeValue(branch, value); err != nil {
			return err
		}
	} else {
		branch.Value = value
	}
	branch.ModificationTime = now()
	branch.ContentRevision++
	return t.store.UpdateNode(branch)
}

// Link creates a link node at parentPath/name pointing at targetPath.
func (t *Tree) Link(parentPath, name, targetPath string, txn *types.Transaction) (*types.Node, error) {
	target, err := t.Resolve(targetPath, txn.ID)
	if err != nil {
		return nil, err
	}
	link, err := t.Create(parentPath, name, types.NodeKindLink, txn, false)
	if err != nil {
		return nil, err
	}
	branch, err := t.branch(link, txn)
	if err != nil {
		return nil, err
	}
	branch.LinkTarget = target.ID.String()
	return branch, t.store.UpdateNode(branch)
}

// Copy duplicates the subtree at srcPath to dstParentPath/name inside txn.
// Opaque subtrees (spec §4.1 "Opaque subtrees") are copied as a single
// boundary: their own children are copied, but a copy never reaches past
// an opaque node's own ACD/annotation into its semantics.
func (t *Tree) Copy(srcPath, dstParentPath, name string, txn *types.Transaction, force bool) (*types.Node, error) {
	src, err := t.Resolve(srcPath, txn.ID)
	if err != nil {
		return nil, err
	}
	dst, err := t.Create(dstParentPath, name, src.Kind, txn, force)
	if err != nil {
		return nil, err
	}
	branch, err := t.branch(dst, txn)
	if err != nil {
		return nil, err
	}
	branch.Value = append([]byte(nil), src.Value...)
	branch.ACD = src.ACD
	branch.Inheritable = src.Inheritable
	branch.Opaque = src.Opaque
	branch.Annotation = src.Annotation
	if err := t.store.UpdateNode(branch); err != nil {
		return nil, err
	}
	if src.Kind == types.NodeKindMap {
		for childName, childID := range src.Children {
			childPath := srcPath + "/" + childName
			if _, err := t.Copy(childPath, dstParentPath+"/"+name, childName, txn, false); err != nil {
				return nil, err
			}
			_ = childID
		}
	}
	return branch, nil
}

// Move is Copy followed by Remove of the source, matching the original's
// move-as-copy-then-unlink semantics when no in-place rename fast path
// applies (same parent, same kind).
func (t *Tree) Move(srcPath, dstParentPath, name string, txn *types.Transaction, force bool) (*types.Node, error) {
	dst, err := t.Copy(srcPath, dstParentPath, name, txn, force)
	if err != nil {
		return nil, err
	}
	if err := t.Remove(srcPath, txn); err != nil {
		return nil, err
	}
	return dst, nil
}
