package cypress

import (
	"fmt"
	"strings"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// readNode returns the node the given id resolves to from the point of
// view of txnID: its branch if txnID (or one of its ancestor transactions)
// has created one, else the trunk node. A zero txnID always reads trunk.
func (t *Tree) readNode(id, txnID ids.ID) (*types.Node, error) {
	if !txnID.IsZero() {
		if branch, err := t.store.GetBranch(id, txnID); err == nil {
			return branch, nil
		}
		if txn, err := t.store.GetTransaction(txnID); err == nil && !txn.ParentID.IsZero() {
			return t.readNode(id, txn.ParentID)
		}
	}
	return t.store.GetNode(id)
}

// Resolve walks path from the tree root and returns the node it names, as
// seen from transaction txnID (zero for a trunk-only read). Link nodes are
// followed transparently unless the final token, in which case the link
// node itself is returned (matching node_proxy_detail.cpp's "the last
// token of a path is never auto-followed through a link" rule). A token
// suffixed with "&" (the link-bypass escape, spec §4.1 "Resolution")
// addresses that segment's node directly instead of following it, even
// mid-path -- the same rule the final token already gets implicitly.
func (t *Tree) Resolve(path string, txnID ids.ID) (*types.Node, error) {
	nodePath, _ := splitAttribute(path)
	rootID, err := t.Root()
	if err != nil {
		return nil, err
	}
	cur, err := t.readNode(rootID, txnID)
	if err != nil {
		return nil, cellarerr.Resolve(path, err)
	}
	tokens := splitPath(nodePath)
	bypassLink := false
	for i, tok := range tokens {
		last := i == len(tokens)-1
		if cur.Kind == types.NodeKindLink && !last && !bypassLink {
			next, err := t.followLink(cur, txnID)
			if err != nil {
				return nil, cellarerr.Resolve(path, err)
			}
			cur = next
		}
		bypassLink = false
		if tok != "&" && strings.HasSuffix(tok, "&") {
			tok = strings.TrimSuffix(tok, "&")
			bypassLink = true
		}
		child, err := t.descend(cur, tok)
		if err != nil {
			return nil, cellarerr.Resolve(path, err)
		}
		cur, err = t.readNode(child, txnID)
		if err != nil {
			return nil, cellarerr.Resolve(path, err)
		}
	}
	return cur, nil
}

func (t *Tree) followLink(node *types.Node, txnID ids.ID) (*types.Node, error) {
	target, err := ids.Parse(node.LinkTarget)
	if err != nil {
		return nil, fmt.Errorf("cypress: malformed link target %q: %w", node.LinkTarget, err)
	}
	return t.readNode(target, txnID)
}

func (t *Tree) descend(cur *types.Node, token string) (ids.ID, error) {
	switch cur.Kind {
	case types.NodeKindMap:
		child, ok := cur.Children[token]
		if !ok {
			return ids.Nil, fmt.Errorf("no child %q", token)
		}
		return child, nil
	case types.NodeKindList:
		idx, err := listIndex(token, len(cur.Items))
		if err != nil {
			return ids.Nil, err
		}
		return cur.Items[idx], nil
	default:
		return ids.Nil, fmt.Errorf("cannot descend into a %s node", cur.Kind)
	}
}

// listIndex parses a list-node path token ("0", "5", or the trailing
// "end"/"before:N"/"after:N" forms used by Set when inserting).
func listIndex(token string, length int) (int, error) {
	var idx int
	if token == "end" {
		return length, nil
	}
	if _, err := fmt.Sscanf(token, "%d", &idx); err != nil {
		return 0, fmt.Errorf("invalid list index %q", token)
	}
	if idx < 0 || idx > length {
		return 0, fmt.Errorf("list index %d out of range [0,%d]", idx, length)
	}
	return idx, nil
}

// ResolveParent resolves path's parent node and returns it along with the
// final path token (the child name/index the caller is about to act on).
func (t *Tree) ResolveParent(path string, txnID ids.ID) (parent *types.Node, token string, err error) {
	nodePath, _ := splitAttribute(path)
	tokens := splitPath(nodePath)
	if len(tokens) == 0 {
		return nil, "", cellarerr.TransactionState("path %q has no parent", path)
	}
	parentPath := "/" + joinPath(tokens[:len(tokens)-1])
	parent, err = t.Resolve(parentPath, txnID)
	if err != nil {
		return nil, "", err
	}
	last := tokens[len(tokens)-1]
	if last != "&" && strings.HasSuffix(last, "&") {
		last = strings.TrimSuffix(last, "&")
	}
	return parent, last, nil
}

func joinPath(tokens []string) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += "/"
		}
		out += tok
	}
	return out
}
