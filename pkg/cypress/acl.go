package cypress

import (
	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// CheckPermission walks node's ACD, then its ancestors' descendant-scoped
// ACEs while ACD.Inherit is set, applying deny-overrides-allow at each
// level (spec §4.1). The walk stops at the first node whose ACD does not
// inherit, or at the root.
func (t *Tree) CheckPermission(node *types.Node, subject string, permission types.Permission, txnID ids.ID) error {
	cur := node
	self := true
	for {
		verdict, decided := evaluate(cur.ACD, subject, permission, self)
		if decided {
			if !verdict {
				return cellarerr.Authorization(subject, string(permission), node.ID.String())
			}
			return nil
		}
		if !cur.ACD.Inherit || cur.Parent.IsZero() {
			break
		}
		parent, err := t.readNode(cur.Parent, txnID)
		if err != nil {
			return err
		}
		cur = parent
		self = false
	}
	return cellarerr.Authorization(subject, string(permission), node.ID.String())
}

// evaluate checks acd's entries for a matching subject/permission,
// returning (allow, true) on the first matching deny or allow entry in
// deny-overrides-allow order, or (false, false) if nothing matched.
func evaluate(acd types.AccessControlDescriptor, subject string, permission types.Permission, self bool) (bool, bool) {
	matchedAllow := false
	for _, ace := range acd.Entries {
		if !scopeApplies(ace.InheritanceMode, self) {
			continue
		}
		if !containsSubject(ace.Subjects, subject) {
			continue
		}
		if !containsPermission(ace.Permissions, permission) {
			continue
		}
		if !ace.Allow {
			return false, true // deny wins immediately
		}
		matchedAllow = true
	}
	if matchedAllow {
		return true, true
	}
	return false, false
}

func scopeApplies(mode types.InheritanceMode, self bool) bool {
	switch mode {
	case types.InheritanceThis:
		return self
	case types.InheritanceDescendants:
		return true
	case types.InheritanceParent:
		return !self
	default:
		return self
	}
}

func containsSubject(subjects []string, subject string) bool {
	for _, s := range subjects {
		if s == subject || s == "everyone" {
			return true
		}
	}
	return false
}

func containsPermission(perms []types.Permission, permission types.Permission) bool {
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
