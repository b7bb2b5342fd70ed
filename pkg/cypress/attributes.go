package cypress

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// virtualAttributes are computed on every read rather than stored on the
// node, ported from node_proxy_detail.cpp's custom-attribute dispatch
// table (spec §4.1 expansion "@type / @id pseudo-attributes").
var virtualAttributes = map[string]func(path string, node *nodeView) []byte{
	"type": func(_ string, node *nodeView) []byte { return []byte(node.kind) },
	"id":   func(_ string, node *nodeView) []byte { return []byte(node.id) },
	"path": func(path string, _ *nodeView) []byte { return []byte(path) },
}

// nodeView is the minimal projection GetAttribute needs to answer a
// virtual attribute.
type nodeView struct {
	kind string
	id   string
}

// GetAttribute resolves path (which may carry a trailing "@attr" segment,
// or be a bare "@attr" applied to the root) and returns the named
// attribute's raw value: one of the always-present virtual attributes
// (type, id, path) if attr matches one, else the node's stored
// UserAttributes entry.
func (t *Tree) GetAttribute(path string, txnID ids.ID) ([]byte, error) {
	nodePath, attr := splitAttribute(path)
	if attr == "" {
		return nil, fmt.Errorf("cypress: %q does not name an attribute", path)
	}
	if nodePath == "" {
		nodePath = "/"
	}
	node, err := t.Resolve(nodePath, txnID)
	if err != nil {
		return nil, err
	}
	if fn, ok := virtualAttributes[attr]; ok {
		return fn(nodePath, &nodeView{kind: string(node.Kind), id: node.ID.String()}), nil
	}
	if val, ok := node.UserAttributes[attr]; ok {
		return val, nil
	}
	return nil, cellarerr.Resolve(path, fmt.Errorf("no such attribute %q", attr))
}

// inheritableAttrNames are the inheritable-attribute keys spec §4.1 lists
// for the node creation factory; SetAttribute/RemoveAttribute write these
// onto node.Inheritable directly rather than into UserAttributes.
var inheritableAttrNames = map[string]bool{
	"compression_codec":  true,
	"erasure_codec":      true,
	"primary_medium":     true,
	"media":              true,
	"replication_factor": true,
	"vital":              true,
	"tablet_cell_bundle": true,
	"atomicity":          true,
	"commit_ordering":    true,
	"in_memory_mode":     true,
	"optimize_for":       true,
}

// virtualAttributeNames can be read via GetAttribute but never written;
// SetAttribute/RemoveAttribute reject them outright.
var virtualAttributeNames = map[string]bool{"type": true, "id": true, "path": true}

// SetAttribute writes attr on path's node inside txn: virtual attributes
// are read-only, the documented inheritable-attribute keys are parsed onto
// node.Inheritable (and cross-validated if they touch medium/replication),
// and anything else lands in UserAttributes (spec §4.1 "Attribute model").
// As with Create/Set, the caller must already hold shared(attribute=attr)
// on the node before calling.
func (t *Tree) SetAttribute(path string, value []byte, txn *types.Transaction) error {
	nodePath, attr := splitAttribute(path)
	if attr == "" {
		return fmt.Errorf("cypress: %q does not name an attribute", path)
	}
	if nodePath == "" {
		nodePath = "/"
	}
	if virtualAttributeNames[attr] {
		return cellarerr.TransactionState("attribute %q is read-only", attr)
	}
	node, err := t.Resolve(nodePath, txn.ID)
	if err != nil {
		return err
	}
	branch, err := t.branch(node, txn)
	if err != nil {
		return err
	}
	if inheritableAttrNames[attr] {
		if err := setInheritableAttribute(&branch.Inheritable, attr, value); err != nil {
			return err
		}
		branch.AttributesRevision++
		branch.ModificationTime = now()
		if err := t.store.UpdateNode(branch); err != nil {
			return err
		}
		if attr == "media" || attr == "primary_medium" || attr == "replication_factor" {
			return t.ValidateMediumReplication(branch.ID, txn.ID)
		}
		return nil
	}
	if branch.UserAttributes == nil {
		branch.UserAttributes = map[string][]byte{}
	}
	branch.UserAttributes[attr] = append([]byte(nil), value...)
	branch.AttributesRevision++
	branch.ModificationTime = now()
	return t.store.UpdateNode(branch)
}

// RemoveAttribute clears attr from path's node inside txn. Removing an
// inheritable attribute reverts the node to inheriting it from its nearest
// ancestor again; removing an absent user attribute is a no-op.
func (t *Tree) RemoveAttribute(path string, txn *types.Transaction) error {
	nodePath, attr := splitAttribute(path)
	if attr == "" {
		return fmt.Errorf("cypress: %q does not name an attribute", path)
	}
	if nodePath == "" {
		nodePath = "/"
	}
	if virtualAttributeNames[attr] {
		return cellarerr.TransactionState("attribute %q is not removable", attr)
	}
	node, err := t.Resolve(nodePath, txn.ID)
	if err != nil {
		return err
	}
	branch, err := t.branch(node, txn)
	if err != nil {
		return err
	}
	if inheritableAttrNames[attr] {
		clearInheritableAttribute(&branch.Inheritable, attr)
	} else {
		delete(branch.UserAttributes, attr)
	}
	branch.AttributesRevision++
	branch.ModificationTime = now()
	return t.store.UpdateNode(branch)
}

// setInheritableAttribute parses value (JSON-encoded, the same convention
// UserAttributes values use) onto the matching InheritableAttributes field.
func setInheritableAttribute(inh *types.InheritableAttributes, attr string, value []byte) error {
	switch attr {
	case "compression_codec":
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.CompressionCodec = &v
	case "erasure_codec":
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.ErasureCodec = &v
	case "primary_medium":
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if inh.Media != nil && inh.PrimaryMedium != nil {
			movePrimaryReplication(inh.Media, *inh.PrimaryMedium, v)
		}
		inh.PrimaryMedium = &v
	case "media":
		var v map[string]types.MediumDescriptor
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.Media = v
	case "replication_factor":
		var v int32
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.ReplicationFactor = &v
	case "vital":
		var v bool
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.Vital = &v
	case "tablet_cell_bundle":
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.TabletCellBundle = &v
	case "atomicity":
		var v types.Atomicity
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.Atomicity = &v
	case "commit_ordering":
		var v types.CommitOrdering
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.CommitOrdering = &v
	case "in_memory_mode":
		var v types.InMemoryMode
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.InMemoryMode = &v
	case "optimize_for":
		var v types.OptimizeFor
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		inh.OptimizeFor = &v
	default:
		return fmt.Errorf("cypress: unknown inheritable attribute %q", attr)
	}
	return nil
}

func clearInheritableAttribute(inh *types.InheritableAttributes, attr string) {
	switch attr {
	case "compression_codec":
		inh.CompressionCodec = nil
	case "erasure_codec":
		inh.ErasureCodec = nil
	case "primary_medium":
		inh.PrimaryMedium = nil
	case "media":
		inh.Media = nil
	case "replication_factor":
		inh.ReplicationFactor = nil
	case "vital":
		inh.Vital = nil
	case "tablet_cell_bundle":
		inh.TabletCellBundle = nil
	case "atomicity":
		inh.Atomicity = nil
	case "commit_ordering":
		inh.CommitOrdering = nil
	case "in_memory_mode":
		inh.InMemoryMode = nil
	case "optimize_for":
		inh.OptimizeFor = nil
	}
}

// Resolve* walks nodeID's Parent chain looking for the nearest ancestor
// (including nodeID itself) that sets the named InheritableAttributes
// field, falling back to a cluster default at the root (spec §4.1
// "Inheritable attributes"). Each wrapper repeats the same walk over a
// different field since InheritableAttributes has no common element type
// to walk generically over.
func (t *Tree) ResolveReplicationFactor(nodeID, txnID ids.ID) (int32, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return 0, err
	}
	for {
		if node.Inheritable.ReplicationFactor != nil {
			return *node.Inheritable.ReplicationFactor, nil
		}
		if node.Parent.IsZero() {
			return 3, nil // cluster default, mirrors the original's hard default
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return 0, err
		}
	}
}

func (t *Tree) ResolvePrimaryMedium(nodeID, txnID ids.ID) (string, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.PrimaryMedium != nil {
			return *node.Inheritable.PrimaryMedium, nil
		}
		if node.Parent.IsZero() {
			return "default", nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

func (t *Tree) ResolveVital(nodeID, txnID ids.ID) (bool, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return false, err
	}
	for {
		if node.Inheritable.Vital != nil {
			return *node.Inheritable.Vital, nil
		}
		if node.Parent.IsZero() {
			return true, nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return false, err
		}
	}
}

func (t *Tree) ResolveCompressionCodec(nodeID, txnID ids.ID) (string, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.CompressionCodec != nil {
			return *node.Inheritable.CompressionCodec, nil
		}
		if node.Parent.IsZero() {
			return "none", nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

func (t *Tree) ResolveErasureCodec(nodeID, txnID ids.ID) (string, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.ErasureCodec != nil {
			return *node.Inheritable.ErasureCodec, nil
		}
		if node.Parent.IsZero() {
			return "none", nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

// ResolveMedia returns node's effective "media" replication map, falling
// back to the nearest ancestor that sets it.
func (t *Tree) ResolveMedia(nodeID, txnID ids.ID) (map[string]types.MediumDescriptor, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return nil, err
	}
	for {
		if node.Inheritable.Media != nil {
			return node.Inheritable.Media, nil
		}
		if node.Parent.IsZero() {
			return map[string]types.MediumDescriptor{"default": {Replicas: 3}}, nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return nil, err
		}
	}
}

func (t *Tree) ResolveTabletCellBundle(nodeID, txnID ids.ID) (string, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.TabletCellBundle != nil {
			return *node.Inheritable.TabletCellBundle, nil
		}
		if node.Parent.IsZero() {
			return "default", nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

func (t *Tree) ResolveAtomicity(nodeID, txnID ids.ID) (types.Atomicity, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.Atomicity != nil {
			return *node.Inheritable.Atomicity, nil
		}
		if node.Parent.IsZero() {
			return types.AtomicityFull, nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

func (t *Tree) ResolveCommitOrdering(nodeID, txnID ids.ID) (types.CommitOrdering, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.CommitOrdering != nil {
			return *node.Inheritable.CommitOrdering, nil
		}
		if node.Parent.IsZero() {
			return types.CommitOrderingWeak, nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

func (t *Tree) ResolveInMemoryMode(nodeID, txnID ids.ID) (types.InMemoryMode, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.InMemoryMode != nil {
			return *node.Inheritable.InMemoryMode, nil
		}
		if node.Parent.IsZero() {
			return types.InMemoryModeNone, nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

func (t *Tree) ResolveOptimizeFor(nodeID, txnID ids.ID) (types.OptimizeFor, error) {
	node, err := t.readNode(nodeID, txnID)
	if err != nil {
		return "", err
	}
	for {
		if node.Inheritable.OptimizeFor != nil {
			return *node.Inheritable.OptimizeFor, nil
		}
		if node.Parent.IsZero() {
			return types.OptimizeForLookup, nil
		}
		node, err = t.readNode(node.Parent, txnID)
		if err != nil {
			return "", err
		}
	}
}

// ValidateMediumReplication cross-checks a node's effective primary_medium,
// media and replication_factor against each other (spec §4.1 "Medium/
// replication validation"): the primary medium must have non-zero
// replication in the media map, and replication_factor must match that
// entry's replica count.
func (t *Tree) ValidateMediumReplication(nodeID, txnID ids.ID) error {
	media, err := t.ResolveMedia(nodeID, txnID)
	if err != nil {
		return err
	}
	primary, err := t.ResolvePrimaryMedium(nodeID, txnID)
	if err != nil {
		return err
	}
	factor, err := t.ResolveReplicationFactor(nodeID, txnID)
	if err != nil {
		return err
	}
	desc, ok := media[primary]
	if !ok || desc.Replicas <= 0 {
		return cellarerr.TransactionState("primary medium %q has no non-zero replication in the media map", primary)
	}
	if desc.Replicas != factor {
		return cellarerr.TransactionState("replication_factor=%d does not match medium %q's replica count %d", factor, primary, desc.Replicas)
	}
	return nil
}

// movePrimaryReplication is called when primary_medium changes to a medium
// with zero replication in the current media map: it implicitly moves the
// old primary's replica count onto the new one, per spec §4.1 "changing
// primary to a zero-replication medium implicitly moves replication from
// the old primary."
func movePrimaryReplication(media map[string]types.MediumDescriptor, oldPrimary, newPrimary string) {
	if media == nil {
		return
	}
	newDesc := media[newPrimary]
	if newDesc.Replicas > 0 {
		return
	}
	oldDesc, ok := media[oldPrimary]
	if !ok {
		return
	}
	newDesc.Replicas = oldDesc.Replicas
	media[newPrimary] = newDesc
	oldDesc.Replicas = 0
	media[oldPrimary] = oldDesc
}
