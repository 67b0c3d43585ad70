package dwn

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DuplicateRoleMarker is the detail substring a node emits when a role
// record already exists for a recipient under the same protocol path.
const DuplicateRoleMarker = "ProtocolAuthorizationDuplicateRoleRecipient"

// rolePaths are protocol paths whose records behave as role grants: at most
// one per (protocol, path, recipient).
var rolePaths = map[string]bool{"issuer": true, "judge": true}

// MemoryNode is an in-process DWN node. It backs tests and local runs; the
// status codes mirror a real node (202 for writes, 200 for queries).
type MemoryNode struct {
	mu        sync.RWMutex
	protocols map[string]ProtocolDefinition
	records   map[string]*Record
	order     []string
}

// NewMemoryNode constructs an empty in-memory node.
func NewMemoryNode() *MemoryNode {
	return &MemoryNode{
		protocols: make(map[string]ProtocolDefinition),
		records:   make(map[string]*Record),
	}
}

func (n *MemoryNode) ConfigureProtocol(_ context.Context, def ProtocolDefinition) (Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.protocols[def.Protocol] = def
	return Status{Code: 202}, nil
}

func (n *MemoryNode) SendProtocol(_ context.Context, protocol string, _ string) (Status, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if _, ok := n.protocols[protocol]; !ok {
		return Status{Code: 400, Detail: "protocol not configured: " + protocol}, nil
	}
	return Status{Code: 202}, nil
}

func (n *MemoryNode) CreateRecord(_ context.Context, req CreateRecordRequest) (*Record, Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if rolePaths[req.ProtocolPath] {
		for _, existing := range n.records {
			if existing.Protocol == req.Protocol &&
				existing.ProtocolPath == req.ProtocolPath &&
				existing.Recipient == req.Recipient {
				return nil, Status{Code: 400, Detail: DuplicateRoleMarker + ": " + req.Recipient}, nil
			}
		}
	}

	record := &Record{
		ID:           uuid.NewString(),
		Data:         append([]byte(nil), req.Data...),
		DataFormat:   req.DataFormat,
		Protocol:     req.Protocol,
		ProtocolPath: req.ProtocolPath,
		Schema:       req.Schema,
		Recipient:    req.Recipient,
	}
	n.records[record.ID] = record
	n.order = append(n.order, record.ID)
	return record, Status{Code: 202}, nil
}

func (n *MemoryNode) SendRecord(_ context.Context, recordID string, _ string) (Status, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if _, ok := n.records[recordID]; !ok {
		return Status{Code: 400, Detail: "unknown record: " + recordID}, nil
	}
	return Status{Code: 202}, nil
}

func (n *MemoryNode) QueryRecords(_ context.Context, from string, filter RecordFilter) ([]*Record, Status, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var matched []*Record
	for _, id := range n.order {
		record := n.records[id]
		if record.Recipient != from {
			continue
		}
		if !matches(record, filter) {
			continue
		}
		copyRecord := *record
		copyRecord.Data = append([]byte(nil), record.Data...)
		matched = append(matched, &copyRecord)
	}
	return matched, Status{Code: 200}, nil
}

func matches(r *Record, f RecordFilter) bool {
	if f.DataFormat != "" && !strings.EqualFold(r.DataFormat, f.DataFormat) {
		return false
	}
	if f.Protocol != "" && r.Protocol != f.Protocol {
		return false
	}
	if f.ProtocolPath != "" && r.ProtocolPath != f.ProtocolPath {
		return false
	}
	if f.Schema != "" && r.Schema != f.Schema {
		return false
	}
	return true
}

var _ Client = (*MemoryNode)(nil)
