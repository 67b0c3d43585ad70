// Package dwn defines the contract with the Decentralized Web Node record
// store. The node is an external collaborator: every call returns both a
// transport error (could not reach the node) and a Status carrying the
// node's own verdict. 2xx statuses signal success; anything else is a
// rejection with a detail string.
package dwn

import "context"

//go:generate mockgen -source=dwn.go -destination=mocks/mocks.go -package=mocks Client

// Status is the node's verdict on an operation.
type Status struct {
	Code   int
	Detail string
}

// Success reports whether the status is in the 2xx family.
func (s Status) Success() bool {
	return s.Code >= 200 && s.Code < 300
}

// ProtocolType describes one record type under a protocol definition.
type ProtocolType struct {
	Schema      string   `json:"schema,omitempty"`
	DataFormats []string `json:"dataFormats,omitempty"`
}

// ProtocolDefinition is a DWN protocol installation payload.
type ProtocolDefinition struct {
	Protocol  string                  `json:"protocol"`
	Published bool                    `json:"published"`
	Types     map[string]ProtocolType `json:"types"`
}

// Record is a stored DWN record.
type Record struct {
	ID           string
	Data         []byte
	DataFormat   string
	Protocol     string
	ProtocolPath string
	Schema       string
	Recipient    string
}

// CreateRecordRequest carries everything needed to write a record.
type CreateRecordRequest struct {
	Data         []byte
	DataFormat   string
	Protocol     string
	ProtocolPath string
	ProtocolRole string
	Schema       string
	Recipient    string
}

// RecordFilter selects records by the protocol/schema/dataFormat triple.
type RecordFilter struct {
	DataFormat   string
	Protocol     string
	ProtocolPath string
	Schema       string
}

// Client is the DWN store boundary.
//
// Error contract: the error return signals a transport failure (network, DID
// resolution); when it is nil the Status still has to be checked. Callers
// must not treat a non-success Status as a Go error here — the policy for
// which rejections are tolerable (duplicate protocol install, duplicate role
// grant) belongs to the issuance gateway.
type Client interface {
	// ConfigureProtocol installs a protocol definition on the connected node.
	ConfigureProtocol(ctx context.Context, def ProtocolDefinition) (Status, error)

	// SendProtocol propagates an installed protocol to the target DID's node.
	SendProtocol(ctx context.Context, protocol string, target string) (Status, error)

	// CreateRecord writes a record on the connected node.
	CreateRecord(ctx context.Context, req CreateRecordRequest) (*Record, Status, error)

	// SendRecord delivers a previously created record to the target DID's node.
	SendRecord(ctx context.Context, recordID string, target string) (Status, error)

	// QueryRecords reads records addressed to from's node matching the filter.
	QueryRecords(ctx context.Context, from string, filter RecordFilter) ([]*Record, Status, error)
}
