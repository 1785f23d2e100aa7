package opc

import "context"

// NodeRef identifies one child node discovered while browsing.
type NodeRef struct {
	ID          string // server node id, e.g. "ns=1;s=G1_pressure"
	DisplayName string
}

// Client is the contract the rest of the program has with the OPC UA
// protocol layer. The production implementation (UAClient) wraps gopcua;
// tests substitute fakes.
type Client interface {
	// Connect establishes and negotiates the session. It must be safe
	// to call again after a failed or closed connection.
	Connect(ctx context.Context) error

	// ReadValue reads the current value of one node and returns it with
	// its engineering unit.
	ReadValue(ctx context.Context, nodeID string) (float64, string, error)

	// BrowseChildren returns the direct hierarchical children of a node.
	BrowseChildren(ctx context.Context, nodeID string) ([]NodeRef, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error
}
