package opc

import (
	"context"
	"fmt"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"go.uber.org/zap"
)

// ObjectsFolder is the standard root under which servers expose their
// addressable data points. Browsing starts here unless told otherwise.
const ObjectsFolder = "i=85"

// UAClient implements Client on top of gopcua. One UAClient maps to one
// endpoint; Connect/Close may be cycled as often as needed.
type UAClient struct {
	endpoint string
	unit     string // engineering unit reported with every reading
	timeout  time.Duration
	log      *zap.Logger

	c *opcua.Client
}

// NewUAClient builds a client for the given endpoint URL, e.g.
// "opc.tcp://10.0.5.76:4840". A malformed endpoint is a fatal error.
// The unit string is attached to every value read; the vacuum
// controllers this was written for do not expose the EngineeringUnits
// property, so the unit comes from configuration.
func NewUAClient(endpoint, unit string, timeout time.Duration, log *zap.Logger) (*UAClient, error) {
	c, err := opcua.NewClient(endpoint,
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.AutoReconnect(false),
	)
	if err != nil {
		return nil, classified("connect", Fatal, fmt.Errorf("endpoint %q: %w", endpoint, err))
	}
	return &UAClient{
		endpoint: endpoint,
		unit:     unit,
		timeout:  timeout,
		log:      log,
		c:        c,
	}, nil
}

// Connect negotiates a secure channel and session with the server.
func (u *UAClient) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if err := u.c.Connect(ctx); err != nil {
		return classified("connect", Classify(err), fmt.Errorf("connect %s: %w", u.endpoint, err))
	}
	u.log.Info("connected to OPC UA server", zap.String("endpoint", u.endpoint))
	return nil
}

// ReadValue reads the Value attribute of one node and coerces it to
// float64. Non-numeric nodes are a fatal misconfiguration.
func (u *UAClient) ReadValue(ctx context.Context, nodeID string) (float64, string, error) {
	nid, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return 0, "", classified("read", Fatal, fmt.Errorf("node id %q: %w", nodeID, err))
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req := &ua.ReadRequest{
		MaxAge: 0,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: nid, AttributeID: ua.AttributeIDValue},
		},
		TimestampsToReturn: ua.TimestampsToReturnSource,
	}
	resp, err := u.c.Read(ctx, req)
	if err != nil {
		return 0, "", classified("read", Classify(err), fmt.Errorf("read %s: %w", nodeID, err))
	}
	if len(resp.Results) == 0 {
		return 0, "", classified("read", Transient, fmt.Errorf("read %s: empty result set", nodeID))
	}
	result := resp.Results[0]
	if result.Status != ua.StatusOK {
		return 0, "", classified("read", Classify(result.Status), fmt.Errorf("read %s: %w", nodeID, result.Status))
	}

	v, err := toFloat64(result.Value.Value())
	if err != nil {
		return 0, "", classified("read", Fatal, fmt.Errorf("read %s: %w", nodeID, err))
	}
	return v, u.unit, nil
}

// BrowseChildren lists the direct hierarchical children of a node.
func (u *UAClient) BrowseChildren(ctx context.Context, nodeID string) ([]NodeRef, error) {
	nid, err := ua.ParseNodeID(nodeID)
	if err != nil {
		return nil, classified("browse", Fatal, fmt.Errorf("node id %q: %w", nodeID, err))
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	node := u.c.Node(nid)
	children, err := node.Children(ctx, id.HierarchicalReferences, ua.NodeClassAll)
	if err != nil {
		return nil, classified("browse", Classify(err), fmt.Errorf("browse %s: %w", nodeID, err))
	}

	refs := make([]NodeRef, 0, len(children))
	for _, child := range children {
		ref := NodeRef{ID: child.ID.String()}
		if dn, err := child.DisplayName(ctx); err == nil && dn != nil {
			ref.DisplayName = dn.Text
		}
		if ref.DisplayName == "" {
			// Some servers leave DisplayName empty; the browse name
			// is the next best label.
			if bn, err := child.BrowseName(ctx); err == nil && bn != nil {
				ref.DisplayName = bn.Name
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Close tears down the session and channel. Errors from closing an
// already-dead connection are not interesting to callers.
func (u *UAClient) Close() error {
	if err := u.c.Close(context.Background()); err != nil {
		u.log.Debug("close returned error", zap.Error(err))
	}
	u.log.Info("disconnected from OPC UA server", zap.String("endpoint", u.endpoint))
	return nil
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case byte:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
