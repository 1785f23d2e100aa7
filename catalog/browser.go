package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ualogger/opc"
)

// ErrDepthExceeded is returned when a browse runs past the configured
// maximum depth. Servers with cyclic hierarchical references would
// otherwise keep a naive traversal busy forever.
var ErrDepthExceeded = errors.New("catalog: max browse depth exceeded")

// Node is one node of the server's address space as seen during a
// single browse. Trees are built transiently for display and thrown
// away afterwards.
type Node struct {
	ID          string
	DisplayName string
	Children    []*Node
}

// Entry is one row of the flattened catalog listing, the externally
// consumed result of a browse.
type Entry struct {
	ID          string
	DisplayName string
	Path        string // slash-joined display names from the root
	Depth       int
}

// Browser walks the server's node hierarchy depth-first and flattens
// it into a listing an operator can search for the right data point.
type Browser struct {
	maxDepth int
	log      *zap.Logger
}

// NewBrowser creates a browser bounded to maxDepth levels below the
// root.
func NewBrowser(maxDepth int, log *zap.Logger) *Browser {
	return &Browser{maxDepth: maxDepth, log: log}
}

// Browse traverses the hierarchy under rootID and returns the tree and
// its flattened listing. Traversal order is deterministic: children
// are visited sorted by display name, then id, so repeated browses of
// an unchanged server produce identical listings.
//
// On a mid-traversal failure Browse returns the entries collected so
// far together with the error, so a long browse that dies near the end
// does not lose all progress.
func (b *Browser) Browse(ctx context.Context, client opc.Client, rootID string) (*Node, []Entry, error) {
	rootName := rootID
	if rootID == "" {
		rootID = opc.ObjectsFolder
		rootName = "Objects"
	}
	root := &Node{ID: rootID, DisplayName: rootName}
	var entries []Entry

	err := b.walk(ctx, client, root, "", 0, &entries)
	if err != nil {
		return root, entries, err
	}
	b.log.Info("browse complete",
		zap.String("root", rootID), zap.Int("nodes", len(entries)))
	return root, entries, nil
}

func (b *Browser) walk(ctx context.Context, client opc.Client, n *Node, parentPath string, depth int, entries *[]Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("catalog: browse cancelled: %w", err)
	}
	if depth > b.maxDepth {
		return fmt.Errorf("%w (max %d) at %s", ErrDepthExceeded, b.maxDepth, n.ID)
	}

	path := n.DisplayName
	if parentPath != "" {
		path = parentPath + "/" + n.DisplayName
	}
	if depth > 0 {
		*entries = append(*entries, Entry{
			ID:          n.ID,
			DisplayName: n.DisplayName,
			Path:        path,
			Depth:       depth,
		})
	}

	refs, err := client.BrowseChildren(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("catalog: browse %s: %w", n.ID, err)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].DisplayName != refs[j].DisplayName {
			return refs[i].DisplayName < refs[j].DisplayName
		}
		return refs[i].ID < refs[j].ID
	})

	for _, ref := range refs {
		child := &Node{ID: ref.ID, DisplayName: ref.DisplayName}
		n.Children = append(n.Children, child)
		if err := b.walk(ctx, client, child, path, depth+1, entries); err != nil {
			return err
		}
	}
	return nil
}

// Render writes the listing in an indented, human-searchable form.
func Render(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(strings.Repeat("  ", e.Depth-1))
		fmt.Fprintf(&sb, "%s  [%s]\n", e.DisplayName, e.ID)
	}
	return sb.String()
}
