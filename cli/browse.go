package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ualogger/catalog"
	"ualogger/logger"
	"ualogger/opc"
	"ualogger/session"
)

// BrowseOptions holds flags specific to browse mode.
type BrowseOptions struct {
	RootID string
	Depth  int
}

// NewBrowseCommand creates the `browse` subcommand: print the server's
// node catalog as a flattened, indented listing and exit. Used once to
// find the node id worth polling; it never touches the record store.
func NewBrowseCommand(root *RootOptions) *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List the server's addressable data points",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RootID, "root", "", "node id to browse from (default: the Objects folder)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "max browse depth (overrides config)")

	return cmd
}

func runBrowse(cmd *cobra.Command, root *RootOptions, opts *BrowseOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if opts.Depth > 0 {
		cfg.MaxBrowseDepth = opts.Depth
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Flush(log)

	client, err := opc.NewUAClient(cfg.Endpoint, cfg.Unit, cfg.ConnectTimeout(), log)
	if err != nil {
		return &ExitError{Code: ExitConnectFatal, Err: err}
	}

	mgr := session.New(client, log)
	defer mgr.Disconnect()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	live, err := mgr.Session(ctx)
	if err != nil {
		if opc.IsFatal(err) {
			return &ExitError{Code: ExitConnectFatal, Err: err}
		}
		return err
	}

	b := catalog.NewBrowser(cfg.MaxBrowseDepth, log)
	_, entries, browseErr := b.Browse(ctx, live, opts.RootID)

	// Partial results still get printed: a browse that dies halfway
	// through a large address space has usually already shown the
	// node the operator was looking for.
	if len(entries) > 0 {
		fmt.Fprint(cmd.OutOrStdout(), catalog.Render(entries))
	}
	if browseErr != nil {
		log.Error("browse failed", zap.Int("nodes_listed", len(entries)), zap.Error(browseErr))
		return browseErr
	}
	return nil
}
