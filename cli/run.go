package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ualogger/logger"
	"ualogger/opc"
	"ualogger/poll"
	"ualogger/record"
	"ualogger/session"
)

// RunOptions holds flags specific to acquisition mode.
type RunOptions struct {
	NodeID   string
	LogFile  string
	DBPath   string
	Interval int
}

// NewRunCommand creates the `run` subcommand: poll one data point and
// append readings to the record store until interrupted.
func NewRunCommand(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the configured data point and log readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcquisition(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.NodeID, "node", "", "node id to poll, e.g. \"ns=1;s=G1_pressure\" (overrides config)")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "record store path (overrides config)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "optional SQLite mirror path (overrides config)")
	cmd.Flags().IntVar(&opts.Interval, "interval", 0, "poll interval in seconds (overrides config)")

	return cmd
}

func runAcquisition(ctx context.Context, root *RootOptions, opts *RunOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if opts.NodeID != "" {
		cfg.NodeID = opts.NodeID
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Interval > 0 {
		cfg.PollIntervalSeconds = opts.Interval
	}
	if cfg.NodeID == "" {
		return fmt.Errorf("no node id configured: set --node, UALOGGER_NODEID or NodeID in config.yaml")
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

	// Deferred teardown runs in reverse order: flush and close the
	// stores first, close the session last.
	mgr := session.New(client, log)
	defer mgr.Disconnect()

	store, err := record.NewFileStore(cfg.LogFile, log)
	if err != nil {
		return &ExitError{Code: ExitWriteFatal, Err: err}
	}
	defer store.Close()

	var mirror record.Store
	if cfg.DBPath != "" {
		sq, err := record.NewSQLite(cfg.DBPath, log)
		if err != nil {
			return &ExitError{Code: ExitWriteFatal, Err: err}
		}
		defer sq.Close()
		mirror = sq
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting acquisition",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("node", cfg.NodeID),
		zap.Duration("interval", cfg.PollInterval()),
		zap.String("log_file", cfg.LogFile))

	p := poll.New(mgr, cfg.NodeID, cfg.PollInterval(), log)
	if err := runPipeline(ctx, p, store, mirror, log); err != nil {
		if opc.IsFatal(err) {
			return &ExitError{Code: ExitConnectFatal, Err: err}
		}
		var we *record.WriteError
		if errors.As(err, &we) {
			return &ExitError{Code: ExitWriteFatal, Err: err}
		}
		return err
	}

	log.Info("acquisition stopped cleanly")
	return nil
}

// pollRunner is the slice of poll.Poller the pipeline needs; tests
// substitute scripted runners.
type pollRunner interface {
	Run(ctx context.Context, out chan<- record.Reading) error
}

// runPipeline wires poller to store: readings flow strictly in
// production order, appends are strictly sequential, and a store
// failure cancels the poller after the in-flight read finishes. It
// returns nil on clean (cancelled) shutdown, the poller's fatal error,
// or the store's write error.
func runPipeline(ctx context.Context, p pollRunner, store record.Store, mirror record.Store, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readings := make(chan record.Reading)
	pollDone := make(chan error, 1)
	go func() {
		pollDone <- p.Run(ctx, readings)
	}()

	var writeErr error
	for r := range readings {
		if writeErr != nil {
			// Store is gone; drain so the poller can observe the
			// cancellation and close the channel.
			continue
		}
		// The in-flight append always completes, even during
		// shutdown, so it gets a background context.
		if err := store.Append(context.Background(), r); err != nil {
			log.Error("record store append failed, stopping", zap.Error(err))
			writeErr = err
			cancel()
			continue
		}
		if mirror != nil {
			// The mirror is best-effort; the text log is the durable
			// record. A broken mirror is reported, not fatal.
			if err := mirror.Append(context.Background(), r); err != nil {
				log.Warn("sqlite mirror append failed", zap.Error(err))
			}
		}
	}

	pollErr := <-pollDone
	if writeErr != nil {
		return writeErr
	}
	return pollErr
}
