package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/api"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/auth"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/connectivity"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/iocli"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/metrics"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/outbox"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage/boltdb"
	clientsync "github.com/PNdlovu/writecarenotes-sub002/internal/client/sync"
	"github.com/PNdlovu/writecarenotes-sub002/internal/config"
	"github.com/PNdlovu/writecarenotes-sub002/internal/logger"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

// команды, которым не нужно локальное хранилище
var noStore = map[string]bool{
	"caresync":   true,
	"help":       true,
	"completion": true,
	"__complete": true,
}

// App wires configuration, the local store and the sync engine behind the
// cobra command tree.
type App struct {
	io             iocli.IO
	logOut         io.Writer
	cli            *Cli
	store          *boltdb.Storage
	detach         []func()
	version        string
	configPath     string
	passphraseFile string
	serverURL      string
	dbPath         string
}

// NewApp creates the application. Logs go to logOut.
func NewApp(stdio iocli.IO, logOut io.Writer, version string) *App {
	return &App{io: stdio, logOut: logOut, version: version}
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:               "caresync",
		Short:             "Offline-first sync client for care records",
		Version:           a.version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to config file (YAML)")
	flags.StringVar(&a.passphraseFile, "passphrase-file", "", "file containing the storage passphrase")
	flags.StringVar(&a.serverURL, "server", "", "server URL (overrides config)")
	flags.StringVar(&a.dbPath, "db", "", "path to local database (overrides config)")

	root.AddCommand(
		a.addCommand(),
		a.editCommand(),
		a.deleteCommand(),
		a.getCommand(),
		a.listCommand(),
		a.syncCommand(),
		a.statusCommand(),
		a.conflictsCommand(),
		a.ackCommand(),
		a.resolveCommand(),
		a.discardCommand(),
		a.daemonCommand(),
		a.loginCommand(),
		a.logoutCommand(),
	)

	return root
}

// Close releases the subscriptions and the local store.
func (a *App) Close() error {
	for _, fn := range a.detach {
		fn()
	}
	a.detach = nil

	// Последняя попытка сохранить правки из памяти
	if a.cli != nil && a.cli.outbox.Buffered() > 0 {
		_, _ = a.cli.outbox.Flush(context.Background())
		if n := a.cli.outbox.Buffered(); n > 0 {
			a.io.Printf("Warning: %d change(s) could not be written to local storage and are lost\n", n)
		}
	}

	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// open загружает конфигурацию и собирает зависимости команды
func (a *App) open(cmd *cobra.Command, _ []string) error {
	if noStore[cmd.Name()] || a.cli != nil {
		return nil
	}

	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.Server.URL = a.serverURL
	}
	if a.dbPath != "" {
		cfg.Storage.Path = a.dbPath
	}

	log, err := logger.New(a.logOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	clock := version.NewClock()
	store, err := a.openStore(cmd.Context(), cfg, clock, log)
	if err != nil {
		return err
	}
	a.store = store

	session := auth.NewService(store, log)
	token, err := session.Token(cmd.Context(), cfg.Server.Token)
	if err != nil {
		return err
	}

	apiClient := api.NewClient(cfg.Server.URL,
		api.WithToken(token),
		api.WithTimeout(cfg.Server.Timeout),
	)

	ob := outbox.NewService(store, clock, log)
	coordinator := clientsync.NewCoordinator(store, apiClient, registry, log,
		clientsync.WithConfig(cfg.Sync.Cycle),
		clientsync.WithClock(clock),
		clientsync.WithFlusher(ob),
	)
	monitor := connectivity.NewMonitor(coordinator, apiClient, log,
		connectivity.WithInterval(cfg.Sync.Interval),
		connectivity.WithProbeTimeout(cfg.Sync.ProbeTimeout),
	)

	recorder, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.detach = append(a.detach,
		recorder.Attach(coordinator),
		coordinator.Subscribe(nil, func(clientsync.SyncCycleResult) {
			if pending, err := ob.Pending(context.Background()); err == nil {
				recorder.SetPending(len(pending))
			}
		}),
	)

	a.cli = New(Deps{
		IO:          a.io,
		Outbox:      ob,
		Syncer:      coordinator,
		Prober:      apiClient,
		Meta:        store,
		Auth:        session,
		Daemon:      monitor,
		Metrics:     recorder.Handler(),
		MetricsAddr: cfg.Metrics.Addr,
	})

	return nil
}

// openStore открывает хранилище, запрашивая passphrase для зашифрованного файла
func (a *App) openStore(ctx context.Context, cfg *config.ClientConfig, clock *version.Clock, log *slog.Logger) (*boltdb.Storage, error) {
	passphrase, err := ResolvePassphrase(cfg.Storage.Passphrase, a.passphraseFile)
	if err != nil {
		return nil, err
	}

	open := func(passphrase string) (*boltdb.Storage, error) {
		return boltdb.New(ctx, cfg.Storage.Path,
			boltdb.WithPassphrase(passphrase),
			boltdb.WithMaxAttempts(cfg.Sync.MaxAttempts),
			boltdb.WithOpenTimeout(cfg.Storage.OpenTimeout),
			boltdb.WithClock(clock),
			boltdb.WithLogger(log),
		)
	}

	store, err := open(passphrase)
	if errors.Is(err, storage.ErrInvalidPassphrase) && passphrase == "" {
		passphrase, err = PromptPassphrase(a.io)
		if err != nil {
			return nil, err
		}
		store, err = open(passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	return store, nil
}

func (a *App) addCommand() *cobra.Command {
	var opts EditOptions
	cmd := &cobra.Command{
		Use:   "add <type> <id>",
		Short: "Create an entity locally and queue it for sync",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runAdd(cmd.Context(), args[0], args[1], opts)
		},
	}
	payloadFlags(cmd, &opts.Payload)
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "synchronize right after queueing")
	return cmd
}

func (a *App) editCommand() *cobra.Command {
	var opts EditOptions
	cmd := &cobra.Command{
		Use:   "edit <type> <id>",
		Short: "Replace an entity document locally and queue the update",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runUpdate(cmd.Context(), args[0], args[1], opts)
		},
	}
	payloadFlags(cmd, &opts.Payload)
	cmd.Flags().Uint64Var(&opts.BaseVersion, "base", 0, "server version the edit is based on (default: cached version)")
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "synchronize right after queueing")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	var (
		base     uint64
		autoSync bool
	)
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete an entity locally and queue the delete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDelete(cmd.Context(), args[0], args[1], base, autoSync)
		},
	}
	cmd.Flags().Uint64Var(&base, "base", 0, "server version the delete is based on (default: cached version)")
	cmd.Flags().BoolVar(&autoSync, "sync", false, "synchronize right after queueing")
	return cmd
}

func (a *App) getCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show an entity as seen on this device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runGet(cmd.Context(), args[0], args[1], refresh)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the server copy first when online")
	return cmd
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List cached entities of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runList(cmd.Context(), args[0])
		},
	}
}

func (a *App) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize queued changes with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cli.runSync(cmd.Context())
		},
	}
}

func (a *App) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show outbox and sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cli.runStatus(cmd.Context())
		},
	}
}

func (a *App) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store the device token issued by caresync-server",
		Long: "Store the device token issued by 'caresync-server device register'.\n" +
			"Without an argument the token is read from the terminal.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			}
			return a.cli.runLogin(cmd.Context(), token)
		},
	}
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored device token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cli.runLogout(cmd.Context())
		},
	}
}

func (a *App) conflictsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List conflicts and mutations needing a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cli.runConflicts(cmd.Context())
		},
	}
}

func (a *App) ackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <mutation-id>",
		Short: "Dismiss an automatically resolved conflict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runAck(cmd.Context(), args[0])
		},
	}
}

func (a *App) resolveCommand() *cobra.Command {
	var src PayloadSource
	cmd := &cobra.Command{
		Use:   "resolve <mutation-id>",
		Short: "Requeue a conflicted mutation with a merged document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runResolve(cmd.Context(), args[0], src)
		},
	}
	payloadFlags(cmd, &src)
	return cmd
}

func (a *App) discardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <mutation-id>",
		Short: "Drop a conflicted or failed mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDiscard(cmd.Context(), args[0])
		},
	}
}

func (a *App) daemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background and serve /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cli.runDaemon(cmd.Context(), nil)
		},
	}
}

func payloadFlags(cmd *cobra.Command, src *PayloadSource) {
	cmd.Flags().StringVar(&src.Inline, "payload", "", "entity document as JSON")
	cmd.Flags().StringVar(&src.File, "file", "", "read the entity document from a file")
}

