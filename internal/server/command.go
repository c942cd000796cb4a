package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PNdlovu/writecarenotes-sub002/internal/config"
	"github.com/PNdlovu/writecarenotes-sub002/internal/logger"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/handlers"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage/sqlite"
	"github.com/PNdlovu/writecarenotes-sub002/internal/validation"
)

// ErrDeviceRevoked возвращается при выпуске токена для отозванного устройства
var ErrDeviceRevoked = errors.New("device is revoked")

// command хранит флаги и вывод команд сервера
type command struct {
	out        io.Writer
	logOut     io.Writer
	version    string
	configPath string
	ready      func(addr string)
}

// NewCommand builds the caresync-server command tree. Command output goes to
// out, logs go to logOut.
func NewCommand(out, logOut io.Writer, version string) *cobra.Command {
	return newCommand(&command{out: out, logOut: logOut, version: version})
}

func newCommand(c *command) *cobra.Command {
	root := &cobra.Command{
		Use:           "caresync-server",
		Short:         "Reference server of record for caresync devices",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (YAML)")

	device := &cobra.Command{
		Use:   "device",
		Short: "Manage device registrations and tokens",
	}
	device.AddCommand(c.registerCommand(), c.tokenCommand(), c.revokeCommand(), c.listCommand())

	root.AddCommand(c.serveCommand(), device)
	return root
}

// withStore открывает конфигурацию и базу для команды
func (c *command) withStore(ctx context.Context, fn func(cfg *config.ServerConfig, store *sqlite.Storage) error) error {
	cfg, err := config.LoadServer(c.configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	return fn(cfg, store)
}

func (c *command) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), func(cfg *config.ServerConfig, store *sqlite.Storage) error {
				log, err := logger.New(c.logOut, cfg.Logging.Level, cfg.Logging.Format)
				if err != nil {
					return err
				}
				log.Info("Starting caresync server", "version", c.version, "database", cfg.Database.Path)

				return New(cfg, store, log, c.version).ListenAndServe(cmd.Context(), c.ready)
			})
		},
	}
}

func (c *command) registerCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register <tenant> <device>",
		Short: "Register a device and print its token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateIdentifier("tenant", args[0]); err != nil {
				return err
			}
			if err := validation.ValidateIdentifier("device", args[1]); err != nil {
				return err
			}

			return c.withStore(cmd.Context(), func(cfg *config.ServerConfig, store *sqlite.Storage) error {
				err := store.SaveDevice(cmd.Context(), &storage.Device{
					TenantID: args[0],
					DeviceID: args[1],
					Name:     name,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.out, "✓ Device %s registered for tenant %s\n", args[1], args[0])
				return c.printToken(cfg, args[0], args[1])
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "human readable device name")
	return cmd
}

func (c *command) tokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <tenant> <device>",
		Short: "Issue a new token for a registered device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(cfg *config.ServerConfig, store *sqlite.Storage) error {
				device, err := store.GetDevice(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if device.Revoked() {
					return fmt.Errorf("%w: %s", ErrDeviceRevoked, args[1])
				}
				return c.printToken(cfg, args[0], args[1])
			})
		},
	}
}

func (c *command) revokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <tenant> <device>",
		Short: "Revoke a device: its tokens stop working immediately",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(_ *config.ServerConfig, store *sqlite.Storage) error {
				if err := store.RevokeDevice(cmd.Context(), args[0], args[1], time.Now()); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.out, "✓ Device %s revoked\n", args[1])
				return nil
			})
		},
	}
}

func (c *command) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <tenant>",
		Short: "List devices of a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(_ *config.ServerConfig, store *sqlite.Storage) error {
				devices, err := store.ListDevices(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(devices) == 0 {
					_, _ = fmt.Fprintln(c.out, "No devices registered.")
					return nil
				}

				tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "DEVICE\tNAME\tLAST SEEN\tSTATE")
				for _, d := range devices {
					lastSeen := "never"
					if d.LastSeenAt != nil {
						lastSeen = d.LastSeenAt.Format(time.RFC3339)
					}
					state := "active"
					if d.Revoked() {
						state = "revoked"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.DeviceID, d.Name, lastSeen, state)
				}
				return tw.Flush()
			})
		},
	}
}

func (c *command) printToken(cfg *config.ServerConfig, tenantID, deviceID string) error {
	token, expiresAt, err := handlers.GenerateDeviceToken(handlers.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}, tenantID, deviceID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.out, "Token: %s\n", token)
	if !expiresAt.IsZero() {
		_, _ = fmt.Fprintf(c.out, "Expires: %s\n", expiresAt.Format(time.RFC3339))
	}
	return nil
}
