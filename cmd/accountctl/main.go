package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/config"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc/accountclient"
)

const (
	appName = "demo"
	cliName = "accountctl"

	transportSocket = "socket"
	transportHTTP   = "http"
)

var (
	// errFailed is returned when the server answered with success=false.
	errFailed = errors.New("request failed")
	// errUnsupported is returned for an operation the selected transport does not offer.
	errUnsupported = errors.New("operation not supported by transport")
	// errUnknownTransport is returned for a --transport value other than socket or http.
	errUnknownTransport = errors.New("unknown transport")
)

type Config struct {
	config.EnvConfig

	Log    logging.LoggerConfig             `envPrefix:"LOG_"`
	Socket accountclient.SocketClientConfig `envPrefix:"ACCOUNT_CLIENT_"`
	HTTP   accountclient.HTTPClientConfig   `envPrefix:"ACCOUNT_CLIENT_"`
}

// options are the flags shared by every subcommand.
type options struct {
	transport string
	addr      string
	timeout   time.Duration
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, cliName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, cliName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := newRootCmd(cfg, os.Stdout).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}

		os.Exit(1)
	}
}

func newRootCmd(cfg Config, out io.Writer) *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   cliName,
		Short: "Command line client for the account service",
		Long: `accountctl talks to the account service over its socket protocol or its
HTTP API and prints the response as JSON.

The exit code is 0 when the server reports success and 1 otherwise,
including when the server cannot be reached.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.transport, "transport", transportSocket, "Transport to use: socket or http")
	rootCmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "Server address (host:port for socket, base URL for http)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-call timeout (default from environment, 5s)")

	call := func(cmd *cobra.Command, fn func(ctx context.Context, c clientSet) (domain.Response, error)) error {
		clients, err := newClients(cfg, opts)
		if err != nil {
			return err
		}

		resp, err := fn(cmd.Context(), clients)
		if err != nil {
			return err
		}

		return printResponse(out, resp)
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "login <username> <password>",
			Short: "Authenticate a username/password pair",
			Args:  cobra.ExactArgs(2), //nolint:mnd
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, func(ctx context.Context, c clientSet) (domain.Response, error) {
					return c.auth.Login(ctx, args[0], args[1]), nil
				})
			},
		},
		&cobra.Command{
			Use:   "register <username> <password> [email]",
			Short: "Create an account",
			Args:  cobra.RangeArgs(2, 3), //nolint:mnd
			RunE: func(cmd *cobra.Command, args []string) error {
				account := domain.Account{Username: args[0], Password: args[1]}
				if len(args) > 2 { //nolint:mnd
					account.Email = args[2]
				}

				return call(cmd, func(ctx context.Context, c clientSet) (domain.Response, error) {
					return c.auth.Register(ctx, account), nil
				})
			},
		},
		&cobra.Command{
			Use:   "exists <username>",
			Short: "Check whether a username is taken (socket only)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, func(ctx context.Context, c clientSet) (domain.Response, error) {
					if c.socket == nil {
						return domain.Response{}, fmt.Errorf("exists: %w", errUnsupported)
					}

					return c.socket.Exists(ctx, args[0]), nil
				})
			},
		},
		&cobra.Command{
			Use:   "get-user <username>",
			Short: "Show a stored account (socket only)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, func(ctx context.Context, c clientSet) (domain.Response, error) {
					if c.socket == nil {
						return domain.Response{}, fmt.Errorf("get-user: %w", errUnsupported)
					}

					return c.socket.GetUser(ctx, args[0]), nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Query the server status (http only)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return call(cmd, func(ctx context.Context, c clientSet) (domain.Response, error) {
					if c.http == nil {
						return domain.Response{}, fmt.Errorf("status: %w", errUnsupported)
					}

					return c.http.Status(ctx), nil
				})
			},
		},
	)

	return rootCmd
}

// clientSet holds the client of the selected transport; exactly one of
// socket and http is set.
type clientSet struct {
	auth   accountclient.Authenticator
	socket *accountclient.SocketClient
	http   *accountclient.HTTPClient
}

func newClients(cfg Config, opts options) (clientSet, error) {
	switch opts.transport {
	case transportSocket:
		if opts.addr != "" {
			cfg.Socket.Addr = opts.addr
		}

		if opts.timeout > 0 {
			cfg.Socket.Timeout = opts.timeout
		}

		client := accountclient.NewSocketClient(cfg.Socket)

		return clientSet{auth: client, socket: client}, nil

	case transportHTTP:
		if opts.addr != "" {
			cfg.HTTP.BaseURL = opts.addr
		}

		if opts.timeout > 0 {
			cfg.HTTP.Timeout = opts.timeout
		}

		client := accountclient.NewHTTPClient(cfg.HTTP, nil)

		return clientSet{auth: client, http: client}, nil

	default:
		return clientSet{}, fmt.Errorf("%w: %q", errUnknownTransport, opts.transport)
	}
}

func printResponse(out io.Writer, resp domain.Response) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if !resp.Success {
		return errFailed
	}

	return nil
}
