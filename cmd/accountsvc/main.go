package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mkrupp/homecase-accounts/internal/infra/config"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/repo/directory"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

const (
	appName = "demo"
	svcName = "accountsvc"
)

var errInvalidPort = errors.New("invalid port")

type Config struct {
	config.EnvConfig

	Log       logging.LoggerConfig             `envPrefix:"LOG_"`
	Account   accountsvc.AccountConfig         `envPrefix:"ACCOUNT_"`
	Directory directory.Config                 `envPrefix:"DIRECTORY_"`
	Socket    accountsvc.SocketTransportConfig `envPrefix:"SOCKET_"`
	HTTP      accountsvc.HTTPTransportConfig   `envPrefix:"HTTP_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	if err := applyPorts(&cfg, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "usage: %s [socket-port] [http-port]: %v\n", svcName, err)
		os.Exit(2) //nolint:mnd
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

// applyPorts overrides the listen ports with the positional arguments
// [socket-port] [http-port].
func applyPorts(cfg *Config, args []string) error {
	addrs := []*string{&cfg.Socket.ServerAddr, &cfg.HTTP.ServerAddr}

	if len(args) > len(addrs) {
		return fmt.Errorf("too many arguments: %d", len(args))
	}

	for i, arg := range args {
		port, err := strconv.ParseUint(arg, 10, 16)
		if err != nil || port == 0 {
			return fmt.Errorf("%w: %q", errInvalidPort, arg)
		}

		*addrs[i] = ":" + strconv.FormatUint(port, 10)
	}

	return nil
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.accountsvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	dirFactory, err := directory.NewFactory(cfg.Directory)
	if err != nil {
		return fmt.Errorf("new directory factory: %w", err)
	}

	accountSvc, err := accountsvc.NewAccountService(ctx, dirFactory, cfg.Account)
	if err != nil {
		return fmt.Errorf("new account service: %w", err)
	}

	defer func() {
		err = errors.Join(err, accountSvc.Close())
	}()

	metrics := accountsvc.NewMetrics()
	metrics.WatchDirectory(accountSvc)

	socketTransport := accountsvc.NewSocketTransport(accountSvc, metrics, cfg.Socket)
	httpTransport := accountsvc.NewHTTPTransport(accountSvc, metrics, cfg.HTTP)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := socketTransport.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("socket listen and serve: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := httpTransport.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("http listen and serve: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
