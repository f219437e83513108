package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksd/internal/config"
	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/logging"
	"github.com/die-net/socksd/internal/proxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.CommandLine
	config.RegisterFlags(fs)
	printConfig := fs.Bool("print-config", false, "Print the effective configuration as YAML and exit")

	fs.SortFlags = false
	pflag.Parse()

	cfg, cfgFile, err := config.Load(fs)
	if err != nil {
		return err
	}

	if *printConfig {
		b, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(b)
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfgFile != "" {
		log.Info("loaded configuration", zap.String("file", cfgFile))
	} else {
		log.Info("no configuration file found, using defaults")
	}

	if n := cfg.Performance.WorkerThreads; n > 0 {
		runtime.GOMAXPROCS(n)
	}
	if cfg.LimitsSet() {
		log.Warn("limits.* settings are not enforced",
			zap.Int("max_connections_per_sec", cfg.Limits.MaxConnectionsPerSec),
			zap.Int64("max_bandwidth_per_connection", cfg.Limits.MaxBandwidthPerConnection))
	}

	tcp := proxy.TCPOptions{
		NoDelay:   cfg.Performance.TCPNoDelay,
		KeepAlive: cfg.KeepAlive(),
	}

	pcfg := &proxy.Config{
		ConnectTimeout:     cfg.ConnectTimeout(),
		NegotiationTimeout: cfg.Server.NegotiationTimeout,
		AdmissionTimeout:   cfg.Server.AdmissionTimeout,
		MaxConnections:     cfg.Server.MaxConnections,
		AuthRequired:       cfg.Auth.Enabled,
		Credentials:        cfg.Credentials(),
		TCP:                tcp,
		BufferSize:         cfg.Performance.BufferSize,
		Dialer: dialer.NewDirectDialer(dialer.Config{
			DialTimeout: cfg.ConnectTimeout(),
			KeepAlive:   tcp.KeepAlive,
			NoDelay:     tcp.NoDelay,
		}),
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := proxy.ListenTCP(ctx, "tcp", cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	s5 := proxy.NewSOCKS5Server(ctx, pcfg, log)

	expvar.Publish("socks5_active_connections", expvar.Func(func() any { return s5.Active() }))
	expvar.Publish("socks5_max_connections", expvar.Func(func() any { return s5.Max() }))

	if cfg.Debug.Listen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux, ReadHeaderTimeout: 10 * time.Second}
		lc := net.ListenConfig{KeepAliveConfig: tcp.KeepAlive}
		debugLn, err := lc.Listen(ctx, "tcp", cfg.Debug.Listen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info("debug listening", zap.String("addr", cfg.Debug.Listen))
	}

	g.Go(func() error {
		if err := s5.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})

	log.Info("socks5 proxy listening",
		zap.Stringer("addr", ln.Addr()),
		zap.Bool("auth", pcfg.AuthRequired),
		zap.Int("max_connections", s5.Max()))

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info("shutting down")
	return err
}
