package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksrelay/internal/config"
	"github.com/die-net/socksrelay/internal/dialer"
	"github.com/die-net/socksrelay/internal/logging"
	"github.com/die-net/socksrelay/internal/proxy"
)

// listenAddr is where socksrelay accepts SOCKS5 clients. It is not
// configurable.
const listenAddr = "0.0.0.0:11080"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	ka, err := parseTCPKeepAlive(cfg.TCPKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	logger, logCloser, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := proxy.ListenTCP(ctx, "tcp", listenAddr, proxy.ListenOptions{
		KeepAlive: ka,
		ReusePort: cfg.ReusePort,
	})
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}

	s5 := proxy.NewSOCKS5Server(ctx, proxy.Config{
		NegotiationTimeout: cfg.NegotiationTimeout.Duration(),
		Dialer: dialer.NewDirectDialer(dialer.Config{
			DialTimeout: cfg.DialTimeout.Duration(),
			KeepAlive:   ka,
		}),
	}, logger)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := s5.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	logger.Info("socks5 relay listening", zap.String("addr", listenAddr))

	if cfg.DebugListen != "" {
		http.Handle("/debug/stats", s5.Stats())

		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{}
		debugLn, err := lc.Listen(ctx, "tcp", cfg.DebugListen)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		logger.Info("debug listening", zap.String("addr", cfg.DebugListen))
	}

	err = g.Wait()

	st := s5.Stats().Snapshot()
	logger.Info("shutting down",
		zap.Int64("accepted", st.Accepted),
		zap.Int64("active", st.Active),
		zap.Int64("bytes_sent", st.BytesSent),
		zap.Int64("bytes_received", st.BytesReceived),
	)
	return err
}

// parseConfig loads --config, if given, then applies any flags that were set
// explicitly on top of it.
func parseConfig(args []string) (*config.Config, error) {
	fs := pflag.NewFlagSet("socksrelay", pflag.ContinueOnError)
	fs.SortFlags = false

	var (
		configPath         = fs.String("config", "", "Path to a YAML config file. Flags override its values.")
		verbose            = fs.Bool("verbose", false, "Enable per-connection debug logging")
		negotiationTimeout = fs.Duration("negotiation-timeout", 0, "Deadline for the SOCKS5 handshake and upstream connect; 0 disables")
		dialTimeout        = fs.Duration("dial-timeout", 0, "Timeout for outbound DNS lookup and TCP connect; 0 uses the system default")
		tcpKeepAlive       = fs.String("tcp-keepalive", config.DefaultTCPKeepAlive, "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		reusePort          = fs.Bool("reuse-port", false, "Set SO_REUSEPORT on the listen socket")
		debugListen        = fs.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /debug/stats (e.g. 127.0.0.1:6060). Empty disables.")
		logFile            = fs.String("log-file", "", "Write logs to this file, rotated by size. Empty logs to stderr.")
		logLevel           = fs.String("log-level", "", "Log level: debug|info|warn|error. Overrides --verbose.")
	)

	if !proxy.ReusePortSupported {
		_ = fs.MarkHidden("reuse-port")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if fs.Changed("verbose") {
		cfg.Verbose = *verbose
	}
	if fs.Changed("negotiation-timeout") {
		if *negotiationTimeout < 0 {
			return nil, errors.New("invalid --negotiation-timeout: must not be negative")
		}
		cfg.NegotiationTimeout = config.DurationString(*negotiationTimeout)
	}
	if fs.Changed("dial-timeout") {
		if *dialTimeout < 0 {
			return nil, errors.New("invalid --dial-timeout: must not be negative")
		}
		cfg.DialTimeout = config.DurationString(*dialTimeout)
	}
	if fs.Changed("tcp-keepalive") {
		cfg.TCPKeepAlive = *tcpKeepAlive
	}
	if fs.Changed("reuse-port") {
		cfg.ReusePort = *reusePort
	}
	if fs.Changed("debug-listen") {
		cfg.DebugListen = *debugListen
	}
	if fs.Changed("log-file") {
		cfg.Log.Filename = *logFile
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	cfg.SetDefaults()
	return cfg, nil
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
