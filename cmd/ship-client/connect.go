package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/flexiblepower/shipproto-go/config"
	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/flexiblepower/shipproto-go/internal/peerski"
	"github.com/flexiblepower/shipproto-go/pkg/ship/connection"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/csh"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport/wsconn"
	"github.com/flexiblepower/shipproto-go/pkg/ship/trust"
)

func runConnect(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Client == nil {
		return fmt.Errorf("configuration has no client section")
	}

	log := logger.NewDefaultLogger()
	log.SetLevel(parseLevel(cfg.Logging.Level))
	logger.SetDefaultLogger(log)

	csh.SetTimers(cfg.CSH.HelloInit, cfg.CSH.HelloIncrement, cfg.CSH.ProlongationThreshold, cfg.CSH.ProlongationGap, cfg.CSH.ProlongationMinimum)

	tlsConfig, err := loadClientTLSConfig(cfg.TLS)
	if err != nil {
		return fmt.Errorf("loading TLS material: %w", err)
	}

	dialer := &websocket.Dialer{
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("wss://%s%s", cfg.Client.DialAddr, cfg.Client.Path)
	ws, resp, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.TLS == nil || len(resp.TLS.PeerCertificates) == 0 {
		return fmt.Errorf("server presented no TLS certificate")
	}
	remoteSKI, err := peerski.FromConnectionState(*resp.TLS)
	if err != nil {
		return fmt.Errorf("deriving server SKI: %w", err)
	}

	trustMgr := trust.NewManager(config.TrustListenerForPolicy(cfg.Trust.Policy, log, promptOperator))
	tr := wsconn.New(ws)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch, err := connection.RunClient(ctx, tr, trustMgr, remoteSKI, cfg.Client.ProtocolID)
	if err != nil {
		return fmt.Errorf("handshake with %s failed: %w", remoteSKI, err)
	}

	log.Info("handshake complete, data channel ready", logger.String("remote_ski", remoteSKI))
	return runInteractive(ctx, ch, log)
}

func promptOperator(ski string) bool {
	fmt.Printf("Trust remote SKI %s? (y/N): ", ski)
	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	return response == "y" || response == "Y"
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func loadClientTLSConfig(cfg *config.TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading client certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		// Peer authentication happens by SKI via the trust manager, not CA chain.
		InsecureSkipVerify: true, //nolint:gosec
		MinVersion:         tls.VersionTLS12,
	}, nil
}
