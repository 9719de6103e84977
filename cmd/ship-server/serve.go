package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/flexiblepower/shipproto-go/config"
	"github.com/flexiblepower/shipproto-go/internal/health"
	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/flexiblepower/shipproto-go/internal/metrics"
	"github.com/flexiblepower/shipproto-go/internal/peerski"
	"github.com/flexiblepower/shipproto-go/pkg/ship/connection"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/csh"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport/wsconn"
	"github.com/flexiblepower/shipproto-go/pkg/ship/trust"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func runServe(cmd *cobra.Command, args []string) error {
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
	if cfg.Server == nil {
		return fmt.Errorf("configuration has no server section")
	}

	log := logger.NewDefaultLogger()
	log.SetLevel(parseLevel(cfg.Logging.Level))
	logger.SetDefaultLogger(log)

	csh.SetTimers(cfg.CSH.HelloInit, cfg.CSH.HelloIncrement, cfg.CSH.ProlongationThreshold, cfg.CSH.ProlongationGap, cfg.CSH.ProlongationMinimum)

	tlsConfig, err := loadServerTLSConfig(cfg.TLS)
	if err != nil {
		return fmt.Errorf("loading TLS material: %w", err)
	}

	trustMgr := trust.NewManager(config.TrustListenerForPolicy(cfg.Trust.Policy, log, promptOperator))

	var listenerUp atomic.Bool
	checker := health.NewChecker(listenerUp.Load)
	healthSrv := health.NewServer(checker, log, cfg.Health.Port)
	if cfg.Health.Enabled {
		if err := healthSrv.Start(); err != nil {
			return fmt.Errorf("starting health server: %w", err)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Health.Port {
		go func() {
			if err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port)); err != nil {
				log.Error("metrics server error", logger.Error(err))
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.Path, func(w http.ResponseWriter, r *http.Request) {
		handleUpgrade(r.Context(), w, r, trustMgr, cfg.Server.ProtocolID, log)
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.ListenAddr, err)
	}
	tlsLn := tls.NewListener(ln, tlsConfig)
	listenerUp.Store(true)

	log.Info("ship-server listening", logger.String("addr", cfg.Server.ListenAddr), logger.String("path", cfg.Server.Path))

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(tlsLn) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	listenerUp.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = healthSrv.Stop(shutdownCtx)
	return nil
}

func handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request, trustMgr *trust.Manager, protocolID int, log logger.Logger) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		http.Error(w, "client certificate required", http.StatusUnauthorized)
		return
	}
	remoteSKI, err := peerski.FromConnectionState(*r.TLS)
	if err != nil {
		http.Error(w, "could not derive peer SKI", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", logger.Error(err))
		return
	}
	tr := wsconn.New(ws)

	ch, err := connection.RunServer(ctx, tr, trustMgr, remoteSKI, protocolID)
	if err != nil {
		log.Warn("handshake failed", logger.String("remote_ski", remoteSKI), logger.Error(err))
		return
	}

	log.Info("handshake complete, data channel ready", logger.String("remote_ski", remoteSKI))
	serveDataChannel(ctx, ch, remoteSKI, log)
}

// promptOperator asks an operator at the controlling terminal whether to
// trust an unseen SKI. Used only under TrustPolicyManual.
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
