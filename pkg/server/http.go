package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"endurancy-platform/pkg/config"
	"endurancy-platform/pkg/health"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ProvideHTTPServer = fx.Module("http.server",
	fx.Provide(NewHTTPServer),
	fx.Invoke(Run),
)

// certReloader serves the current key pair and swaps it when the files on
// disk change.
type certReloader struct {
	certPath string
	keyPath  string

	mu   sync.RWMutex
	cert *tls.Certificate
}

func (r *certReloader) load() error {
	cert, err := tls.LoadX509KeyPair(r.certPath, r.keyPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

func (r *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cert == nil {
		return nil, errors.New("no TLS certificate loaded")
	}
	return r.cert, nil
}

// watch reloads on write/create/rename until stop is closed. A failed reload
// keeps serving the previous pair.
func (r *certReloader) watch(stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		zap.L().Error("tls watcher", zap.Error(err))
		return
	}
	defer watcher.Close()

	for _, p := range []string{r.certPath, r.keyPath} {
		if err := watcher.Add(p); err != nil {
			zap.L().Warn("tls watch path", zap.String("path", p), zap.Error(err))
		}
	}

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.load(); err != nil {
				zap.L().Error("tls reload failed", zap.String("file", ev.Name), zap.Error(err))
				continue
			}
			zap.L().Info("tls certificate reloaded", zap.String("file", ev.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			zap.L().Error("tls watcher", zap.Error(err))
		}
	}
}

type Server struct {
	server *http.Server
	certs  *certReloader
	drain  time.Duration
}

type Params struct {
	fx.In
	Config  *config.Config
	Handler *gin.Engine
}

func NewHTTPServer(p Params) (*Server, error) {
	cfg := p.Config
	srv := &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Addr),
			Handler:           p.Handler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			MaxHeaderBytes:    1 << 20,
		},
		drain: cfg.Server.DrainTimeout,
	}

	if !cfg.TLS.Enable {
		return srv, nil
	}

	srv.certs = &certReloader{certPath: cfg.TLS.CertPath, keyPath: cfg.TLS.KeyPath}
	if err := srv.certs.load(); err != nil {
		return nil, fmt.Errorf("load tls key pair: %w", err)
	}
	srv.server.TLSConfig = &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: srv.certs.GetCertificate,
	}
	return srv, nil
}

// Run serves until shutdown. On stop readiness is failed first and requests
// keep being served for the drain period before the listener closes.
func Run(lc fx.Lifecycle, srv *Server, checker health.HealthService) {
	stop := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if srv.certs != nil {
				go srv.certs.watch(stop)
			}

			go func() {
				var err error
				if srv.server.TLSConfig != nil {
					zap.L().Info("Starting HTTPS server", zap.String("addr", srv.server.Addr))
					err = srv.server.ListenAndServeTLS("", "")
				} else {
					zap.L().Info("Starting HTTP server", zap.String("addr", srv.server.Addr))
					err = srv.server.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					zap.L().Fatal("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			checker.Drain()

			if srv.drain > 0 {
				zap.L().Info("Draining HTTP server", zap.Duration("for", srv.drain))
				select {
				case <-time.After(srv.drain):
				case <-ctx.Done():
				}
			}

			zap.L().Info("Shutting down HTTP server")
			return srv.server.Shutdown(ctx)
		},
	})
}
