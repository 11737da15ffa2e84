package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
)

const listenerShutdownTimeout = 5 * time.Second

// Listener serves /metrics for workers that have no HTTP surface of their own.
type Listener struct {
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

// Listen binds addr and serves g in the background. Binding errors are
// returned immediately; later serve errors are logged.
func Listen(ctx context.Context, addr string, g prometheus.Gatherer, logg *logger.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	l := &Listener{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && logg != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	if logg != nil {
		logg.Info(logg.WithField(ctx, "metrics_addr", ln.Addr().String()), "metrics listener started")
	}
	return l, nil
}

// Addr is the bound address, useful when addr used port 0.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Close drains in-flight scrapes for up to five seconds.
func (l *Listener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
	defer cancel()
	err := l.srv.Shutdown(ctx)
	<-l.done
	return err
}
