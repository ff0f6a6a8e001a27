package main

import (
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/oxzi/demote"
)

var hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "demoted_hits_total",
	Help: "Requests recorded in the hit log.",
})

// Server is the demo HTTP service running behind the bootstrap: it records
// each request in the HitLog and lists the most recent ones.
type Server struct {
	hits *HitLog
}

func (serv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Error: Method not supported.", http.StatusMethodNotAllowed)
		return
	}

	id, err := serv.hits.Record(r.URL.Path)
	if err != nil {
		log.WithError(err).Error("Failed to record hit")

		http.Error(w, "Error: Something went wrong.", http.StatusInternalServerError)
		return
	}
	hitsTotal.Inc()

	recent, err := serv.hits.Recent(10)
	if err != nil {
		log.WithError(err).Error("Failed to list recent hits")

		http.Error(w, "Error: Something went wrong.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "You are hit %s\n\n", id)
	for _, hit := range recent {
		fmt.Fprintf(w, "%s  %s  %s\n", hit.Time.Format("2006-01-02 15:04:05"), hit.ID, hit.Path)
	}

	log.WithFields(log.Fields{
		"ID":   id,
		"path": r.URL.Path,
	}).Debug("Recorded hit")
}

// serviceListener returns the listener to serve on: a socket activation
// descriptor named "web" if present, any unnamed activated descriptor as a
// fallback, or a freshly bound socket on addr.
func serviceListener(sockets demote.ActivatedSockets, addr string) (net.Listener, error) {
	if sock, ok := sockets.Named("web"); ok {
		log.WithField("name", sock.Name).Info("Using activated listener")
		return sock.Listener()
	}
	if len(sockets) > 0 {
		log.Info("Using first activated listener")
		return sockets[0].Listener()
	}

	log.WithField("listen", addr).Info("Binding listener")
	return net.Listen("tcp", addr)
}

// metricsListener is like serviceListener for the "metrics" descriptor, but
// an empty addr disables metrics instead of binding.
func metricsListener(sockets demote.ActivatedSockets, addr string) (net.Listener, error) {
	if sock, ok := sockets.Named("metrics"); ok {
		return sock.Listener()
	}
	if addr == "" {
		return nil, nil
	}
	return net.Listen("tcp", addr)
}

// serveMetrics exposes the Prometheus registry on ln.
func serveMetrics(ln net.Listener) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.Serve(ln, mux); err != nil {
			log.WithError(err).Warn("Metrics server stopped")
		}
	}()
}
