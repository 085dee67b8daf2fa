package dummy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serverName    = "burstbench-dummy"
	serverVersion = "1.0.0"

	maxFormMemory = 1 << 20
)

type ServerConfig struct {
	Port int
	// Sleep is replaced in tests to skip simulated latency.
	Sleep func(time.Duration)
}

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "burstbench_dummy_requests_total",
				Help: "Total number of requests handled by the dummy server",
			},
			[]string{"route", "code"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "burstbench_dummy_request_duration_seconds",
				Help:    "Handler latency of the dummy server",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

// Server is a local target with endpoints of known latency and error
// profiles.
type Server struct {
	cfg      ServerConfig
	router   *mux.Router
	registry *prometheus.Registry
	metrics  *metrics
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		registry: reg,
		metrics:  newMetrics(reg),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	// 1. Fast Endpoint (10-50ms)
	s.handle("/fast", "fast", s.jitter(10, 40, "Fast response"))
	// 2. Medium Endpoint (100-300ms)
	s.handle("/medium", "medium", s.jitter(100, 200, "Medium response"))
	// 3. Slow Endpoint (1s-2s)
	s.handle("/slow", "slow", s.jitter(1000, 1000, "Slow response"))

	// 4. Spike Endpoint (usually fast, 5% very slow)
	s.handle("/spike", "spike", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.05 {
			s.cfg.Sleep(2 * time.Second)
		} else {
			s.cfg.Sleep(20 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Spikey response"))
	})

	// 5. Error Endpoint (random failures)
	s.handle("/error", "error", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		if rnd < 0.2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
		} else if rnd < 0.4 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("429 Too Many Requests"))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}
	})

	// 6. Status Endpoint (fixed status)
	s.handle("/status/{code:[0-9]{3}}", "status", func(w http.ResponseWriter, r *http.Request) {
		code, _ := strconv.Atoi(mux.Vars(r)["code"])
		if code < 100 || code > 599 {
			code = http.StatusBadRequest
		}
		w.WriteHeader(code)
	})

	s.handle("/api/submit", "api_submit", s.handleSubmit).Methods(http.MethodPost)
	s.handle("/api/test", "api_test", s.handleAPITest).Methods(http.MethodGet)
	s.router.PathPrefix("/api/").Handler(s.instrument("api_index", http.HandlerFunc(s.handleAPIIndex)))

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

func (s *Server) handle(path, route string, fn http.HandlerFunc) *mux.Route {
	return s.router.Handle(path, s.instrument(route, fn))
}

func (s *Server) jitter(minMs, spreadMs int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.cfg.Sleep(time.Duration(rand.Intn(spreadMs)+minMs) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.metrics.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// Browsers post FormData as multipart; SubmitForm posts url-encoded
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		data[k] = r.PostForm.Get(k)
	}
	writeJSON(w, map[string]any{
		"status":  "success",
		"message": "form submitted",
		"data":    data,
	})
}

func (s *Server) handleAPITest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "success",
		"message": "API test succeeded",
		"server_info": map[string]string{
			"name":    serverName,
			"version": serverVersion,
			"time":    time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleAPIIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "success",
		"message": serverName + " API",
		"available_endpoints": []map[string]string{
			{"path": "/api/submit", "method": "POST", "description": "form submission"},
			{"path": "/api/test", "method": "GET", "description": "API test endpoint"},
		},
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("dummy server listening", "addr", "http://localhost"+addr)
	log.Info("endpoints", "paths", "/fast /medium /slow /spike /error /status/{code} /api/test /api/submit /metrics")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
