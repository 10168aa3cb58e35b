package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/monitoring"
	"github.com/sells-group/intake-cli/internal/property"
	"github.com/sells-group/intake-cli/internal/store"
	"github.com/sells-group/intake-cli/internal/submission"
	"github.com/sells-group/intake-cli/internal/trend"
	"github.com/sells-group/intake-cli/internal/valuation"
)

// analyzeRequest is the body of POST /v1/analyze.
type analyzeRequest struct {
	TransactionID string         `json:"transaction_id"`
	Document      any            `json:"document"`
	Modifications map[string]any `json:"modifications"`
}

// valuateRequest is the body of POST /v1/valuate.
type valuateRequest struct {
	TransactionID       string              `json:"transaction_id"`
	Document            any                 `json:"document"`
	SOV                 []map[string]string `json:"sov"`
	DefaultState        string              `json:"default_state"`
	SkipRecommendations bool                `json:"skip_recommendations"`
	SkipCitations       bool                `json:"skip_citations"`
}

// trendsRequest is the body of POST /v1/trends.
type trendsRequest struct {
	TransactionID string `json:"transaction_id"`
	History       any    `json:"history"`
	Current       any    `json:"current"`
	CurrentPeriod string `json:"current_period"`
}

// checkRequest is the body of POST /v1/check/{txID}.
type checkRequest struct {
	Modifications map[string]any `json:"modifications"`
}

// server serves the analyzers over HTTP.
type server struct {
	env *appEnv
	cfg config.ServerConfig
}

// newRouter builds the HTTP handler tree.
func newRouter(env *appEnv, sc config.ServerConfig) http.Handler {
	s := &server{env: env, cfg: sc}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.observe)

	r.Get("/health", s.health)
	if env.Metrics != nil {
		r.Handle("/metrics", env.Metrics.Handler())
	}

	r.Route("/v1", func(api chi.Router) {
		if sc.RateLimit > 0 {
			api.Use(rateLimit(rate.NewLimiter(rate.Limit(sc.RateLimit), max(sc.RateBurst, 1))))
		}
		if sc.MaxBodyBytes > 0 {
			api.Use(chimw.RequestSize(sc.MaxBodyBytes))
		}

		api.Post("/analyze", s.analyze)
		api.Post("/valuate", s.valuate)
		api.Post("/trends", s.trends)

		if env.Store != nil {
			api.Get("/check/{txID}", s.check)
			api.Post("/check/{txID}", s.check)

			api.Route("/docs/{txID}", func(dr chi.Router) {
				dr.Get("/", s.getDoc)
				dr.Post("/", s.putDoc)
				dr.Delete("/", s.deleteDoc)
				dr.Get("/history", s.docHistory)
			})
			api.Get("/analyses", s.listAnalyses)
			api.Get("/status", s.status)
		}
	})

	return r
}

// observe logs each request and counts it by route pattern.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.env.Metrics != nil {
			s.env.Metrics.ObserveRequest(route, strconv.Itoa(status))
		}
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// rateLimit rejects requests beyond the limiter's budget with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if s.env.Store != nil {
		if err := s.env.Store.Ping(r.Context()); err != nil {
			zap.L().Warn("health: store ping failed", zap.Error(err))
			writeResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := s.env.analyze(r.Context(), req.TransactionID, req.Document, req.Modifications)
	writeResponse(w, resultCode(res.Err), res)
}

func (s *server) valuate(w http.ResponseWriter, r *http.Request) {
	var req valuateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rep := s.env.valuate(r.Context(), req.TransactionID, req.Document, valuation.Options{
		SkipRecommendations: req.SkipRecommendations,
		SkipCitations:       req.SkipCitations,
		DefaultState:        req.DefaultState,
		Extra:               property.FromSOV(req.SOV),
	})
	writeResponse(w, resultCode(rep.Err), rep)
}

func (s *server) trends(w http.ResponseWriter, r *http.Request) {
	var req trendsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	opts := trend.Options{CurrentPeriod: req.CurrentPeriod}
	if req.Current != nil {
		cur := s.env.Valuation.Analyze(req.Current, valuation.Options{SkipRecommendations: true, SkipCitations: true})
		if !cur.OK() {
			writeError(w, http.StatusUnprocessableEntity, "current: "+cur.Error)
			return
		}
		opts.Current = &cur
	}
	rep := s.env.trends(r.Context(), req.TransactionID, req.History, opts)
	writeResponse(w, resultCode(rep.Err), rep)
}

func (s *server) check(w http.ResponseWriter, r *http.Request) {
	var mods map[string]any
	if r.Method == http.MethodPost {
		var req checkRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mods = req.Modifications
		if mods == nil {
			mods = map[string]any{}
		}
	}
	rep := s.env.check(r.Context(), chi.URLParam(r, "txID"), mods)
	writeResponse(w, resultCode(rep.Err), rep)
}

func (s *server) getDoc(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	doc, err := s.env.Store.LatestSubmission(r.Context(), txID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, submission.MsgDocumentNotFound(txID))
		return
	}
	writeResponse(w, http.StatusOK, doc)
}

func (s *server) putDoc(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if !decodeBody(w, r, &doc) {
		return
	}
	seq := 0
	if v := r.URL.Query().Get("seq"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "seq must be a non-negative integer")
			return
		}
		seq = n
	}
	txID := chi.URLParam(r, "txID")
	got, err := s.env.Store.PutSubmission(r.Context(), store.SubmissionVersion{TransactionID: txID, Sequence: seq, Data: doc})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeResponse(w, http.StatusCreated, map[string]any{"transaction_id": txID, "sequence": got})
}

func (s *server) deleteDoc(w http.ResponseWriter, r *http.Request) {
	if err := s.env.Store.DeleteSubmission(r.Context(), chi.URLParam(r, "txID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) docHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := s.env.Store.ListVersions(r.Context(), chi.URLParam(r, "txID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if versions == nil {
		versions = []store.SubmissionVersion{}
	}
	writeResponse(w, http.StatusOK, versions)
}

func (s *server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AnalysisFilter{
		Tool:          q.Get("tool"),
		Status:        q.Get("status"),
		TransactionID: q.Get("transaction_id"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = t
	}

	recs, err := s.env.Store.ListAnalyses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []store.AnalysisRecord{}
	}
	writeResponse(w, http.StatusOK, recs)
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	lookback := 24
	if v := r.URL.Query().Get("lookback"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "lookback must be a positive integer")
			return
		}
		lookback = n
	}
	snap, err := monitoring.NewCollector(s.env.Store).Collect(r.Context(), lookback)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeResponse(w, http.StatusOK, map[string]any{
		"snapshot": snap,
		"breaker":  s.env.Breaker.State().String(),
	})
}

// resultCode maps an analyzer failure kind to an HTTP status.
func resultCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, submission.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, submission.ErrInputMissing), errors.Is(err, valuation.ErrInputMissing),
		errors.Is(err, trend.ErrInputMissing):
		return http.StatusBadRequest
	case errors.Is(err, submission.ErrNoExtractableData), errors.Is(err, valuation.ErrNoProperties),
		errors.Is(err, trend.ErrNoExtractableData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// decodeBody reads a JSON body into v, writing 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeResponse(w, code, map[string]string{"error": msg})
}
