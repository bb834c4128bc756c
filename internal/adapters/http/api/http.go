// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/scan"
	"github.com/okian/scout/pkg/logger"
)

// maxBodyBytes caps request bodies; a batch of a thousand players fits well
// inside it.
const maxBodyBytes = 4 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Ready() bool

	Predict(ctx context.Context, rec player.Record) (*service.PredictionOutcome, error)
	PredictBatch(ctx context.Context, recs []player.Record) ([]service.PredictionOutcome, error)
	Evaluate(ctx context.Context, rec player.Record, actual, tolerance *float64) (*service.Evaluation, error)
	Compare(ctx context.Context, items []service.CompareItem, order string, tolerance *float64) (*service.Comparison, error)
	Summarize(ctx context.Context, rec player.Record, actual float64) (*service.ValueSummary, error)

	TopUndervalued(ctx context.Context, q service.RankingQuery) (*scan.Ranking, error)
	TopOvervalued(ctx context.Context, q service.RankingQuery) (*scan.Ranking, error)
	Profile(ctx context.Context, id string, tolerance *float64) (*service.Profile, error)
	FilterOptions(ctx context.Context) (*service.FilterOptions, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	playersHandler *PlayersHandler
	logger         logger.Logger
	validate       *validator.Validate
	defaultTop     int
	maxTop         int
}

// Option configures a Server.
type Option func(*Server)

// WithTopLimits sets the default and maximum "top" of ranking queries.
func WithTopLimits(def, limit int) Option {
	return func(s *Server) {
		if def > 0 && limit >= def {
			s.defaultTop, s.maxTop = def, limit
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		logger:     logger.Nop(),
		validate:   newValidator(),
		defaultTop: 20,
		maxTop:     100,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.predictHandler = &PredictHandler{deps: deps, srv: s}
	s.playersHandler = &PlayersHandler{deps: deps, srv: s}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/predict", "predict", s.predictHandler.HandlePredict)
	route("/predict_batch", "predict_batch", s.predictHandler.HandlePredictBatch)
	route("/evaluate", "evaluate", s.predictHandler.HandleEvaluate)
	route("/compare", "compare", s.predictHandler.HandleCompare)
	route("/summary", "summary", s.predictHandler.HandleSummary)
	route("/players/undervalued", "players_undervalued", s.playersHandler.HandleUndervalued)
	route("/players/overvalued", "players_overvalued", s.playersHandler.HandleOvervalued)
	route("/players/filters", "players_filters", s.playersHandler.HandleFilters)
	route("/players/{id}", "players_profile", s.playersHandler.HandleProfile)
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: w.Header().Get(requestIDHeader)})
}

// fail translates err and writes it. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("code", code),
			logger.String("request_id", w.Header().Get(requestIDHeader)),
			logger.Error(err),
		)
	}
	writeError(w, status, code, WrapKind(op, kind, err))
}

// decode reads a JSON body into v and runs struct validation.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, codeMethod, NewKind(op, ErrMethod))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, WrapKind(op, ErrBodyTooLarge, err))
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, describe(err)))
		return false
	}
	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe flattens validator errors into one readable message.
func describe(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		p := fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			p += "=" + fe.Param()
		}
		parts = append(parts, p)
	}
	return errors.New(strings.Join(parts, "; "))
}
