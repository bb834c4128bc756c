package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/okian/scout/internal/adapters/artifacts"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/features"
	"github.com/okian/scout/internal/domain/player"
	"github.com/okian/scout/internal/domain/scan"
	"github.com/okian/scout/internal/domain/valuation"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnavailable  = errors.New("artifacts unavailable")
	ErrSchemaSkew   = errors.New("feature schema does not match model")
	ErrNoDataset    = errors.New("reference dataset unavailable")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
	ErrMethod       = errors.New("method not allowed")
	ErrBodyTooLarge = errors.New("request body too large")
)

// Error codes returned in error bodies.
const (
	codeBadRequest   = "bad_request"
	codeUnavailable  = "artifacts_unavailable"
	codeSchemaSkew   = "schema_skew"
	codeNoDataset    = "dataset_unavailable"
	codeNotFound     = "not_found"
	codeInternal     = "internal_error"
	codeMethod       = "method_not_allowed"
	codeCanceled     = "canceled"
	statusClientGone = 499
)

// Error is an operation-scoped API error. Kind is one of the sentinels above
// and Err the underlying cause; both match errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind without a cause.
func NewKind(op string, kind error) error { return &Error{Op: op, Kind: kind} }

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps an upstream error to a status code and error code.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, player.ErrInvalidRecord),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, scan.ErrOptions),
		errors.Is(err, scan.ErrDirection):
		return http.StatusBadRequest, codeBadRequest, ErrBadRequest
	case errors.Is(err, service.ErrPlayerNotFound):
		return http.StatusNotFound, codeNotFound, ErrNotFound
	case errors.Is(err, valuation.ErrFeatureMismatch),
		errors.Is(err, features.ErrWidth),
		errors.Is(err, features.ErrUnboundColumn):
		return http.StatusInternalServerError, codeSchemaSkew, ErrSchemaSkew
	case errors.Is(err, artifacts.ErrArtifactNotFound),
		errors.Is(err, artifacts.ErrArtifactCorrupt):
		return http.StatusServiceUnavailable, codeUnavailable, ErrUnavailable
	case errors.Is(err, service.ErrNoDataset), errors.Is(err, fs.ErrNotExist):
		return http.StatusServiceUnavailable, codeNoDataset, ErrNoDataset
	case errors.Is(err, context.Canceled):
		return statusClientGone, codeCanceled, ErrInternal
	default:
		return http.StatusInternalServerError, codeInternal, ErrInternal
	}
}
