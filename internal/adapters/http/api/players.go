package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/scan"
)

// PlayersHandler serves the ranking endpoints over the reference dataset.
type PlayersHandler struct {
	deps Dependencies
	srv  *Server
}

type rankingFunc func(ctx context.Context, q service.RankingQuery) (*scan.Ranking, error)

// HandleUndervalued handles GET /players/undervalued.
func (h *PlayersHandler) HandleUndervalued(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "api.players_undervalued", h.deps.TopUndervalued)
}

// HandleOvervalued handles GET /players/overvalued.
func (h *PlayersHandler) HandleOvervalued(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "api.players_overvalued", h.deps.TopOvervalued)
}

// HandleProfile handles GET /players/{id}: the reference row of one player
// evaluated against its own market value.
func (h *PlayersHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.players_profile"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tol, err := optFloat(r.URL.Query(), "tolerance", 0, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Profile(r.Context(), r.PathValue("id"), tol)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleFilters handles GET /players/filters.
func (h *PlayersHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.players_filters"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.FilterOptions(r.Context())
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PlayersHandler) handle(w http.ResponseWriter, r *http.Request, op string, rank rankingFunc) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := h.parse(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := rank(r.Context(), q)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parse reads top, min_value, tolerance, min_pct, max_age, position, league
// and year from the query string. Sampling is fixed by configuration; a
// request cannot ask for a full-table scan.
func (h *PlayersHandler) parse(v url.Values) (service.RankingQuery, error) {
	q := service.RankingQuery{TopN: h.srv.defaultTop}

	if s := v.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, errors.New("top must be a positive integer")
		}
		if n > h.srv.maxTop {
			return q, fmt.Errorf("top must not exceed %d", h.srv.maxTop)
		}
		q.TopN = n
	}

	var err error
	if q.MinActualValue, err = optFloat(v, "min_value", 0, math.Inf(1)); err != nil {
		return q, err
	}
	if q.Tolerance, err = optFloat(v, "tolerance", 0, 1); err != nil {
		return q, err
	}
	pct, err := optFloat(v, "min_pct", 0, 100)
	if err != nil {
		return q, err
	}
	if pct != nil {
		q.MinPercent = *pct
	}
	age, err := optFloat(v, "max_age", 14, 50)
	if err != nil {
		return q, err
	}
	if age != nil {
		q.Filters.MaxAge = *age
	}

	if s := v.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 2100 {
			return q, errors.New("year must be a four digit year")
		}
		q.Filters.Year = y
	}
	for _, p := range v["position"] {
		for _, part := range strings.Split(p, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Filters.Positions = append(q.Filters.Positions, part)
			}
		}
	}
	q.Filters.League = strings.TrimSpace(v.Get("league"))
	return q, nil
}

func optFloat(v url.Values, key string, lo, hi float64) (*float64, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < lo || f > hi {
		return nil, fmt.Errorf("%s must be a number within [%g, %g]", key, lo, hi)
	}
	return &f, nil
}
