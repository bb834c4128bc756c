package api

import (
	"net/http"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/player"
)

// PredictHandler serves the single-player and small-group endpoints.
type PredictHandler struct {
	deps Dependencies
	srv  *Server
}

type batchRequest struct {
	Players []player.Record `json:"players" validate:"required,min=1,max=1000"`
}

type batchResponse struct {
	Count       int                         `json:"count"`
	Predictions []service.PredictionOutcome `json:"predictions"`
}

type evaluateRequest struct {
	Player    player.Record `json:"player"`
	Actual    *float64      `json:"actual_value_eur" validate:"omitempty,gte=0"`
	Tolerance *float64      `json:"tolerance" validate:"omitempty,gte=0,lte=1"`
}

type compareRequest struct {
	Players   []player.Record `json:"players" validate:"required,min=2,max=5"`
	Order     string          `json:"order" validate:"omitempty,oneof=gap_desc pred_desc"`
	Tolerance *float64        `json:"tolerance" validate:"omitempty,gte=0,lte=1"`
}

type summaryRequest struct {
	Player player.Record `json:"player"`
	Actual *float64      `json:"actual_value_eur" validate:"required,gte=0"`
}

// HandlePredict handles POST /predict. The body is a player record; absent
// fields are imputed.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	var rec player.Record
	if !h.srv.decode(w, r, op, &rec) {
		return
	}
	out, err := h.deps.Predict(r.Context(), rec)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePredictBatch handles POST /predict_batch.
func (h *PredictHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	var req batchRequest
	if !h.srv.decode(w, r, op, &req) {
		return
	}
	outs, err := h.deps.PredictBatch(r.Context(), req.Players)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Count: len(outs), Predictions: outs})
}

// HandleEvaluate handles POST /evaluate.
func (h *PredictHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	var req evaluateRequest
	if !h.srv.decode(w, r, op, &req) {
		return
	}
	ev, err := h.deps.Evaluate(r.Context(), req.Player, req.Actual, req.Tolerance)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleCompare handles POST /compare. Each player's own market_value_eur is
// the value it is ranked against.
func (h *PredictHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	var req compareRequest
	if !h.srv.decode(w, r, op, &req) {
		return
	}
	items := make([]service.CompareItem, len(req.Players))
	for i := range req.Players {
		items[i] = service.CompareItem{Record: req.Players[i]}
	}
	cmp, err := h.deps.Compare(r.Context(), items, req.Order, req.Tolerance)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// HandleSummary handles POST /summary.
func (h *PredictHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	var req summaryRequest
	if !h.srv.decode(w, r, op, &req) {
		return
	}
	sum, err := h.deps.Summarize(r.Context(), req.Player, *req.Actual)
	if err != nil {
		h.srv.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
