package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// SeriesReader reads the record store.
type SeriesReader interface {
	Entities() []string
	Load(entityID string) ([]domain.Observation, error)
	Len(entityID string) int
}

// ModelLoader reads persisted models.
type ModelLoader interface {
	Load(ctx context.Context, entityID string) (domain.TrainedModel, error)
}

// TrainRunner trains a single entity on demand.
type TrainRunner interface {
	Train(ctx context.Context, entityID string) (domain.Report, error)
}

// Predictor answers point and range predictions.
type Predictor interface {
	Predict(ctx context.Context, entityID string, targetOffsetDays int) (float64, error)
	Forecast(ctx context.Context, entityID string, from, to int) ([]domain.Point, error)
}

// SeriesRefresher reloads an entity from the external provider.
type SeriesRefresher interface {
	Refresh(ctx context.Context, entityID string) (int, error)
}

// API serves the /v1 routes. Refresher may be nil when no provider is
// configured.
type API struct {
	Store     SeriesReader
	Models    ModelLoader
	Trainer   TrainRunner
	Query     Predictor
	Refresher SeriesRefresher
	Logger    *slog.Logger
}

type entitySummary struct {
	EntityID     string `json:"entity_id"`
	Observations int    `json:"observations"`
}

type predictionResponse struct {
	EntityID   string  `json:"entity_id"`
	OffsetDays int     `json:"offset_days"`
	Confirmed  float64 `json:"confirmed"`
}

type forecastResponse struct {
	EntityID string         `json:"entity_id"`
	Points   []domain.Point `json:"points"`
}

type observationsResponse struct {
	EntityID     string               `json:"entity_id"`
	Observations []domain.Observation `json:"observations"`
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/entities", a.handleEntities)
	mux.HandleFunc("GET /v1/entities/{id}/observations", a.handleObservations)
	mux.HandleFunc("POST /v1/entities/{id}/refresh", a.handleRefresh)
	mux.HandleFunc("POST /v1/entities/{id}/train", a.handleTrain)
	mux.HandleFunc("GET /v1/entities/{id}/model", a.handleModel)
	mux.HandleFunc("GET /v1/entities/{id}/predict", a.handlePredict)
	mux.HandleFunc("GET /v1/entities/{id}/forecast", a.handleForecast)
}

func (a *API) handleEntities(w http.ResponseWriter, _ *http.Request) {
	ids := a.Store.Entities()
	out := make([]entitySummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, entitySummary{EntityID: id, Observations: a.Store.Len(id)})
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"entities": out})
}

func (a *API) handleObservations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	obs, err := a.Store.Load(id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, observationsResponse{EntityID: id, Observations: obs})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if a.Refresher == nil {
		a.writeError(w, r, fmt.Errorf("no case-data provider configured: %w", domain.ErrNotFound))
		return
	}
	id := r.PathValue("id")
	n, err := a.Refresher.Refresh(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, entitySummary{EntityID: id, Observations: n})
}

func (a *API) handleTrain(w http.ResponseWriter, r *http.Request) {
	report, err := a.Trainer.Train(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (a *API) handleModel(w http.ResponseWriter, r *http.Request) {
	model, err := a.Models.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, model)
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	offset, err := intParam(r, "offset")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	value, err := a.Query.Predict(r.Context(), id, offset)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, predictionResponse{EntityID: id, OffsetDays: offset, Confirmed: value})
}

func (a *API) handleForecast(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	from, err := intParam(r, "from")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := intParam(r, "to")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	points, err := a.Query.Forecast(r.Context(), id, from, to)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, forecastResponse{EntityID: id, Points: points})
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("query parameter %q is required: %w", name, domain.ErrInvalidArgument)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer: %w", name, domain.ErrInvalidArgument)
	}
	return n, nil
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && a.Logger != nil {
		a.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMalformedRecord):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData), errors.Is(err, domain.ErrDegenerateInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
