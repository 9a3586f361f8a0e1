package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pricetracker-service/internal/application"
	"pricetracker-service/internal/domain"
	"pricetracker-service/internal/infrastructure/cache"
	"pricetracker-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tracker is the scheduler surface the HTTP adapter drives.
type Tracker interface {
	Start(cfg domain.TrackingConfig) error
	Stop()
	Reconfigure(cfg domain.TrackingConfig) error
	Refresh(ctx context.Context) error
	Status() application.Status
	CurrentSnapshot() domain.Snapshot
}

type Server struct {
	tracker  Tracker
	quotes   application.PriceCache
	quoteTTL time.Duration
	stats    func() cache.Stats
}

func NewServer(tracker Tracker, quotes application.PriceCache, quoteTTL time.Duration) *Server {
	return &Server{tracker: tracker, quotes: quotes, quoteTTL: quoteTTL}
}

// SetCacheStats exposes cache counters on GET /tracking.
func (s *Server) SetCacheStats(f func() cache.Stats) { s.stats = f }

type trackingRequest struct {
	Assets          string `json:"assets"`
	IntervalSeconds int    `json:"interval_seconds"`
}

type configDTO struct {
	Assets          []domain.AssetID `json:"assets"`
	IntervalSeconds int              `json:"interval_seconds"`
}

type trackingDTO struct {
	State     string       `json:"state"`
	SessionID string       `json:"session_id,omitempty"`
	Config    *configDTO   `json:"config,omitempty"`
	Pending   *configDTO   `json:"pending,omitempty"`
	Cache     *cache.Stats `json:"cache,omitempty"`
}

type sampleDTO struct {
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
}

type snapshotDTO struct {
	SessionID string                 `json:"session_id"`
	Cycle     uint64                 `json:"cycle"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
	Assets    []domain.AssetID       `json:"assets"`
	Prices    map[string]sampleDTO   `json:"prices"`
	Histories map[string][]sampleDTO `json:"histories"`
	Stale     bool                   `json:"stale"`
	LastError string                 `json:"last_error,omitempty"`
}

type historyDTO struct {
	Asset   domain.AssetID `json:"asset"`
	Samples []sampleDTO    `json:"samples"`
}

type quotesDTO struct {
	Prices  map[string]decimal.Decimal `json:"prices"`
	Missing []domain.AssetID           `json:"missing"`
}

func (s *Server) Ready(w http.ResponseWriter, _ *http.Request) {
	if s.tracker.Status().State != application.StateRunning {
		writeError(w, http.StatusServiceUnavailable, "tracker not running")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func (s *Server) GetTracking(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.trackingView())
}

// PutTracking starts a session when none is running and otherwise replaces
// the config at the next cycle boundary.
func (s *Server) PutTracking(w http.ResponseWriter, r *http.Request) {
	var body trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cfg, err := domain.NewTrackingConfig(body.Assets, body.IntervalSeconds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	err = s.tracker.Start(cfg)
	if errors.Is(err, application.ErrAlreadyRunning) {
		status = http.StatusAccepted
		err = s.tracker.Reconfigure(cfg)
	}
	if errors.Is(err, application.ErrNotRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeFetchError(w, r, err)
		return
	}
	writeJSON(w, status, s.trackingView())
}

func (s *Server) DeleteTracking(w http.ResponseWriter, _ *http.Request) {
	s.tracker.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) RefreshTracking(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.Refresh(r.Context())
	if errors.Is(err, application.ErrNotRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeFetchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(s.tracker.CurrentSnapshot()))
}

func (s *Server) GetSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toSnapshotDTO(s.tracker.CurrentSnapshot()))
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	asset, err := domain.NormalizeAsset(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := s.tracker.CurrentSnapshot()
	writeJSON(w, http.StatusOK, historyDTO{Asset: asset, Samples: toSamples(snap.History(asset))})
}

// GetQuotes looks prices up through the shared cache without touching the
// tracking session.
func (s *Server) GetQuotes(w http.ResponseWriter, r *http.Request) {
	assets, err := domain.ParseAssets(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prices, err := s.quotes.GetOrFetch(r.Context(), assets, s.quoteTTL)
	if err != nil {
		writeFetchError(w, r, err)
		return
	}
	resp := quotesDTO{Prices: make(map[string]decimal.Decimal, len(prices)), Missing: []domain.AssetID{}}
	for _, a := range assets {
		p, ok := prices[a]
		if !ok {
			resp.Missing = append(resp.Missing, a)
			continue
		}
		resp.Prices[string(a)] = p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) trackingView() trackingDTO {
	st := s.tracker.Status()
	out := trackingDTO{State: st.State.String(), SessionID: st.SessionID}
	if len(st.Config.Assets) > 0 {
		out.Config = &configDTO{Assets: st.Config.Assets, IntervalSeconds: st.Config.IntervalSeconds}
	}
	if st.Pending != nil {
		out.Pending = &configDTO{Assets: st.Pending.Assets, IntervalSeconds: st.Pending.IntervalSeconds}
	}
	if s.stats != nil {
		cs := s.stats()
		out.Cache = &cs
	}
	return out
}

func toSnapshotDTO(snap domain.Snapshot) snapshotDTO {
	out := snapshotDTO{
		SessionID: snap.SessionID,
		Cycle:     snap.Cycle,
		Assets:    snap.Assets,
		Prices:    make(map[string]sampleDTO, len(snap.Prices)),
		Histories: make(map[string][]sampleDTO, len(snap.Histories)),
		Stale:     snap.Stale,
	}
	if out.Assets == nil {
		out.Assets = []domain.AssetID{}
	}
	if !snap.UpdatedAt.IsZero() {
		at := snap.UpdatedAt
		out.UpdatedAt = &at
	}
	if snap.LastError != nil {
		out.LastError = snap.LastError.Error()
	}
	for a, p := range snap.Prices {
		out.Prices[string(a)] = sampleDTO{Price: p.Price, ObservedAt: p.ObservedAt}
	}
	for a, h := range snap.Histories {
		out.Histories[string(a)] = toSamples(h)
	}
	return out
}

func toSamples(in []domain.PriceSample) []sampleDTO {
	out := make([]sampleDTO, len(in))
	for i, p := range in {
		out[i] = sampleDTO{Price: p.Price, ObservedAt: p.ObservedAt}
	}
	return out
}

func writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.KindOf(err) == domain.KindInvalidRequest:
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.KindOf(err) != 0:
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		logx.WithFields(r.Context()).Error("request_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Code: status, Message: msg})
}
