// Package api exposes balance history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"balance-history/internal/domain"
	"balance-history/internal/history"
	"balance-history/internal/observability"
)

// Query parameter names.
const (
	paramLimit          = "limit"
	paramCursor         = "cursor"
	paramBlockHeight    = "block_height"
	paramBlockTimestamp = "block_timestamp_nanos"
)

// HistoryService is the engine behind the endpoints. *history.Service
// implements it.
type HistoryService interface {
	ResolveStart(ctx context.Context, p history.StartParams, limit int) (domain.Cursor, error)
	NativeHistory(ctx context.Context, account string, c domain.Cursor) (*history.NativePage, error)
	FTHistory(ctx context.Context, contract, account string, c domain.Cursor) (*history.CoinPage, error)
}

// MetadataProvider supplies coin metadata. *metadata.Provider implements it.
type MetadataProvider interface {
	Native() domain.CoinMetadata
	FT(ctx context.Context, contract string) (domain.CoinMetadata, error)
}

// Limits bounds the page size accepted from clients.
type Limits struct {
	Default int
	Max     int
}

// Server serves the history endpoints.
type Server struct {
	history  HistoryService
	metadata MetadataProvider
	limits   Limits
	logger   zerolog.Logger
}

// NewServer creates an API server.
func NewServer(svc HistoryService, meta MetadataProvider, limits Limits, logger zerolog.Logger) *Server {
	return &Server{
		history:  svc,
		metadata: meta,
		limits:   limits,
		logger:   logger,
	}
}

// Register adds the history routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET /accounts/{account_id}/balances/NEAR/history",
		s.withRequestID(http.HandlerFunc(s.handleNativeHistory)))
	mux.Handle("GET /accounts/{account_id}/balances/FT/{contract_account_id}/history",
		s.withRequestID(http.HandlerFunc(s.handleFTHistory)))
}

// nativeHistoryResponse is the body of the native history endpoint.
type nativeHistoryResponse struct {
	CoinMetadata domain.CoinMetadata        `json:"coin_metadata"`
	History      []domain.NativeHistoryItem `json:"history"`
	NextCursor   *string                    `json:"next_cursor"`
}

// coinHistoryResponse is the body of the token history endpoint.
type coinHistoryResponse struct {
	History    []domain.CoinHistoryItem `json:"history"`
	NextCursor *string                  `json:"next_cursor"`
}

func (s *Server) handleNativeHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	items := 0
	status := http.StatusOK
	defer func() {
		observability.RecordHistoryRequest(history.AssetNative, strconv.Itoa(status), time.Since(start).Seconds(), items)
	}()

	account, err := parseAccount(r, "account_id")
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}

	cursor, err := s.cursor(r)
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}

	page, err := s.history.NativeHistory(r.Context(), account.String(), cursor)
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}

	resp := nativeHistoryResponse{
		CoinMetadata: s.metadata.Native(),
		History:      page.Items,
		NextCursor:   encodeNext(page.Next),
	}
	items = len(page.Items)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleFTHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	items := 0
	status := http.StatusOK
	defer func() {
		observability.RecordHistoryRequest(history.AssetFT, strconv.Itoa(status), time.Since(start).Seconds(), items)
	}()

	account, err := parseAccount(r, "account_id")
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}
	contract, err := parseAccount(r, "contract_account_id")
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}

	cursor, err := s.cursor(r)
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}

	page, err := s.history.FTHistory(r.Context(), contract.String(), account.String(), cursor)
	if err != nil {
		status = s.writeError(w, r, err)
		return
	}

	// Metadata decorates the page; a failure to fetch it does not fail
	// the request.
	if len(page.Items) > 0 {
		meta, err := s.metadata.FT(r.Context(), contract.String())
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).
				Str("contract", contract.String()).
				Msg("coin metadata unavailable")
		} else {
			for i := range page.Items {
				page.Items[i].CoinMetadata = &meta
			}
		}
	}

	resp := coinHistoryResponse{
		History:    page.Items,
		NextCursor: encodeNext(page.Next),
	}
	items = len(page.Items)
	writeJSON(w, r, http.StatusOK, resp)
}

// cursor returns the cursor of the requested page: the decoded cursor
// parameter, or the first page ending at the requested start block.
func (s *Server) cursor(r *http.Request) (domain.Cursor, error) {
	q := r.URL.Query()

	limit, err := s.parseLimit(q.Get(paramLimit))
	if err != nil {
		return domain.Cursor{}, err
	}

	height, err := parseOptionalUint(q.Get(paramBlockHeight), paramBlockHeight)
	if err != nil {
		return domain.Cursor{}, err
	}
	timestamp, err := parseOptionalUint(q.Get(paramBlockTimestamp), paramBlockTimestamp)
	if err != nil {
		return domain.Cursor{}, err
	}

	if token := q.Get(paramCursor); token != "" {
		if height != nil || timestamp != nil {
			return domain.Cursor{}, badRequest("%s cannot be combined with %s or %s",
				paramCursor, paramBlockHeight, paramBlockTimestamp)
		}
		return domain.DecodeCursor(token, limit)
	}

	return s.history.ResolveStart(r.Context(), history.StartParams{
		BlockHeight:    height,
		BlockTimestamp: timestamp,
	}, limit)
}

func (s *Server) parseLimit(raw string) (int, error) {
	if raw == "" {
		return s.limits.Default, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", paramLimit)
	}
	if limit <= 0 || limit > s.limits.Max {
		return 0, badRequest("%s must be between 1 and %d", paramLimit, s.limits.Max)
	}
	return limit, nil
}

func parseOptionalUint(raw, name string) (*uint64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, badRequest("%s must be an unsigned integer", name)
	}
	return &v, nil
}

func parseAccount(r *http.Request, name string) (domain.AccountID, error) {
	id, err := domain.ParseAccountID(r.PathValue(name))
	if err != nil {
		return "", badRequest("%s: %v", name, err)
	}
	return id, nil
}

func encodeNext(c *domain.Cursor) *string {
	if c == nil {
		return nil
	}
	token := c.Encode()
	return &token
}

// writeJSON writes v with status. The client may be gone by now, so an
// encode failure is only logged.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("write response")
	}
}
