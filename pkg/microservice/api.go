package microservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/reference"
)

// APIConfig bounds the archive API.
type APIConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxBodyBytes    int64
}

// TelexAPI serves the archive and accepts telexes over HTTP. Accepted telexes
// are queued on ingest and parsed by the ingest service, not in the handler.
type TelexAPI struct {
	cfg     APIConfig
	archive *archive.Archive
	ingest  *messagepipeline.ChannelConsumer
	refs    *reference.Dataset
	logger  zerolog.Logger
}

// NewTelexAPI builds the API. ingest and refs may be nil, which disables the
// routes that need them.
func NewTelexAPI(cfg APIConfig, arch *archive.Archive, ingest *messagepipeline.ChannelConsumer, refs *reference.Dataset, logger zerolog.Logger) (*TelexAPI, error) {
	if arch == nil {
		return nil, errors.New("archive cannot be nil")
	}
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 * 1024
	}
	return &TelexAPI{
		cfg:     cfg,
		archive: arch,
		ingest:  ingest,
		refs:    refs,
		logger:  logger.With().Str("component", "TelexAPI").Logger(),
	}, nil
}

// Register adds the API routes to mux.
func (a *TelexAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/telex", a.handlePage)
	mux.HandleFunc("GET /api/telex/latest", a.handleLatest)
	if a.ingest != nil {
		mux.HandleFunc("POST /api/telex", a.handleIngest)
	}
	if a.refs != nil {
		mux.HandleFunc("GET /api/reference/{kind}/{code}", a.handleReference)
	}
}

// PageResponse is the body of GET /api/telex.
type PageResponse struct {
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	Items      []archive.Entry `json:"items"`
}

func (a *TelexAPI) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 0)
	if err != nil || page < 0 {
		writeError(w, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}
	size, err := intParam(r, "size", a.cfg.DefaultPageSize)
	if err != nil || size < 1 || size > a.cfg.MaxPageSize {
		writeError(w, http.StatusBadRequest, "size must be between 1 and "+strconv.Itoa(a.cfg.MaxPageSize))
		return
	}

	writeJSON(w, http.StatusOK, PageResponse{
		Total:      a.archive.Total(),
		TotalPages: a.archive.TotalPages(size),
		Page:       page,
		Size:       size,
		Items:      a.archive.Page(page, size),
	})
}

func (a *TelexAPI) handleLatest(w http.ResponseWriter, _ *http.Request) {
	e, ok := a.archive.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// IngestResponse acknowledges a queued telex.
type IngestResponse struct {
	ID string `json:"id"`
}

func (a *TelexAPI) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "telex too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		writeError(w, http.StatusBadRequest, "empty telex")
		return
	}

	id := uuid.NewString()
	msg := messagepipeline.NewMessage(id, body, messagepipeline.SourceHTTP)
	msg.Attributes = map[string]string{"remote_addr": r.RemoteAddr}
	if err := a.ingest.Push(r.Context(), msg); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		a.logger.Warn().Err(err).Str("msg_id", id).Msg("Failed to queue telex.")
		writeError(w, status, "ingest unavailable")
		return
	}
	writeJSON(w, http.StatusAccepted, IngestResponse{ID: id})
}

func (a *TelexAPI) handleReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	var (
		v   any
		err error
	)
	switch reference.Kind(r.PathValue("kind")) {
	case reference.KindAirlines:
		v, err = a.refs.Airlines.Lookup(ctx, code)
	case reference.KindAirports:
		v, err = a.refs.Airports.Lookup(ctx, code)
	case reference.KindAircraft:
		v, err = a.refs.Aircraft.Lookup(ctx, code)
	case reference.KindCountries:
		v, err = a.refs.Countries.Lookup(ctx, code)
	default:
		writeError(w, http.StatusNotFound, "unknown reference table")
		return
	}

	switch {
	case errors.Is(err, reference.ErrNotFound):
		writeError(w, http.StatusNotFound, "code not found")
	case err != nil:
		a.logger.Error().Err(err).Str("code", code).Msg("Reference lookup failed.")
		writeError(w, http.StatusBadGateway, "reference lookup failed")
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
