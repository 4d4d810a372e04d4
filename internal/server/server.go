// Package server exposes the dashboard views, simulations, charts and
// ranking exports over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/iwvelando/icms-educacional/internal/chart"
	"github.com/iwvelando/icms-educacional/internal/config"
	"github.com/iwvelando/icms-educacional/internal/dashboard"
	"github.com/iwvelando/icms-educacional/pkg/constants"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/measure"
	"github.com/iwvelando/icms-educacional/pkg/output"
	"github.com/iwvelando/icms-educacional/pkg/ranking"
	"github.com/iwvelando/icms-educacional/pkg/revenue"
	"go.uber.org/zap"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePNG  = "image/png"
)

type handler struct {
	logger        *zap.Logger
	table         *dataset.Table
	maxUploadSize int64
	version       string
}

type simulateRequest struct {
	Municipality string            `json:"municipality"`
	Year         int               `json:"year"`
	Scenarios    []config.Scenario `json:"scenarios"`
}

type rankingResponse struct {
	output.RankingTable
	Summary ranking.Summary `json:"summary"`
}

// NewHandler constructs the HTTP handler that serves the dashboard API over
// table. The table is loaded once by the caller and only read here.
func NewHandler(logger *zap.Logger, table *dataset.Table, cfg *Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}
	timeout := cfg.RequestTimeoutDuration()
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, table: table, maxUploadSize: maxUploadSize, version: trimmedVersion}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, h.logRequests, middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Get("/municipalities", h.handleMunicipalities)
		r.Get("/years", h.handleYears)
		r.Get("/executive", h.handleExecutive)
		r.Get("/indicator", h.handleIndicator)
		r.Get("/ranking", h.handleRanking)
		r.Post("/simulate", h.handleSimulate)
		r.Get("/chart/trend.png", h.handleTrendChart)
		r.Get("/chart/revenue.png", h.handleRevenueChart)
		r.Get("/export/ranking.csv", h.handleRankingExport(constants.OutputFormatCSV))
		r.Get("/export/ranking.xlsx", h.handleRankingExport(outputFormatXLSX))
	})

	return r
}

const outputFormatXLSX = "xlsx"

var errInvalidParameter = errors.New("invalid parameter")

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{
		"municipalities": h.table.Municipalities(),
	})
}

func (h *handler) handleYears(w http.ResponseWriter, r *http.Request) {
	years := h.table.Years()
	transfers := make([]int, len(years))
	for i, y := range years {
		transfers[i] = revenue.TransferYear(y)
	}
	h.writeJSON(w, http.StatusOK, map[string][]int{
		"referenceYears": years,
		"transferYears":  transfers,
	})
}

func (h *handler) handleExecutive(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExecutive"
	year, compareYear, err := intParams(r, "year", "compareYear")
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}

	view, err := dashboard.Executive(h.logger, h.table, r.URL.Query().Get("municipality"), year, compareYear)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) handleIndicator(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIndicator"
	year, _, err := intParams(r, "year", "")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	view, err := dashboard.Indicator(h.logger, h.table, r.URL.Query().Get("municipality"), year)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRanking"
	limit, _, err := intParams(r, "limit", "")
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	table, err := h.rankingTable(r)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	table.Entries = ranking.Top(table.Entries, limit)
	h.writeJSON(w, http.StatusOK, rankingResponse{
		RankingTable: table,
		Summary:      ranking.Summarize(h.table.Year(table.ReferenceYear), table.Field),
	})
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid simulation request: %v", err), op)
		return
	}
	if len(req.Scenarios) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "at least one scenario is required", op)
		return
	}

	view, err := dashboard.Simulate(h.logger, h.table, req.Municipality, req.Year, req.Scenarios)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}

	h.logger.Info("simulation completed",
		zap.String("op", op),
		zap.String("municipality", view.Municipality),
		zap.Int("scenarios", len(view.Scenarios)),
		zap.Duration("duration", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTrendChart"
	year, _, err := intParams(r, "year", "")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	view, err := dashboard.Indicator(h.logger, h.table, r.URL.Query().Get("municipality"), year)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	h.writeRendered(w, op, contentTypePNG, "", func(out io.Writer) error {
		return chart.Trend(out, view)
	})
}

func (h *handler) handleRevenueChart(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRevenueChart"
	year, _, err := intParams(r, "year", "")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := h.table.Require(dataset.FieldCompositeIndex, dataset.FieldEstimatedRevenue); err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	year, err = dashboard.ResolveYear(h.table, year)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}

	highlight := ""
	if name := r.URL.Query().Get("municipality"); name != "" {
		if highlight, err = h.table.Resolve(name); err != nil {
			h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
			return
		}
	}

	model, err := revenue.FitYear(h.table, year)
	if err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}
	observations := revenue.Observations(h.table.Year(year))
	h.writeRendered(w, op, contentTypePNG, "", func(out io.Writer) error {
		return chart.RevenueFit(out, model, observations, highlight)
	})
}

func (h *handler) handleRankingExport(format string) http.HandlerFunc {
	op := "server.handleRankingExport"
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := h.rankingTable(r)
		if err != nil {
			h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
			return
		}

		filename := fmt.Sprintf("ranking-%s-%d.%s", table.Column, table.ReferenceYear, format)
		if format == outputFormatXLSX {
			h.writeRendered(w, op, contentTypeXLSX, filename, func(out io.Writer) error {
				return output.XlsxFormat(out, table)
			})
			return
		}
		h.writeRendered(w, op, contentTypeCSV, filename, func(out io.Writer) error {
			return output.CsvFormat(out, table)
		})
	}
}

func (h *handler) rankingTable(r *http.Request) (output.RankingTable, error) {
	year, _, err := intParams(r, "year", "")
	if err != nil {
		return output.RankingTable{}, err
	}

	field := dataset.FieldCompositeIndex
	if metric := r.URL.Query().Get("metric"); metric != "" {
		if field, err = dataset.ParseField(metric); err != nil {
			return output.RankingTable{}, err
		}
	}
	if err := h.table.Require(field); err != nil {
		return output.RankingTable{}, err
	}
	if year, err = dashboard.ResolveYear(h.table, year); err != nil {
		return output.RankingTable{}, err
	}
	return output.NewRankingTable(h.table, field, year), nil
}

// writeRendered buffers the rendering so a failure can still be reported as
// a JSON error.
func (h *handler) writeRendered(w http.ResponseWriter, op, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.respondErrorWithOp(w, statusOf(err), err.Error(), op)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("failed to write response",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// intParams parses two optional integer query parameters. An empty name is
// skipped.
func intParams(r *http.Request, first, second string) (int, int, error) {
	var out [2]int
	for i, name := range []string{first, second} {
		if name == "" {
			continue
		}
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %s %q", errInvalidParameter, name, raw)
		}
		out[i] = v
	}
	return out[0], out[1], nil
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	var missing *measure.MissingColumnError
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, measure.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, measure.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrUnknownField), errors.Is(err, errInvalidParameter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
