package reportshandler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"pulse/internal/domain/filters"
	"pulse/internal/domain/reports"
	"pulse/internal/domain/views"
	"pulse/internal/transport/http/api"
	"pulse/internal/transport/http/middleware"
	"pulse/internal/transport/http/shared"
)

type exportFormat struct {
	contentType string
	write       func(*bytes.Buffer, reports.State) error
}

var exportFormats = map[string]exportFormat{
	"pdf": {
		contentType: "application/pdf",
		write:       func(b *bytes.Buffer, s reports.State) error { return reports.WritePDF(b, s) },
	},
	"xlsx": {
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write:       func(b *bytes.Buffer, s reports.State) error { return reports.WriteXLSX(b, s) },
	},
}

type Handler struct {
	Sessions middleware.SessionStore
	Log      logrus.FieldLogger
}

func NewHandler(sessions middleware.SessionStore, log logrus.FieldLogger) *Handler {
	return &Handler{Sessions: sessions, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(h.Sessions))
		r.Route("/views/{view}/charts", func(r chi.Router) {
			r.Get("/", h.handleListCharts)
			r.Get("/{chart}", h.handleGetChart)
			r.Get("/{chart}/export.{format}", h.handleExportChart)
		})
	})
}

func chartView(w http.ResponseWriter, r *http.Request) (*views.View, bool) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	kind, err := filters.ParseKind(chi.URLParam(r, "view"))
	if err == nil {
		var v *views.View
		if v, err = s.View(kind); err == nil {
			return v, true
		}
	}
	shared.FailFromError(w, requestID, err)
	return nil, false
}

func (h *Handler) handleListCharts(w http.ResponseWriter, r *http.Request) {
	v, ok := chartView(w, r)
	if !ok {
		return
	}
	api.Success(w, v.State().Charts, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetChart(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v, ok := chartView(w, r)
	if !ok {
		return
	}
	state, err := v.Chart(reports.ChartID(chi.URLParam(r, "chart")))
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, state, requestID)
}

func (h *Handler) handleExportChart(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v, ok := chartView(w, r)
	if !ok {
		return
	}
	format, ok := exportFormats[chi.URLParam(r, "format")]
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "export format must be pdf or xlsx", requestID)
		return
	}
	state, err := v.Chart(reports.ChartID(chi.URLParam(r, "chart")))
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}

	var buf bytes.Buffer
	if err := format.write(&buf, state); err != nil {
		h.Log.WithError(err).WithField("chart", state.ID).Warn("chart export failed")
		shared.FailFromError(w, requestID, err)
		return
	}
	filename := fmt.Sprintf("%s-%s.%s", v.Kind(), state.ID, chi.URLParam(r, "format"))
	api.Download(w, format.contentType, filename, buf.Bytes())
}
