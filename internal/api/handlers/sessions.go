package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"geosort-service/internal/api/dto"
	"geosort-service/internal/domain"
	"geosort-service/internal/mapview"
	"geosort-service/internal/platform/obs"
	"geosort-service/internal/services"
	"geosort-service/internal/session"
	"geosort-service/internal/sheet"
)

const previewRows = 20

// SessionHandler exposes the upload, geocode, optimize, export and map workflow.
type SessionHandler struct {
	Store          *session.Store
	ExportFileName string
	MaxUploadBytes int64
}

// Create parses an upload into a new session. The file is taken from the multipart
// field "file", or from the raw body with its name in ?filename=.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	name, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.Store.Create(r.Context())
	if err != nil {
		zap.L().Error("create session failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	table, err := sess.Pipeline.Load(name, data)
	if err != nil {
		h.Store.Delete(sess.ID)
		if errors.Is(err, sheet.ErrParse) || errors.Is(err, sheet.ErrUnsupportedFormat) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		zap.L().Error("load upload failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.CreateSessionResponse{
		ID:       sess.ID,
		Stage:    domain.StageParsed,
		FileName: name,
		Header:   table.Header(),
		Rows:     len(table.Data()),
		Preview:  preview(table.Data()),
	}
	writeJSON(w, r, http.StatusCreated, res)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.SessionResponse{ID: sess.ID, State: sess.Pipeline.Snapshot()})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.Store.Delete(r.PathValue("id")) {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	report, err := sess.Pipeline.Geocode(r.Context())
	if err != nil {
		writePassError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.GeocodeResponse{Stage: sess.Pipeline.Stage(), Report: report})
}

func (h *SessionHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	report, err := sess.Pipeline.Optimize(r.Context())
	if err != nil {
		writePassError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.OptimizeResponse{Stage: sess.Pipeline.Stage(), Report: report})
}

// Export downloads the sorted table as an xlsx attachment.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := sess.Pipeline.Export(&buf); err != nil {
		if errors.Is(err, services.ErrNotReady) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		zap.L().Error("export failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	fileName := h.ExportFileName
	if fileName == "" {
		fileName = sheet.DefaultFileName
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zap.L().Warn("export write failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
	}
}

// Map renders the sorted route as a Leaflet page. No routed points yields 204.
func (h *SessionHandler) Map(w http.ResponseWriter, r *http.Request) {
	points, ok := h.points(w, r)
	if !ok {
		return
	}
	if len(points) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := mapview.RenderHTML(&buf, "Route", points); err != nil {
		zap.L().Error("render map failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *SessionHandler) MapGeoJSON(w http.ResponseWriter, r *http.Request) {
	points, ok := h.points(w, r)
	if !ok {
		return
	}

	data, err := mapview.GeoJSON(points)
	if err != nil {
		zap.L().Error("encode geojson failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *SessionHandler) points(w http.ResponseWriter, r *http.Request) ([]mapview.Point, bool) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return nil, false
	}

	state := sess.Pipeline.Snapshot()
	if state.Stage != domain.StageSorted {
		writeError(w, r, http.StatusConflict, services.ErrNotReady.Error())
		return nil, false
	}
	return mapview.Points(state.Sorted), true
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := h.Store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// writePassError maps a failed geocode or optimize pass to a status code.
func writePassError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrNotReady):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrOptimization):
		writeError(w, r, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "request cancelled")
	default:
		zap.L().Error("pipeline pass failed", zap.String("req_id", obs.RequestID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func readUpload(r *http.Request) (string, []byte, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		f, fh, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", nil, err
		}
		return fh.Filename, data, nil
	}

	name := strings.TrimSpace(r.URL.Query().Get("filename"))
	if name == "" {
		name = "upload"
	}
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}

func preview(rows []domain.Row) domain.Table {
	n := min(len(rows), previewRows)
	out := make(domain.Table, 0, n)
	for _, r := range rows[:n] {
		out = append(out, r.Clone())
	}
	return out
}
