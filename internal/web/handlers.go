package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"monthcal/internal/calendar"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/schedule"
)

const maxBodyBytes = 10 << 20

// dayDTO is one cell of the /api/month grid.
type dayDTO struct {
	Date           string        `json:"date"`
	IsCurrentMonth bool          `json:"isCurrentMonth"`
	IsToday        bool          `json:"isToday"`
	Events         []model.Event `json:"events"`
}

type monthResponse struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	TimeZone string   `json:"timezone"`
	Days     []dayDTO `json:"days"`
}

type moveRequest struct {
	Date         string `json:"date"`
	EntireSeries bool   `json:"entireSeries"`
}

type conflictResponse struct {
	Conflict bool `json:"conflict"`
}

type conflictError struct {
	Error         string `json:"error"`
	ConflictsWith string `json:"conflictsWith,omitempty"`
}

func filterFromQuery(r *http.Request) schedule.Filter {
	q := r.URL.Query()
	return schedule.Filter{
		Term:       q.Get("q"),
		Categories: schedule.ParseCategories(q.Get("category")),
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events(r.Context(), filterFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	created, err := s.svc.Add(r.Context(), ev)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if ev.ID != "" && ev.ID != id {
		writeError(w, http.StatusBadRequest, "event id does not match path")
		return
	}
	ev.ID = id

	updated, err := s.svc.Update(r.Context(), ev)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid move request: "+err.Error())
		return
	}
	date, err := parseDate(req.Date, s.svc.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	moved, err := s.svc.Move(r.Context(), r.PathValue("id"), date, req.EntireSeries)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// handleMonth returns the 42-cell grid.
//
// GET /api/month?year=2024&month=2&q=standup&category=work,meeting
//   - year, month: default to the current month
//   - q:           case-insensitive title/description search
//   - category:    comma-separated category filter
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month := s.svc.Today()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = time.Month(n)
	}

	days, err := s.svc.Month(r.Context(), year, month, filterFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, monthResponse{
		Year:     year,
		Month:    int(month),
		TimeZone: s.svc.Location().String(),
		Days:     toDayDTOs(days),
	})
}

func toDayDTOs(days []calendar.Day) []dayDTO {
	out := make([]dayDTO, len(days))
	for i, d := range days {
		out[i] = dayDTO{
			Date:           d.Date.Format(time.DateOnly),
			IsCurrentMonth: d.IsCurrentMonth,
			IsToday:        d.IsToday,
			Events:         d.Events,
		}
	}
	return out
}

// handleConflicts probes a candidate event without storing it.
//
// POST /api/conflicts?exclude=<id>
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	ev, ok := readEvent(w, r)
	if !ok {
		return
	}
	conflict, err := s.svc.Conflicts(r.Context(), ev, r.URL.Query().Get("exclude"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflictResponse{Conflict: conflict})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	name := fmt.Sprintf("calendar-events-%s.json", time.Now().In(s.svc.Location()).Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events(r.Context(), schedule.Filter{})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = w.Write(ics.Encode(events, time.Now()))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(data) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "import file too large")
		return
	}
	n, err := s.svc.Import(r.Context(), data)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusServiceUnavailable, "no subscriptions configured")
		return
	}
	if err := s.refresh.Run(r.Context()); err != nil {
		appLog.Error("manual refresh failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readEvent decodes a single event from the request body, writing a 400 on
// failure.
func readEvent(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return model.Event{}, false
	}
	ev, err := model.ParseEvent(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Event{}, false
	}
	return ev, true
}

// parseDate accepts a calendar date (YYYY-MM-DD, read in loc) or an RFC
// 3339 instant.
func parseDate(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
}

// writeServiceError maps service errors onto HTTP statuses. Conflicts carry
// the service's user-facing message.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var ce *schedule.ConflictError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, conflictError{Error: ce.Error(), ConflictsWith: ce.With.ID})
	case errors.Is(err, schedule.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
