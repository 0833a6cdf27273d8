package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"barberq/internal/database"
	"barberq/internal/models"
	"barberq/internal/schedule"
	"barberq/internal/service"
)

const dateLayout = "2006-01-02"

// queueEntry is a customer augmented with the derived fields the
// front-desk screen renders directly.
type queueEntry struct {
	models.Customer
	WaitMinutes      int    `json:"wait_minutes"`
	RemainingSeconds int    `json:"remaining_seconds"`
	WhatsAppLink     string `json:"whatsapp_link,omitempty"`
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	barberID := strings.TrimSpace(r.URL.Query().Get("barber_id"))
	if barberID == "" {
		writeError(w, http.StatusBadRequest, "barber_id is required")
		return
	}

	day, err := parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	excludeID := strings.TrimSpace(r.URL.Query().Get("exclude"))

	slots, err := s.slots.Slots(r.Context(), barberID, day, excludeID)
	if err != nil {
		s.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  day.Format(dateLayout),
		"slots": slots,
	})
}

// handleQueue serves GET /api/v1/queue/{barber_id} and the SSE stream
// at /api/v1/queue/{barber_id}/events.
func (s *HTTPServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/queue/"), "/")
	parts := strings.Split(rest, "/")

	barberID := parts[0]
	if barberID == "" {
		writeError(w, http.StatusBadRequest, "barber_id is required")
		return
	}

	if len(parts) == 2 && parts[1] == "events" {
		s.streamQueueEvents(w, r, barberID)
		return
	}
	if len(parts) > 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	customers, err := s.queue.Queue(r.Context(), barberID)
	if err != nil {
		s.mapError(w, err)
		return
	}

	now := time.Now()
	entries := make([]queueEntry, 0, len(customers))
	for _, c := range customers {
		entry := queueEntry{Customer: c}
		switch c.Status {
		case models.StatusWaiting:
			if c.Position != nil {
				entry.WaitMinutes = schedule.PositionWaitMinutes(*c.Position, s.waitPerCustomer)
			}
		case models.StatusInService:
			entry.RemainingSeconds = schedule.RemainingSeconds(c.EstimatedEndTime, now)
		}
		if s.whatsapp != nil {
			entry.WhatsAppLink = s.whatsapp.Link(c.Phone, fmt.Sprintf("Olá %s, é a sua vez!", c.FullName))
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"barber_id": barberID,
		"queue":     entries,
	})
}

func (s *HTTPServer) streamQueueEvents(w http.ResponseWriter, r *http.Request, barberID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if s.subscriber == nil {
		writeError(w, http.StatusServiceUnavailable, "change stream unavailable")
		return
	}

	sub, err := s.subscriber.Subscribe(r.Context(), barberID)
	if err != nil {
		s.mapError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", barberID)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case id, open := <-sub.C:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: queue_changed\ndata: %s\n\n", id)
			flusher.Flush()
		}
	}
}

func (s *HTTPServer) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := s.queue.Register(r.Context(), &reg)
	if err != nil {
		s.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

// handleCustomer routes PATCH {id}/status, PATCH {id}/schedule and
// DELETE {id}.
func (s *HTTPServer) handleCustomer(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/customers/"), "/")
	parts := strings.Split(rest, "/")

	id := parts[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, "customer id is required")
		return
	}

	switch {
	case r.Method == http.MethodDelete && len(parts) == 1:
		if err := s.queue.Remove(r.Context(), id); err != nil {
			s.mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	case r.Method == http.MethodPatch && len(parts) == 2 && parts[1] == "status":
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		customer, err := s.queue.UpdateStatus(r.Context(), id, body.Status)
		if err != nil {
			s.mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)

	case r.Method == http.MethodPatch && len(parts) == 2 && parts[1] == "schedule":
		var body struct {
			ScheduledTime time.Time `json:"scheduled_time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ScheduledTime.IsZero() {
			writeError(w, http.StatusBadRequest, "scheduled_time is required")
			return
		}
		customer, err := s.queue.Reschedule(r.Context(), id, body.ScheduledTime)
		if err != nil {
			s.mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleBarbers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	barbers, err := s.catalog.Barbers(r.Context())
	if err != nil {
		s.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"barbers": barbers})
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	services, err := s.catalog.Services(r.Context())
	if err != nil {
		s.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export unavailable")
		return
	}

	day, err := parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	path, err := s.exporter.ExportDay(r.Context(), day)
	if err != nil {
		s.mapError(w, err)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseDay interprets an empty date as today.
func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return time.ParseInLocation(dateLayout, raw, time.Local)
}

func (s *HTTPServer) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrPastTime),
		errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
