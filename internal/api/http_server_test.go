package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"barberq/internal/config"
	"barberq/internal/database"
	"barberq/internal/events"
	"barberq/internal/export"
	"barberq/internal/messaging"
	"barberq/internal/models"
	"barberq/internal/repository"
	"barberq/internal/schedule"
	"barberq/internal/service"
)

func testGrid() schedule.Grid {
	return schedule.Grid{
		StartMinutes: 8 * 60,
		EndMinutes:   19*60 + 30,
		Interval:     30,
		Peak: schedule.PeakWindows{
			Morning:   schedule.PeakWindow{Start: 9, End: 11},
			Afternoon: schedule.PeakWindow{Start: 16, End: 19},
		},
		WaitPerCustomer: 5,
	}
}

func newTestServer(t *testing.T) (*HTTPServer, *database.DB) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	catalog := service.NewCatalogService(db, nil)
	err = catalog.Seed(t.Context(),
		[]models.Barber{{ID: "barber-1", Name: "Marcos"}},
		[]models.Service{{ID: "service-1", Name: "Corte", Duration: 30}},
	)
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	notifier := events.NewLocalNotifier()
	queue := service.NewQueueService(
		db, nil, nil, notifier, repository.NewMemoryLimitStore(),
		testGrid(), 45, 0, nil,
	)

	cfg := config.APIConfig{Enabled: true, Port: 0}
	srv := NewHTTPServer(
		cfg, queue, catalog, queue,
		export.NewExporter(db, t.TempDir(), nil),
		notifier, messaging.NewWhatsApp("55"), 5, nil,
	)
	return srv, db
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func futureSlot(t *testing.T) time.Time {
	t.Helper()
	tomorrow := time.Now().AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, time.Local)
}

func TestRegisterWalkIn(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName: "João Silva",
		Phone:    "+55 11 91234-5678",
		BarberID: "barber-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var customer models.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if customer.Status != models.StatusWaiting {
		t.Fatalf("expected waiting status, got %q", customer.Status)
	}
	if customer.Position == nil || *customer.Position != 1 {
		t.Fatalf("expected position 1, got %v", customer.Position)
	}
	if customer.ScheduledTime != nil {
		t.Fatalf("walk-in must not carry a scheduled time")
	}
}

func TestRegisterValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName: "X",
		Phone:    "+55 11 91234-5678",
		BarberID: "barber-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRegisterSlotConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	slot := futureSlot(t)
	reg := models.Registration{
		FullName:      "João Silva",
		Phone:         "+55 11 91234-5678",
		BarberID:      "barber-1",
		ScheduledTime: &slot,
	}

	resp := postJSON(t, ts.URL+"/api/v1/customers", reg)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	reg.FullName = "Pedro Souza"
	resp = postJSON(t, ts.URL+"/api/v1/customers", reg)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on taken slot, got %d", resp.StatusCode)
	}
}

func TestRegisterUnknownBarber(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName: "João Silva",
		Phone:    "+55 11 91234-5678",
		BarberID: "ghost",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSlots(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	slot := futureSlot(t)
	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName:      "João Silva",
		Phone:         "+55 11 91234-5678",
		BarberID:      "barber-1",
		ScheduledTime: &slot,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	url := fmt.Sprintf("%s/api/v1/slots?barber_id=barber-1&date=%s", ts.URL, slot.Format("2006-01-02"))
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var body struct {
		Slots []schedule.Slot `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Slots) != 23 {
		t.Fatalf("expected 23 slots, got %d", len(body.Slots))
	}

	taken := schedule.FormatLabel(slot)
	found := false
	for _, s := range body.Slots {
		if s.Label == taken {
			found = true
			if s.Available {
				t.Fatalf("booked slot %s must not be available", taken)
			}
		}
	}
	if !found {
		t.Fatalf("slot %s missing from grid", taken)
	}
}

func TestSlotsRequiresBarber(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/v1/slots")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestQueueWithDerivedFields(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for _, name := range []string{"João Silva", "Pedro Souza"} {
		resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
			FullName: name,
			Phone:    "+55 11 91234-5678",
			BarberID: "barber-1",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/api/v1/queue/barber-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var body struct {
		Queue []queueEntry `json:"queue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Queue) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(body.Queue))
	}
	if body.Queue[0].WaitMinutes != 5 {
		t.Fatalf("position 1 should wait 5 minutes, got %d", body.Queue[0].WaitMinutes)
	}
	if body.Queue[1].WaitMinutes != 10 {
		t.Fatalf("position 2 should wait 10 minutes, got %d", body.Queue[1].WaitMinutes)
	}
	if body.Queue[0].WhatsAppLink == "" {
		t.Fatalf("expected a whatsapp link")
	}
}

func TestStatusTransition(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName: "João Silva",
		Phone:    "+55 11 91234-5678",
		BarberID: "barber-1",
	})
	var customer models.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	resp.Body.Close()

	patch := func(path string, payload any) *http.Response {
		body, _ := json.Marshal(payload)
		req, err := http.NewRequest(http.MethodPatch, ts.URL+path, bytes.NewReader(body))
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		r, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return r
	}

	resp = patch("/api/v1/customers/"+customer.ID+"/status", map[string]string{"status": models.StatusInService})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var updated models.Customer
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if updated.Status != models.StatusInService {
		t.Fatalf("expected in-service, got %q", updated.Status)
	}
	if updated.Position != nil {
		t.Fatalf("in-service customer must not hold a position")
	}
	if updated.StartTime == nil || updated.EstimatedEndTime == nil {
		t.Fatalf("in-service customer must carry service times")
	}

	bad := patch("/api/v1/customers/"+customer.ID+"/status", map[string]string{"status": "napping"})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on unknown status, got %d", bad.StatusCode)
	}
}

func TestRemoveCustomer(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName: "João Silva",
		Phone:    "+55 11 91234-5678",
		BarberID: "barber-1",
	})
	var customer models.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/customers/"+customer.ID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/customers/"+customer.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", resp.StatusCode)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/v1/barbers")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var barbers struct {
		Barbers []models.Barber `json:"barbers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&barbers); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(barbers.Barbers) != 1 {
		t.Fatalf("expected 1 barber, got %d", len(barbers.Barbers))
	}

	resp2, err := http.Get(ts.URL + "/api/v1/services")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp2.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/v1/customers", models.Registration{
		FullName: "João Silva",
		Phone:    "+55 11 91234-5678",
		BarberID: "barber-1",
	})
	resp.Body.Close()

	url := fmt.Sprintf("%s/api/v1/export?date=%s", ts.URL, time.Now().Format("2006-01-02"))
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); !bytes.Contains([]byte(got), []byte(".xlsx")) {
		t.Fatalf("expected xlsx attachment, got %q", got)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}
