package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
	"github.com/redhat-eets/glpi-helper-scripts/internal/metrics"
)

type fakeSource struct {
	overview metrics.Overview
	err      error
}

func (f fakeSource) Overview(context.Context) (metrics.Overview, error) {
	return f.overview, f.err
}

func TestCollector(t *testing.T) {
	collector := metrics.NewCollector(fakeSource{overview: metrics.Overview{
		Machines:           12,
		Reservable:         9,
		ActiveReservations: 4,
	}})

	expected := `
# HELP glpi_machines_reservable Number of computers wired into the reservation system and active.
# TYPE glpi_machines_reservable gauge
glpi_machines_reservable 9
# HELP glpi_machines_total Number of computers in the asset database.
# TYPE glpi_machines_total gauge
glpi_machines_total 12
# HELP glpi_reservations_active Number of reservations whose window has not ended.
# TYPE glpi_reservations_active gauge
glpi_reservations_active 4
`
	if err := testutil.CollectAndCompare(collector, strings.NewReader(expected)); err != nil {
		t.Errorf("CollectAndCompare: %v", err)
	}
}

func TestCollector_SourceErrorInvalidatesScrape(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(metrics.NewCollector(fakeSource{err: errors.New("glpi down")}))
	if _, err := reg.Gather(); err == nil {
		t.Error("expected gather error when the source fails")
	}
}

func TestGLPISource_Overview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/initSession", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"session_token": "sess"}`)
	})
	mux.HandleFunc("/Computer/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}, {"id": 3, "name": "c"}]`)
	})
	mux.HandleFunc("/ReservationItem/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "itemtype": "Computer", "items_id": 1, "is_active": 1},
			{"id": 2, "itemtype": "Computer", "items_id": 2, "is_active": 0},
			{"id": 3, "itemtype": "Monitor", "items_id": 9, "is_active": 1}
		]`)
	})
	mux.HandleFunc("/Reservation/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 1, "reservationitems_id": 1, "users_id": 1, "begin": "2026-09-01 08:00:00", "end": "2026-09-05 18:00:00"},
			{"id": 2, "reservationitems_id": 1, "users_id": 2, "begin": "2026-08-01 08:00:00", "end": "2026-08-05 18:00:00"}
		]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := glpi.NewClient(srv.URL, "secret", false)
	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	source := metrics.GLPISource{
		Client: client,
		Now: func() time.Time {
			return time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
		},
	}
	got, err := source.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	want := metrics.Overview{Machines: 3, Reservable: 1, ActiveReservations: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
