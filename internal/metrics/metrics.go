// Package metrics exposes inventory counts as Prometheus metrics. The
// collector queries the asset database on each scrape, so the exporter
// never serves stale numbers.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redhat-eets/glpi-helper-scripts/internal/glpi"
)

// Overview is one scrape of inventory counts.
type Overview struct {
	Machines           int
	Reservable         int
	ActiveReservations int
}

// Source produces an Overview on demand.
type Source interface {
	Overview(ctx context.Context) (Overview, error)
}

// inventoryCollector is a custom Prometheus collector that asks its Source
// for fresh counts on each scrape.
type inventoryCollector struct {
	source  Source
	timeout time.Duration

	machinesDesc     *prometheus.Desc
	reservableDesc   *prometheus.Desc
	reservationsDesc *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source Source) prometheus.Collector {
	return &inventoryCollector{
		source:  source,
		timeout: 30 * time.Second,
		machinesDesc: prometheus.NewDesc(
			"glpi_machines_total",
			"Number of computers in the asset database.",
			nil, nil,
		),
		reservableDesc: prometheus.NewDesc(
			"glpi_machines_reservable",
			"Number of computers wired into the reservation system and active.",
			nil, nil,
		),
		reservationsDesc: prometheus.NewDesc(
			"glpi_reservations_active",
			"Number of reservations whose window has not ended.",
			nil, nil,
		),
	}
}

func (c *inventoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.machinesDesc
	ch <- c.reservableDesc
	ch <- c.reservationsDesc
}

func (c *inventoryCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	overview, err := c.source.Overview(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.machinesDesc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.machinesDesc, prometheus.GaugeValue, float64(overview.Machines))
	ch <- prometheus.MustNewConstMetric(c.reservableDesc, prometheus.GaugeValue, float64(overview.Reservable))
	ch <- prometheus.MustNewConstMetric(c.reservationsDesc, prometheus.GaugeValue, float64(overview.ActiveReservations))
}

// NewRegistry builds a registry with the inventory collector plus the
// standard Go runtime and process collectors.
func NewRegistry(source Source) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewCollector(source),
	)
	return reg
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// GLPISource counts inventory through an open API client.
type GLPISource struct {
	Client *glpi.Client
	// Now lets tests pin the clock. Nil means time.Now.
	Now func() time.Time
}

// Overview implements Source.
func (s GLPISource) Overview(ctx context.Context) (Overview, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	computers, err := s.Client.Computers(ctx)
	if err != nil {
		return Overview{}, err
	}
	items, err := s.Client.ReservationItems(ctx)
	if err != nil {
		return Overview{}, err
	}
	reservations, err := s.Client.Reservations(ctx)
	if err != nil {
		return Overview{}, err
	}

	overview := Overview{Machines: len(computers)}
	for _, item := range items {
		if item.ItemType == "Computer" && item.IsActive == 1 {
			overview.Reservable++
		}
	}
	for _, r := range reservations {
		end, err := glpi.ParseTime(r.End)
		if err != nil {
			continue
		}
		if end.After(now) {
			overview.ActiveReservations++
		}
	}
	return overview, nil
}
