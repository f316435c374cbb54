package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder collects run-level counters. The binary runs as a cron batch job, so
// metrics are pushed to a Pushgateway at end of run rather than scraped.
type Recorder struct {
	registry *prometheus.Registry

	GroupsCreated   prometheus.Counter
	MembersAdded    prometheus.Counter
	MembersRemoved  prometheus.Counter
	FoldersCreated  prometheus.Counter
	ItemsCloned     prometheus.Counter
	ItemsReassigned prometheus.Counter
	ClonesSkipped   prometheus.Counter
	RemoteFailures  prometheus.Counter

	runDuration prometheus.Gauge
}

// New constructs a Recorder backed by its own registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursesync",
			Name:      name,
			Help:      help,
		})
		r.registry.MustRegister(c)
		return c
	}

	r.GroupsCreated = counter("groups_created_total", "GIS groups created this run.")
	r.MembersAdded = counter("members_added_total", "Users added to GIS groups this run.")
	r.MembersRemoved = counter("members_removed_total", "Users removed from GIS groups this run.")
	r.FoldersCreated = counter("folders_created_total", "Folders provisioned this run.")
	r.ItemsCloned = counter("items_cloned_total", "Content items cloned this run.")
	r.ItemsReassigned = counter("items_reassigned_total", "Content items reassigned this run.")
	r.ClonesSkipped = counter("clones_skipped_total", "Clone requests skipped by policy this run.")
	r.RemoteFailures = counter("remote_failures_total", "Non-fatal remote call failures this run.")

	r.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coursesync",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run.",
	})
	r.registry.MustRegister(r.runDuration)

	return r
}

// ObserveRunDuration records the total run duration.
func (r *Recorder) ObserveRunDuration(d time.Duration) {
	r.runDuration.Set(d.Seconds())
}

// Push sends the collected metrics to a Pushgateway. A no-op when no gateway is
// configured.
func (r *Recorder) Push(gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	return push.New(gatewayURL, job).Gatherer(r.registry).Push()
}
