package cms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsTotal counts committed actions by model kind, action and result.
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_commits_total",
		Help: "Total model actions run through the commit pipeline",
	}, []string{"kind", "action", "result"})

	// CommitDuration tracks how long a commit takes end to end.
	CommitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_commit_duration_seconds",
		Help:    "Commit pipeline duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"kind"})

	// UUIDLookupsTotal counts UUID resolutions by scheme and where the
	// model was found: direct, cache, stale, index or miss.
	UUIDLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_uuid_lookups_total",
		Help: "Total UUID resolutions by scheme and source",
	}, []string{"scheme", "source"})
)
