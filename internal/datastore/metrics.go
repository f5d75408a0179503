package datastore

import "github.com/tphakala/mediscan/internal/observability/metrics"

// Metrics is the datastore metric set.
type Metrics = metrics.DatastoreMetrics
