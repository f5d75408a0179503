// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation label values for datastore metrics.
const (
	OpUserCreate     = "user_create"
	OpUserGet        = "user_get"
	OpSessionCreate  = "session_create"
	OpSessionGet     = "session_get"
	OpSessionDelete  = "session_delete"
	OpSessionPurge   = "session_purge"
	OpDiagnosisSave  = "diagnosis_save"
	OpDiagnosisList  = "diagnosis_list"
	OpDiagnosisGet   = "diagnosis_get"
	OpTransaction    = "transaction"
	OpTxCommitted    = "committed"
	OpTxRollback     = "rollback"
	OpTxCancelled    = "cancelled"
	OpStagingHit     = "hit"
	OpStagingMiss    = "miss"
	OpStagingStore   = "store"
	OpStagingEvicted = "evicted"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms starts 1ms histograms
	BucketStart1ms = 0.001
	// BucketStart10ms starts 10ms histograms, for network calls
	BucketStart10ms = 0.01
	// BucketStart64B starts byte size histograms
	BucketStart64B = 64.0
	// BucketStart1KB starts upload size histograms
	BucketStart1KB = 1024.0

	BucketFactor2 = 2
	BucketFactor4 = 4

	BucketCount8  = 8
	BucketCount10 = 10
	BucketCount12 = 12
	BucketCount15 = 15
)

// ShutdownTimeout bounds graceful shutdown of metric consumers.
const ShutdownTimeout = 5 * time.Second
