package observability

import "github.com/tphakala/mediscan/internal/logger"

var log = logger.Global().Module("metrics")
