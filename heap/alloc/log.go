package alloc

import (
	"os"

	"github.com/joshuapare/heapkit/internal/logger"
)

// Runtime debug flag for allocation logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// SetLogAlloc toggles debug logging of allocation failures and fallback traffic.
func SetLogAlloc(on bool) { logAlloc = on }

func logOOM(s Strategy, l Layout) {
	if logAlloc {
		logger.Debug("allocation failed", "strategy", s.String(), "size", l.Size, "align", l.Align)
	}
}
