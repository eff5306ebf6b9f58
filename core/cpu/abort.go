package cpu

import (
	"log/slog"
	"os"
)

// defaultAbort is the fatal path for a global queue that has exceeded a
// configured MaxLen. The scheduler has no back-pressure story at this layer:
// a submitter that cannot be queued is a configuration error, not a runtime
// condition to recover from.
func defaultAbort() {
	slog.Error("cpu: global queue capacity exhausted, aborting")
	os.Exit(1)
}
