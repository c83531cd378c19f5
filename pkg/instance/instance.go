// Package instance identifies the running worker replica.
package instance

import (
	"os"
	"strings"
)

const defaultWorkerID = "worker-0"

// GetID returns the replica identifier used in worker logs. Deployments
// set WORKER_ID per replica; local runs get the static default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("WORKER_ID")); id != "" {
		return id
	}
	return defaultWorkerID
}
