package instance

import (
	"os"
	"strings"
)

// ID names the running process in logs. DYNO wins over WORKER_ID; both
// unset falls back to "<service>-local".
func ID(service string) string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if service == "" {
		service = "farmfresh"
	}
	return service + "-local"
}
