package instance

import "os"

// GetID names this worker process in lock owners and logs. PAINTSIP_WORKER_ID
// wins, then the hostname.
func GetID() string {
	if id := os.Getenv("PAINTSIP_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
