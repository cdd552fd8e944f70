package instance

import "os"

// GetID returns the process instance identifier used to tag logs.
func GetID() string {
	for _, key := range []string{"INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
