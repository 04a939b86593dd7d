package checks

import "time"

const defaultProbeTimeout = 2 * time.Second

func chooseTimeout(provided time.Duration) time.Duration {
	if provided <= 0 {
		return defaultProbeTimeout
	}
	return provided
}
