package fileshare

import (
	"fmt"
	"time"
)

// ExpiringSoonThreshold is the remaining lifetime under which the UI
// flags a file as about to disappear.
const ExpiringSoonThreshold = time.Minute

// TimeUntilExpiry returns the remaining lifetime of a record, clamped
// at zero once the expiry instant has passed.
func TimeUntilExpiry(expiresAt time.Time) time.Duration {
	remaining := time.Until(expiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatExpiryTime renders a remaining duration as a countdown such as
// "4m 30s" or "45s". Zero and negative durations render as "expired".
func FormatExpiryTime(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}

	seconds := int(d.Round(time.Second).Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// ExpiringSoon reports whether the remaining lifetime is below the
// urgency threshold.
func ExpiringSoon(d time.Duration) bool {
	return d > 0 && d < ExpiringSoonThreshold
}
