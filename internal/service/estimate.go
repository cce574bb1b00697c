package service

import (
	"fmt"
	"math"
	"time"
)

// EstimateTimeRemaining returns a human-readable estimate until full charge.
// If at least one percentage point has been gained since the session started,
// the charge rate is extrapolated linearly; otherwise it falls back to the
// scheduled booking end. Best effort, not a contract with the hardware.
func EstimateTimeRemaining(completed bool, startBattery, currentBattery int, startedAt, scheduledEnd, now time.Time) string {
	if completed {
		return "0"
	}

	elapsed := now.Sub(startedAt).Seconds()
	gained := currentBattery - startBattery
	if gained > 0 && elapsed > 0 {
		rate := float64(gained) / elapsed
		remaining := float64(100-currentBattery) / rate
		return formatRemaining(time.Duration(remaining * float64(time.Second)))
	}

	if scheduledEnd.IsZero() {
		return formatRemaining(0)
	}
	return formatRemaining(scheduledEnd.Sub(now))
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	minutes := int(math.Ceil(d.Minutes()))
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
