package port

import "time"

// spinThreshold is the remaining time which is spent busy waiting instead of sleeping.
// The go scheduler wakes up a sleeping goroutine with a latency of several 10µs,
// which is too coarse for bus symbols of a few 100µs.
const spinThreshold = 200 * time.Microsecond

// Delay waits for d with microsecond accuracy.
// Long waits sleep first and spin the remaining spinThreshold.
func Delay(d time.Duration) {
	DelayUntil(time.Now().Add(d))
}

// DelayUntil waits until the deadline is reached.
func DelayUntil(deadline time.Time) {
	if d := time.Until(deadline); d > spinThreshold {
		time.Sleep(d - spinThreshold)
	}

	for time.Now().Before(deadline) {
	}
}
