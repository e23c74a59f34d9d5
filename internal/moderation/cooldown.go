package moderation

import (
	"time"
)

// RetryAfter returns how long a user must still wait before opening a new
// submission, given when their most recent one was created.
//
// Rules:
// 1. No previous submission (zero time) means no wait
// 2. A non-positive cooldown disables the limit
// 3. Once the window has elapsed the wait is zero
// 4. A creation time in the future (clock skew) waits the full window
func RetryAfter(lastCreated, now time.Time, cooldown time.Duration) time.Duration {
	if lastCreated.IsZero() || cooldown <= 0 {
		return 0
	}

	elapsed := now.Sub(lastCreated)
	if elapsed < 0 {
		return cooldown
	}
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// WaitMinutes renders a wait as whole minutes, rounding any partial minute up
func WaitMinutes(wait time.Duration) int {
	if wait <= 0 {
		return 0
	}
	minutes := int(wait / time.Minute)
	if wait%time.Minute != 0 {
		minutes++
	}
	return minutes
}
