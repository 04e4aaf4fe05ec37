package game

import "time"

// DefaultResolveDelay is how long a completed pair stays face up.
const DefaultResolveDelay = 1000 * time.Millisecond

// Scheduler runs f once after d. Implementations must not run f synchronously
// inside AfterFunc, since the session lock is held at that point.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }
