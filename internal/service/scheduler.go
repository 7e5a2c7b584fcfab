package service

import "time"

// Timer is a cancellable deferred task.
type Timer interface {
	// Stop cancels the task; it reports false if the task already fired or was stopped.
	Stop() bool
}

// Scheduler runs f once after d. Tests swap in a manual implementation.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
