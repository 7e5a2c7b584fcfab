package service

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// PeriodicSync runs a background sync on a fixed interval, on top of the
// debounced triggers.
type PeriodicSync struct {
	scheduler *gocron.Scheduler
	sync      *SyncService
	interval  time.Duration
	logger    *log.Logger
}

func NewPeriodicSync(sync *SyncService, interval time.Duration, logger *log.Logger) *PeriodicSync {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &PeriodicSync{
		scheduler: s,
		sync:      sync,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the job; a non-positive interval disables it.
func (p *PeriodicSync) Start() error {
	if p.interval <= 0 {
		return nil
	}

	if _, err := p.scheduler.Every(p.interval).WaitForSchedule().Do(p.tick); err != nil {
		return err
	}
	p.scheduler.StartAsync()
	p.logger.Printf("periodic sync every %s", p.interval)
	return nil
}

func (p *PeriodicSync) Stop() {
	p.scheduler.Stop()
}

func (p *PeriodicSync) tick() {
	err := p.sync.SyncData(context.Background(), SyncOptions{})
	if err != nil && !errors.Is(err, ErrSyncInProgress) {
		p.logger.Printf("periodic sync failed: %v", err)
	}
}
