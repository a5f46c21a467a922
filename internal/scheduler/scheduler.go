// Package scheduler runs the periodic reporting jobs that live alongside
// the trading loop: an hourly status push and a daily activity summary. The
// trading cycle itself is driven by the engine's own sequential loop, not by
// cron, so cycle ordering guarantees are unaffected.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SpikeHunter/internal/engine"
	"SpikeHunter/internal/notifier"
	"SpikeHunter/internal/recorder"
)

// Scheduler manages the cron jobs and answers chat commands.
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.Engine
	notify *notifier.TelegramNotifier
	rec    recorder.Recorder
}

func New(eng *engine.Engine, tn *notifier.TelegramNotifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		engine: eng,
		notify: tn,
		rec:    rec,
	}
}

// Register adds the status and summary jobs using 6-field cron expressions.
func (s *Scheduler) Register(statusCron, summaryCron string) error {
	if _, err := s.cron.AddFunc(statusCron, s.statusJob); err != nil {
		return fmt.Errorf("register status job: %w", err)
	}
	if _, err := s.cron.AddFunc(summaryCron, s.summaryJob); err != nil {
		return fmt.Errorf("register summary job: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) statusJob() {
	report := s.engine.StatusText()
	log.Info().Msg("status report")

	// Scheduled pushes are rare, so transient Telegram failures get retried.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.notify.SendWithRetry(ctx, report, 3); err != nil {
		log.Warn().Err(err).Msg("status push failed")
	}
}

func (s *Scheduler) summaryJob() {
	markets, c := s.engine.Status()
	if err := s.rec.RecordSummary(&recorder.SummaryEvent{
		Cycles:      c.Cycles,
		Buys:        c.Buys,
		Sells:       c.Sells,
		Evictions:   c.Evictions,
		Discoveries: c.Discoveries,
		WorkingSet:  len(markets),
	}); err != nil {
		log.Error().Err(err).Msg("record summary failed")
	}
}

// HandleCommand answers Telegram chat commands.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.Fields(command)[0] {
	case "/status":
		return s.engine.StatusText()
	case "/positions":
		markets, _ := s.engine.Status()
		if len(markets) == 0 {
			return "no active markets"
		}
		return "active markets:\n" + strings.Join(markets, "\n")
	case "/help":
		return "/status - engine status\n/positions - active markets\n/help - this message"
	default:
		return ""
	}
}
