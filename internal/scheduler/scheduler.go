// Package scheduler runs the wall-clock daily checks: minute-polled window
// checks that must evaluate exactly once per calendar day, self-rescheduling
// point-deadline checks, and bounded window scans that cross-check channel
// history. All deadlines are local time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/notify"
)

const dateFormat = "2006-01-02"

// WindowCheck is a per-day check evaluated by the minute poll: if its
// received flag is still unset at the first poll at or after the deadline,
// the missing message is posted to the channel. The "evaluated today" guard
// makes the evaluation idempotent under poll jitter.
type WindowCheck struct {
	ID        string
	ChannelID string
	Hour      int
	Minute    int
	Missing   string

	evaluated bool
}

// PointCheck fires once per day at a fixed time via a self-rescheduling
// timer. Before notifying it cross-checks channel history since the given
// time of day, so reports that arrived while the process was down still
// count.
type PointCheck struct {
	ID          string
	ChannelID   string
	Hour        int
	Minute      int
	SinceHour   int
	SinceMinute int
	Matches     func(models.Event) bool
	Missing     string
}

// WindowScan polls channel history every minute inside [start, end] looking
// for a matching message; if the window closes without one, the missing
// message is posted. The history fetch is awaited before deciding.
type WindowScan struct {
	ID          string
	ChannelID   string
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Matches     func(models.Event) bool
	Missing     string
}

// Scheduler owns all per-day check state. The classification path marks
// checks received through MarkReceived; timers only ever read the flags.
type Scheduler struct {
	logger   *logging.Logger
	notifier *notify.Notifier

	mu            sync.Mutex
	received      map[string]bool
	windowChecks  []*WindowCheck
	lastResetDate string

	now          func() time.Time
	tickInterval time.Duration
}

// New constructs a Scheduler polling window checks once a minute.
func New(logger *logging.Logger, notifier *notify.Notifier) *Scheduler {
	return &Scheduler{
		logger:       logger,
		notifier:     notifier,
		received:     make(map[string]bool),
		now:          time.Now,
		tickInterval: time.Minute,
	}
}

// AddWindowCheck registers a minute-polled daily check.
func (s *Scheduler) AddWindowCheck(wc WindowCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowChecks = append(s.windowChecks, &wc)
	s.received[wc.ID] = false
}

// MarkReceived records that a qualifying report was observed for the check.
// Further marks on the same day are harmless no-ops.
func (s *Scheduler) MarkReceived(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received[id] = true
}

// Received reports the check's flag for the current day.
func (s *Scheduler) Received(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received[id]
}

// Start runs the minute poll until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("daily check poll started")
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx, s.now())
			}
		}
	}()
}

// Tick performs one poll step: calendar-date rollover first, then at most
// one evaluation per due window check. Exported for deterministic tests.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	today := now.Format(dateFormat)
	if s.lastResetDate != today {
		for id := range s.received {
			s.received[id] = false
		}
		for _, wc := range s.windowChecks {
			// A deadline already in the past at reset time belongs to a
			// partial day (process start), not to a missed report.
			wc.evaluated = s.lastResetDate == "" && pastDeadline(now, wc.Hour, wc.Minute)
		}
		s.lastResetDate = today
		s.logger.Infof("new day %s, report flags reset", today)
	}

	var due []*WindowCheck
	for _, wc := range s.windowChecks {
		if !wc.evaluated && pastDeadline(now, wc.Hour, wc.Minute) {
			wc.evaluated = true
			if !s.received[wc.ID] {
				due = append(due, wc)
			} else {
				s.logger.Infof("check %s: report already received today", wc.ID)
			}
		}
	}
	s.mu.Unlock()

	for _, wc := range due {
		s.logger.Infof("check %s: report missing at deadline, notifying", wc.ID)
		s.notifier.Post(ctx, wc.ChannelID, wc.Missing)
	}
}

// RunPointCheck fires the check at its next occurrence, evaluates, and
// reschedules for the following day, forever.
func (s *Scheduler) RunPointCheck(ctx context.Context, wg *sync.WaitGroup, pc PointCheck) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			next := nextOccurrence(s.now(), pc.Hour, pc.Minute)
			timer := time.NewTimer(next.Sub(s.now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			s.EvaluatePointCheck(ctx, pc)
		}
	}()
}

// EvaluatePointCheck decides one day's outcome for a point-deadline check.
func (s *Scheduler) EvaluatePointCheck(ctx context.Context, pc PointCheck) {
	if s.Received(pc.ID) {
		s.logger.Infof("check %s: report already received today", pc.ID)
		return
	}

	now := s.now()
	since := timeOfDay(now, pc.SinceHour, pc.SinceMinute)
	events, err := s.notifier.FetchHistory(ctx, pc.ChannelID, since, time.Time{}, 100)
	if err != nil {
		s.logger.Errorf("check %s: history fetch failed: %v", pc.ID, err)
		return
	}
	for _, ev := range events {
		if pc.Matches(ev) {
			s.MarkReceived(pc.ID)
			s.logger.Infof("check %s: report found in history", pc.ID)
			return
		}
	}

	s.logger.Infof("check %s: report missing, notifying", pc.ID)
	s.notifier.Post(ctx, pc.ChannelID, pc.Missing)
}

// RunWindowScan kicks the scan off at the window start every day.
func (s *Scheduler) RunWindowScan(ctx context.Context, wg *sync.WaitGroup, scan WindowScan) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			next := nextOccurrence(s.now(), scan.StartHour, scan.StartMinute)
			timer := time.NewTimer(next.Sub(s.now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			s.scanWindow(ctx, scan)
		}
	}()
}

// scanWindow polls history inside the window until the report shows up or
// the window closes.
func (s *Scheduler) scanWindow(ctx context.Context, scan WindowScan) {
	s.mu.Lock()
	s.received[scan.ID] = false
	s.mu.Unlock()

	start := timeOfDay(s.now(), scan.StartHour, scan.StartMinute)
	end := timeOfDay(s.now(), scan.EndHour, scan.EndMinute)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		now := s.now()
		if now.After(end) || s.Received(scan.ID) {
			break
		}
		if s.ScanOnce(ctx, scan, start, now) {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	if s.Received(scan.ID) {
		s.logger.Infof("scan %s: report received inside window", scan.ID)
		return
	}
	s.logger.Infof("scan %s: window closed without report, notifying", scan.ID)
	s.notifier.Post(ctx, scan.ChannelID, scan.Missing)
}

// ScanOnce runs one history pass of a window scan and reports whether the
// report was found. Exported for deterministic tests.
func (s *Scheduler) ScanOnce(ctx context.Context, scan WindowScan, start, now time.Time) bool {
	events, err := s.notifier.FetchHistory(ctx, scan.ChannelID, start, now, 50)
	if err != nil {
		s.logger.Errorf("scan %s: history fetch failed: %v", scan.ID, err)
		return false
	}
	for _, ev := range events {
		if scan.Matches(ev) {
			s.MarkReceived(scan.ID)
			return true
		}
	}
	return false
}

// pastDeadline reports whether now's time of day is at or past hour:minute.
func pastDeadline(now time.Time, hour, minute int) bool {
	return now.Hour() > hour || (now.Hour() == hour && now.Minute() >= minute)
}

// nextOccurrence returns the next time hour:minute comes around, today if
// it has not passed yet, otherwise tomorrow.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := timeOfDay(now, hour, minute)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// timeOfDay pins hour:minute onto now's calendar date.
func timeOfDay(now time.Time, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
}
