package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// ScheduleWeekly registers a job for a "DAY HH:MM" time, e.g. "MON 00:05".
func (s *SchedulerService) ScheduleWeekly(when string, job func()) (cron.EntryID, error) {
	spec, err := buildWeeklySpec(when)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Next returns the next run time of the entry, or zero if it is unknown.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

var weekdays = map[string]int{
	"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6,
}

func buildWeeklySpec(when string) (string, error) {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(when)))
	if len(fields) != 2 {
		return "", fmt.Errorf("invalid schedule %q, expected DAY HH:MM", when)
	}
	day, ok := weekdays[fields[0]]
	if !ok {
		return "", fmt.Errorf("invalid weekday in %q", when)
	}
	hour, minute, err := parseClock(fields[1])
	if err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", when, err)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * %d", minute, hour, day), nil
}

func parseClock(timeStr string) (int, int, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", timeStr)
	}
	return hour, minute, nil
}
