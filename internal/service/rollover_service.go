package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weekly-planner/internal/apperr"
	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/repository"
	"weekly-planner/internal/week"
)

// RolloverService runs the week-boundary rollover for every known user.
type RolloverService struct {
	users  *repository.UserRepository
	engine *lifecycle.Engine
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewRolloverService(users *repository.UserRepository, engine *lifecycle.Engine, loc *time.Location, logger *slog.Logger) *RolloverService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RolloverService{users: users, engine: engine, logger: logger, loc: loc, now: time.Now}
}

// RunForAllUsers rolls every user from the previous ISO week into the
// current one. One user's failure does not stop the others; reports are
// returned for every user that was processed, partial ones included.
func (s *RolloverService) RunForAllUsers(ctx context.Context) ([]*lifecycle.RolloverReport, error) {
	current := week.Of(s.now().In(s.loc))
	return s.Run(ctx, current.Prev(), current)
}

func (s *RolloverService) Run(ctx context.Context, from, to week.Week) ([]*lifecycle.RolloverReport, error) {
	if !from.Before(to) {
		return nil, apperr.NewError(apperr.InvalidArgument, fmt.Sprintf("rollover target %s is not after %s", to, from), nil)
	}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var (
		reports []*lifecycle.RolloverReport
		errs    []error
	)
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.engine.RolloverWeek(ctx, user.ID, from, to)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			s.logger.Error("weekly rollover failed", "user_id", user.ID, "from", from.String(), "to", to.String(), "error", err)
			errs = append(errs, fmt.Errorf("user %d: %w", user.ID, err))
		}
	}
	s.logger.Info("weekly rollover done", "from", from.String(), "to", to.String(), "users", len(users), "failed", len(errs))
	return reports, errors.Join(errs...)
}
