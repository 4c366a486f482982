package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"

	"weekly-planner/internal/config"
	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/repository"
	"weekly-planner/internal/service"
)

// app holds everything the commands share.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	loc      *time.Location
	db       *gorm.DB
	users    *repository.UserRepository
	engine   *lifecycle.Engine
	tasks    *service.TaskService
	rollover *service.RolloverService
	summary  *service.SummaryService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	updateRepo := repository.NewUpdateRepository(db)

	engine := lifecycle.New(taskRepo, completionRepo,
		lifecycle.WithWorkers(cfg.Workers),
		lifecycle.WithLogger(logger),
	)
	taskSvc := service.NewTaskService(taskRepo, completionRepo, updateRepo, engine, loc)

	return &app{
		cfg:      cfg,
		logger:   logger,
		loc:      loc,
		db:       db,
		users:    userRepo,
		engine:   engine,
		tasks:    taskSvc,
		rollover: service.NewRolloverService(userRepo, engine, loc, logger),
		summary:  service.NewSummaryService(taskSvc),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
