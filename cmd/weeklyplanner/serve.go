package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weekly-planner/internal/bot"
	"weekly-planner/internal/server"
	"weekly-planner/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the weekly rollover job and the ops HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			telegramBot, err := bot.New(a.cfg.TelegramToken, a.users, a.tasks, a.summary, a.logger)
			if err != nil {
				return err
			}

			scheduler := service.NewSchedulerService(a.loc)
			id, err := scheduler.ScheduleWeekly(a.cfg.RolloverSchedule, func() {
				jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
				defer cancel()
				if _, err := a.rollover.RunForAllUsers(jobCtx); err != nil {
					a.logger.Error("scheduled rollover", "error", err)
				}
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
			a.logger.Info("weekly rollover scheduled", "schedule", a.cfg.RolloverSchedule, "next", scheduler.Next(id))

			if a.cfg.HTTPAddr != "" {
				srv := server.New(a.cfg.HTTPAddr, a.rollover, a.logger)
				go func() {
					if err := srv.ListenAndServe(ctx); err != nil {
						a.logger.Error("http server", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			a.logger.Info("weekly planner started")
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}
}
