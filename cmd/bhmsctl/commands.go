package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bhms/internal/database"
	"bhms/internal/mailworker"
	"bhms/internal/services"
	"bhms/pkg/config"
	"bhms/pkg/logger"
	"bhms/pkg/mailer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// bootstrap 加载配置、初始化日志和数据库
func bootstrap(withDB bool) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if err := logger.Initialize(cfg); err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	if withDB {
		if err := database.Initialize(cfg); err != nil {
			return nil, nil, err
		}
	}
	return cfg, logger.GetLogger(), nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := bootstrap(true); err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(); err != nil {
				return fmt.Errorf("迁移失败: %w", err)
			}
			fmt.Println("migration completed")
			return nil
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var username, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer database.Close()

			admin, created, err := services.NewAuthService(database.GetDB(), log).EnsureAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("admin %q created (id=%d)\n", admin.Username, admin.ID)
			} else {
				fmt.Printf("admin %q already exists (id=%d)\n", admin.Username, admin.ID)
			}
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset an administrator password",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := services.NewAuthService(database.GetDB(), log).ResetAdminPassword(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Printf("password of %q updated\n", username)
			return nil
		},
	}

	for _, c := range []*cobra.Command{create, reset} {
		c.Flags().StringVarP(&username, "username", "u", "admin", "administrator username")
		c.Flags().StringVarP(&password, "password", "p", "", "administrator password")
		_ = c.MarkFlagRequired("password")
	}

	cmd.AddCommand(create, reset)
	return cmd
}

func mailerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailer",
		Short: "Deliver queued notification mails over SMTP",
	}

	var concurrency, maxAttempts int
	run := &cobra.Command{
		Use:   "run",
		Short: "Consume the mail queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer database.CloseMailQueue()

			mailQueue := database.GetMailQueue()
			if err := mailQueue.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("连接Redis失败: %w", err)
			}

			worker := mailworker.NewWorker(mailQueue, mailer.NewSMTPMailer(services.SMTPConfigFrom(cfg)), mailworker.Options{
				Concurrency: concurrency,
				MaxAttempts: maxAttempts,
				PollTimeout: time.Second,
			}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			worker.Start(ctx)
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			worker.Stop(stopCtx)

			sent, failed, dead := worker.Stats()
			log.WithFields(logrus.Fields{"sent": sent, "retried": failed, "dead": dead}).Info("mailer exited")
			return nil
		},
	}
	run.Flags().IntVarP(&concurrency, "concurrency", "c", 2, "number of consumers")
	run.Flags().IntVar(&maxAttempts, "max-attempts", 3, "attempts before a mail is moved to the dead letter list")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show pending and dead letter counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := bootstrap(false); err != nil {
				return err
			}
			defer database.CloseMailQueue()

			counts, err := database.GetMailQueue().Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("pending: %d\ndead:    %d\n", counts["pending"], counts["dead"])
			return nil
		},
	}

	cmd.AddCommand(run, stats)
	return cmd
}
