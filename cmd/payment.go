package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perejack/globalvisaapplication/internal/application"
	applicationpostgres "github.com/perejack/globalvisaapplication/internal/application/postgres"
	paymentdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/payment"
	"github.com/perejack/globalvisaapplication/internal/core/events"
	"github.com/perejack/globalvisaapplication/internal/payment"
	paymentpostgres "github.com/perejack/globalvisaapplication/internal/payment/postgres"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Payment operations",
}

var paymentCheckCmd = &cobra.Command{
	Use:   "check [checkout-id]",
	Short: "Confirm a checkout request from the terminal",
	Long: `Recheck the latest payment session for a checkout request. Confirmation runs in the
foreground with the configured poll policy and the final state is printed. A session the
server saved moments ago is left alone unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkPayment(args[0])
	},
}

var (
	checkAttempts int
	checkInterval time.Duration
	checkForce    bool
)

// foregroundScheduler runs each confirmation loop on the caller's goroutine.
type foregroundScheduler struct {
	ctx     context.Context
	process func(context.Context, payment.PollJob)
}

func (s *foregroundScheduler) Enqueue(job payment.PollJob) error {
	s.process(s.ctx, job)
	return nil
}

func checkPayment(checkoutID string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if checkAttempts > 0 {
		cfg.Payment.MaxAttempts = checkAttempts
	}
	if checkInterval > 0 {
		cfg.Payment.PollInterval = checkInterval
	}
	serverDelay := cfg.Payment.InitialDelay
	cfg.Payment.InitialDelay = 0
	log := logger.LoggerWrapper()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gormDB, err := initGorm(db)
	if err != nil {
		return err
	}

	history, err := paymentpostgres.NewPaymentRepository(gormDB).(*paymentpostgres.PaymentRepository).FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return fmt.Errorf("look up checkout %s: %w", checkoutID, err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no payment session found for checkout %s", checkoutID)
	}
	for _, row := range history {
		fmt.Printf("  %s  %-10s attempts=%d/%d  %s\n", row.ID, row.Status, row.AttemptsMade, row.MaxAttempts, row.CreatedAt.Format(time.RFC3339))
	}
	latest := history[len(history)-1]
	if !checkForce && recentlyPolled(latest, serverDelay, time.Now()) {
		return fmt.Errorf("session %s was updated %s ago and is probably still being polled by the server; retry later or pass --force",
			latest.ID, time.Since(latest.UpdatedAt).Round(time.Second))
	}

	eventBus := events.NewEventBus(log)
	applicationService := application.NewService(applicationpostgres.NewApplicationRepository(gormDB), log)
	application.NewEventHandler(applicationService, log).RegisterEventHandlers(eventBus)

	scheduler := &foregroundScheduler{ctx: ctx}
	service, _ := newPaymentService(cfg, gormDB, applicationService, eventBus, nil, log, scheduler)
	scheduler.process = service.ProcessJob

	session, err := service.Recheck(ctx, latest.UserID, latest.ID)
	if err != nil {
		return err
	}
	if err := eventBus.Drain(context.Background()); err != nil {
		log.Warn("event handlers did not finish", "error", err)
	}

	fmt.Printf("session %s: %s after %d attempt(s)\n", session.ID, session.Status, session.AttemptsMade)
	if session.Message != "" {
		fmt.Println(session.Message)
	}
	return nil
}

// recentlyPolled reports whether an unfinished session was saved within two poll intervals
// (plus the initial delay), which means a running server likely still owns its loop.
func recentlyPolled(row *paymentdatamodel.PaymentSession, initialDelay time.Duration, now time.Time) bool {
	switch row.Status {
	case paymentdatamodel.StatusSuccess, paymentdatamodel.StatusFailed, paymentdatamodel.StatusTimeout:
		return false
	}
	interval := time.Duration(row.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = payment.DefaultPollInterval
	}
	return now.Sub(row.UpdatedAt) < initialDelay+2*interval
}

func init() {
	paymentCheckCmd.Flags().IntVar(&checkAttempts, "attempts", 0, "status checks to make (overrides config)")
	paymentCheckCmd.Flags().DurationVar(&checkInterval, "interval", 0, "delay between status checks (overrides config)")
	paymentCheckCmd.Flags().BoolVar(&checkForce, "force", false, "recheck even if the server may still be polling the session")

	paymentCmd.AddCommand(paymentCheckCmd)
}
