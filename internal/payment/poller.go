package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	paymentgatewaytypes "github.com/perejack/globalvisaapplication/internal/core/datamodel/paymentgateway"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

const (
	DefaultInitialDelay = 5 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 30
)

type StatusChecker interface {
	CheckStatus(ctx context.Context, checkoutID string) (*paymentgatewaytypes.StatusResponse, error)
}

// ObserverFunc is called after every attempt so the caller can persist progress.
// Returning ErrSessionClosed ends the run without touching the session further.
type ObserverFunc func(ctx context.Context, session *Session) error

// Outcome is how a polling run ended. Abandoned means the context was cancelled, or
// the stored session was closed elsewhere, before this run could finish it.
type Outcome struct {
	Status    Status
	Message   string
	Attempts  int
	Abandoned bool
}

// Poller confirms a pending push payment by querying the gateway on a fixed interval
// until it reports a result or the attempt budget runs out.
type Poller struct {
	checker      StatusChecker
	initialDelay time.Duration
	interval     time.Duration
	maxAttempts  int
	maxWindow    time.Duration
	metrics      *Metrics
	logger       *slog.Logger
}

type PollerOption func(*Poller)

// WithInitialDelay sets the wait before the first check. Zero checks immediately.
func WithInitialDelay(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.initialDelay = d
		}
	}
}

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithMaxWindow caps the wall-clock time of one run; zero means only the attempt budget applies.
func WithMaxWindow(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d >= 0 {
			p.maxWindow = d
		}
	}
}

func WithPollerMetrics(m *Metrics) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPoller(checker StatusChecker, opts ...PollerOption) *Poller {
	p := &Poller{
		checker:      checker,
		initialDelay: DefaultInitialDelay,
		interval:     DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		logger:       logger.LoggerWrapper(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) MaxAttempts() int {
	return p.maxAttempts
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls until session is terminal or ctx is cancelled. It never issues more than
// session.MaxAttempts status checks, and a terminal session is returned untouched.
func (p *Poller) Run(ctx context.Context, session *Session, onChange ObserverFunc) Outcome {
	if session.Status.IsTerminal() {
		return outcomeOf(session)
	}
	if session.MaxAttempts <= 0 {
		session.MaxAttempts = p.maxAttempts
	}
	if onChange == nil {
		onChange = func(context.Context, *Session) error { return nil }
	}

	log := p.logger.With("session_id", session.ID, "checkout_id", session.CheckoutID)

	var deadline time.Time
	if p.maxWindow > 0 {
		deadline = time.Now().Add(p.maxWindow)
	}

	p.metrics.PollStarted()
	defer p.metrics.PollFinished()

	if !p.wait(ctx, p.initialDelay, deadline) {
		return p.abandon(ctx, session, log)
	}

	for {
		if session.AttemptsMade >= session.MaxAttempts {
			return p.timeOut(ctx, session, TimeoutMessage, onChange, log)
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			log.Warn("payment polling window elapsed", "attempts", session.AttemptsMade)
			return p.timeOut(ctx, session, TimeoutMessage, onChange, log)
		}

		session.AttemptsMade++
		started := time.Now()
		resp, err := p.checker.CheckStatus(ctx, session.CheckoutID)
		if err != nil {
			if ctx.Err() != nil {
				return p.abandon(ctx, session, log)
			}
			p.metrics.StatusCheck("error", time.Since(started))
			log.Warn("payment status check failed",
				"attempt", session.AttemptsMade,
				"max_attempts", session.MaxAttempts,
				"error", err)
			if !p.record(ctx, session, onChange) {
				return p.superseded(session, log)
			}
		} else {
			class := resp.Classify()
			p.metrics.StatusCheck(class.String(), time.Since(started))
			log.Debug("payment status checked",
				"attempt", session.AttemptsMade,
				"gateway_status", resp.RawStatus(),
				"class", class.String())

			switch class {
			case paymentgatewaytypes.StatusClassSucceeded:
				session.Succeed()
				if !p.record(ctx, session, onChange) {
					return p.superseded(session, log)
				}
				log.Info("payment confirmed", "attempts", session.AttemptsMade)
				return outcomeOf(session)

			case paymentgatewaytypes.StatusClassFailed:
				session.Fail(resp.Payment.ResultDesc)
				if !p.record(ctx, session, onChange) {
					return p.superseded(session, log)
				}
				log.Info("payment failed", "attempts", session.AttemptsMade, "reason", session.Message)
				return outcomeOf(session)

			case paymentgatewaytypes.StatusClassInProgress:
				session.MarkProcessing()
				if !p.record(ctx, session, onChange) {
					return p.superseded(session, log)
				}

			default:
				if session.AttemptsMade >= session.MaxAttempts {
					return p.timeOut(ctx, session, UnverifiedTimeoutMessage, onChange, log)
				}
				session.MarkProcessing()
				if !p.record(ctx, session, onChange) {
					return p.superseded(session, log)
				}
			}
		}

		if session.AttemptsMade >= session.MaxAttempts {
			return p.timeOut(ctx, session, TimeoutMessage, onChange, log)
		}
		if !p.wait(ctx, p.interval, deadline) {
			return p.abandon(ctx, session, log)
		}
	}
}

func (p *Poller) timeOut(ctx context.Context, session *Session, message string, onChange ObserverFunc, log *slog.Logger) Outcome {
	session.TimeOut(message)
	if !p.record(ctx, session, onChange) {
		return p.superseded(session, log)
	}
	log.Info("payment verification timed out", "attempts", session.AttemptsMade)
	return outcomeOf(session)
}

func (p *Poller) abandon(ctx context.Context, session *Session, log *slog.Logger) Outcome {
	log.Info("payment polling abandoned", "attempts", session.AttemptsMade, "reason", context.Cause(ctx))
	out := outcomeOf(session)
	out.Abandoned = true
	return out
}

// record reports false once the stored session has been closed by someone else.
func (p *Poller) record(ctx context.Context, session *Session, onChange ObserverFunc) bool {
	return !errors.Is(onChange(ctx, session), ErrSessionClosed)
}

func (p *Poller) superseded(session *Session, log *slog.Logger) Outcome {
	log.Info("payment session closed elsewhere; polling stopped", "attempts", session.AttemptsMade)
	out := outcomeOf(session)
	out.Abandoned = true
	return out
}

// wait sleeps for d, cut short by the polling deadline. It returns false if ctx ends first.
func (p *Poller) wait(ctx context.Context, d time.Duration, deadline time.Time) bool {
	if !deadline.IsZero() {
		if remaining := time.Until(deadline); remaining < d {
			d = remaining
		}
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func outcomeOf(session *Session) Outcome {
	return Outcome{
		Status:   session.Status,
		Message:  session.Message,
		Attempts: session.AttemptsMade,
	}
}
