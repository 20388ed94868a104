package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"

	errors "github.com/perejack/globalvisaapplication/internal"
	applicationdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
	paymentdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/perejack/globalvisaapplication/internal/core/datamodel/paymentgateway"
	"github.com/perejack/globalvisaapplication/internal/core/events"
	"github.com/perejack/globalvisaapplication/internal/paymentgateway"
)

const DefaultCurrency = "KSH"

// ErrSessionClosed is returned by RepositoryAPI.Update when the stored session is
// already terminal.
var ErrSessionClosed = stderrors.New("payment session already closed")

type RepositoryAPI interface {
	Create(ctx context.Context, session *paymentdatamodel.PaymentSession) error
	Update(ctx context.Context, session *paymentdatamodel.PaymentSession) error
	GetByID(ctx context.Context, id string) (*paymentdatamodel.PaymentSession, error)
	ListByApplicationID(ctx context.Context, applicationID string) ([]*paymentdatamodel.PaymentSession, error)
	ListUnfinished(ctx context.Context) ([]*paymentdatamodel.PaymentSession, error)
}

// ApplicationProvider resolves an application owned by the caller; nil means not found.
type ApplicationProvider interface {
	GetOwnedRecord(ctx context.Context, userID, applicationID string) (*applicationdatamodel.Application, error)
}

type Gateway interface {
	StatusChecker
	InitiateSTKPush(ctx context.Context, req *paymentgatewaytypes.STKPushRequest) (*paymentgatewaytypes.STKPushResponse, error)
}

type Scheduler interface {
	Enqueue(job PollJob) error
}

type Config struct {
	Amount      int64
	Currency    string
	CountryCode string
}

type Dependencies struct {
	Repository   RepositoryAPI
	Applications ApplicationProvider
	Gateway      Gateway
	Poller       *Poller
	Scheduler    Scheduler
	EventBus     *events.EventBus
	Metrics      *Metrics
}

type Service struct {
	config       Config
	repo         RepositoryAPI
	applications ApplicationProvider
	gateway      Gateway
	poller       *Poller
	scheduler    Scheduler
	eventBus     *events.EventBus
	metrics      *Metrics
	logger       *slog.Logger

	mu sync.Mutex
	// checkout id -> session currently polling it
	inflight map[string]*flight
}

type flight struct {
	sessionID string
	// closed once the session's row exists
	stored chan struct{}
}

func NewService(config Config, deps Dependencies, logger *slog.Logger) *Service {
	if config.Amount <= 0 {
		config.Amount = 1000
	}
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	if config.CountryCode == "" {
		config.CountryCode = DefaultCountryCode
	}

	return &Service{
		config:       config,
		repo:         deps.Repository,
		applications: deps.Applications,
		gateway:      deps.Gateway,
		poller:       deps.Poller,
		scheduler:    deps.Scheduler,
		eventBus:     deps.EventBus,
		metrics:      deps.Metrics,
		logger:       logger,
		inflight:     make(map[string]*flight),
	}
}

// Initiate sends the activation-fee push prompt for an application and queues the
// confirmation loop. When the gateway refuses, the failed session is returned along
// with the error so the caller can show the gateway's message.
func (s *Service) Initiate(ctx context.Context, userID, applicationID, rawPhone string) (*Session, error) {
	app, err := s.applications.GetOwnedRecord(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errors.ErrApplicationNotFound
	}
	if app.IsActive {
		return nil, errors.ErrApplicationAlreadyActive
	}

	phone, err := NormalizePhone(rawPhone, s.config.CountryCode)
	if err != nil {
		return nil, err
	}

	session := NewSession(app.ID, userID, phone, app.VisaType, s.config.Amount, s.config.Currency, s.poller.MaxAttempts(), s.poller.Interval())
	if err := s.repo.Create(ctx, session.ToDataModel()); err != nil {
		s.logger.Error("failed to create payment session", "error", err, "application_id", app.ID)
		return nil, errors.NewInternalError("failed to start payment", err)
	}

	resp, err := s.gateway.InitiateSTKPush(ctx, &paymentgatewaytypes.STKPushRequest{
		PhoneNumber: session.Phone,
		Amount:      session.Amount,
		Reference:   session.Reference,
		Description: session.Description,
	})
	if err != nil {
		appErr := initiationError(err)
		s.metrics.Initiation("failed")
		session.Fail(appErr.Message)
		s.persist(ctx, session)
		s.finish(ctx, session)
		s.logger.Warn("stk push failed",
			"session_id", session.ID,
			"application_id", app.ID,
			"error", err)
		return session, appErr
	}

	s.metrics.Initiation("accepted")
	session.MarkPending(resp.Data.CheckoutID)
	if raw, err := json.Marshal(resp); err == nil {
		session.GatewayResponse = string(raw)
	}
	s.persist(ctx, session)

	s.logger.Info("stk push sent",
		"session_id", session.ID,
		"application_id", app.ID,
		"checkout_id", session.CheckoutID)

	s.schedule(session)
	return session, nil
}

// Recheck resumes verification after the user reports completing the payment. A
// confirmed or still-polling session is returned as is; a timed-out or interrupted
// one is continued by a new session for the same checkout request.
func (s *Service) Recheck(ctx context.Context, userID, sessionID string) (*Session, error) {
	session, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == StatusSuccess {
		return session, nil
	}
	if f, ok := s.activeFor(session.CheckoutID); ok {
		return s.liveSession(ctx, userID, session, f)
	}
	if session.Status == StatusFailed {
		return nil, errors.NewValidationError("This payment failed. Please start a new payment.", errors.ErrCodePaymentFailed)
	}
	if session.CheckoutID == "" {
		return nil, errors.NewValidationError("This payment was never sent to your phone. Please start a new payment.", errors.ErrCodePaymentFailed)
	}

	next := session.Continuation(s.poller.MaxAttempts(), s.poller.Interval())
	f, reserved := s.reserve(next, false)
	if !reserved {
		return s.liveSession(ctx, userID, session, f)
	}

	if !session.Status.IsTerminal() {
		// left behind by an interrupted run; close it so only the continuation is live
		session.TimeOut(AbandonedMessage)
		s.persist(ctx, session)
	}

	if err := s.repo.Create(ctx, next.ToDataModel()); err != nil {
		close(f.stored)
		s.release(next)
		s.logger.Error("failed to create continuation session", "error", err, "parent_id", session.ID)
		return nil, errors.NewInternalError("failed to recheck payment", err)
	}
	close(f.stored)

	s.logger.Info("payment recheck requested",
		"session_id", next.ID,
		"parent_id", session.ID,
		"checkout_id", next.CheckoutID)

	s.dispatch(next)
	return next, nil
}

// liveSession returns the session already polling the checkout once its row is stored.
func (s *Service) liveSession(ctx context.Context, userID string, requested *Session, f *flight) (*Session, error) {
	select {
	case <-f.stored:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.sessionID == requested.ID {
		return requested, nil
	}
	return s.Get(ctx, userID, f.sessionID)
}

func (s *Service) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	row, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed to load payment session", "error", err, "session_id", sessionID)
		return nil, errors.NewInternalError("failed to load payment", err)
	}
	if row == nil || row.UserID != userID {
		return nil, errors.ErrPaymentNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) ListForApplication(ctx context.Context, userID, applicationID string) ([]*Session, error) {
	app, err := s.applications.GetOwnedRecord(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errors.ErrApplicationNotFound
	}

	rows, err := s.repo.ListByApplicationID(ctx, app.ID)
	if err != nil {
		s.logger.Error("failed to list payment sessions", "error", err, "application_id", app.ID)
		return nil, errors.NewInternalError("failed to list payments", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, FromDataModel(row))
	}
	return sessions, nil
}

// Resume requeues sessions that were still polling when the process last stopped.
// Each keeps the attempts it had already used. Sessions that never got a checkout id
// are failed, and only the newest session per checkout is resumed; older ones are
// timed out.
func (s *Service) Resume(ctx context.Context) (int, error) {
	rows, err := s.repo.ListUnfinished(ctx)
	if err != nil {
		return 0, err
	}

	newest := make(map[string]string)
	for _, row := range rows {
		if row.CheckoutID != nil {
			// rows arrive oldest first
			newest[*row.CheckoutID] = row.ID
		}
	}

	resumed := 0
	for _, row := range rows {
		session := FromDataModel(row)
		switch {
		case session.CheckoutID == "":
			session.Fail(InterruptedPushMessage)
			if err := s.persist(ctx, session); err != nil {
				continue
			}
			s.finish(ctx, session)
			s.logger.Warn("closed payment session interrupted before the push",
				"session_id", session.ID,
				"application_id", session.ApplicationID)

		case newest[session.CheckoutID] != session.ID:
			session.TimeOut(AbandonedMessage)
			if err := s.persist(ctx, session); err != nil {
				continue
			}
			s.logger.Info("closed superseded payment session",
				"session_id", session.ID,
				"checkout_id", session.CheckoutID,
				"live_session_id", newest[session.CheckoutID])

		default:
			if s.schedule(session) {
				resumed++
			}
		}
	}

	s.logger.Info("resumed unfinished payment sessions", "count", resumed)
	return resumed, nil
}

// ProcessJob runs the confirmation loop for a queued session. It is the worker entry point.
func (s *Service) ProcessJob(ctx context.Context, job PollJob) {
	session := job.Session
	defer s.release(session)

	outcome := s.poller.Run(ctx, session, s.persist)
	if outcome.Abandoned {
		s.logger.Info("payment session left unfinished",
			"session_id", session.ID,
			"status", session.Status,
			"attempts", session.AttemptsMade)
		return
	}

	s.finish(ctx, session)
}

func (s *Service) schedule(session *Session) bool {
	if _, ok := s.reserve(session, true); !ok {
		return false
	}
	return s.dispatch(session)
}

// reserve claims the checkout for session. When another session already holds it, that
// session's flight is returned with false.
func (s *Service) reserve(session *Session, stored bool) (*flight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, busy := s.inflight[session.CheckoutID]; busy {
		return f, false
	}
	f := &flight{sessionID: session.ID, stored: make(chan struct{})}
	if stored {
		close(f.stored)
	}
	s.inflight[session.CheckoutID] = f
	return f, true
}

func (s *Service) dispatch(session *Session) bool {
	if err := s.scheduler.Enqueue(PollJob{Session: session}); err != nil {
		s.release(session)
		s.logger.Warn("could not queue payment polling; recheck will resume it",
			"session_id", session.ID,
			"error", err)
		return false
	}
	return true
}

func (s *Service) release(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.inflight[session.CheckoutID]; ok && f.sessionID == session.ID {
		delete(s.inflight, session.CheckoutID)
	}
}

func (s *Service) activeFor(checkoutID string) (*flight, bool) {
	if checkoutID == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.inflight[checkoutID]
	return f, ok
}

// persist saves session. ErrSessionClosed means the stored row already finished, for
// example through a recheck run by another process.
func (s *Service) persist(ctx context.Context, session *Session) error {
	err := s.repo.Update(context.WithoutCancel(ctx), session.ToDataModel())
	if stderrors.Is(err, ErrSessionClosed) {
		s.logger.Warn("payment session already closed in storage",
			"session_id", session.ID,
			"status", session.Status)
		return err
	}
	if err != nil {
		s.logger.Error("failed to save payment session",
			"error", err,
			"session_id", session.ID,
			"status", session.Status)
	}
	return err
}

func (s *Service) finish(ctx context.Context, session *Session) {
	if !session.Status.IsTerminal() {
		return
	}
	s.metrics.Completed(session.Status)

	if s.eventBus == nil {
		return
	}

	var event events.Event
	switch session.Status {
	case StatusSuccess:
		event = events.NewPaymentConfirmedEvent(session.ID, session.ApplicationID, session.UserID, session.CheckoutID, session.Amount, session.AttemptsMade)
	case StatusFailed:
		event = events.NewPaymentFailedEvent(session.ID, session.ApplicationID, session.UserID, session.CheckoutID, session.Amount, session.AttemptsMade, session.Message)
	case StatusTimeout:
		event = events.NewPaymentTimedOutEvent(session.ID, session.ApplicationID, session.UserID, session.CheckoutID, session.Amount, session.AttemptsMade)
	}

	// activation completes before the loop releases the checkout
	if session.Status != StatusSuccess {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Error("payment outcome event not published",
				"error", err,
				"session_id", session.ID,
				"status", session.Status)
		}
		return
	}
	if err := s.eventBus.PublishSync(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("payment outcome handlers failed",
			"error", err,
			"session_id", session.ID,
			"status", session.Status)
	}
}

func initiationError(err error) *errors.AppError {
	var rejected *paymentgateway.GatewayRejectedError
	if stderrors.As(err, &rejected) {
		return errors.NewExternalError(rejected.Message, errors.ErrCodePaymentGatewayRejected, err)
	}

	var transport *paymentgateway.TransportError
	if stderrors.As(err, &transport) {
		return errors.NewExternalError(transport.UserMessage(), errors.ErrCodePaymentGatewayDown, err)
	}

	return errors.NewExternalError("Failed to send STK push. Please try again.", errors.ErrCodePaymentGatewayDown, err)
}
