package payment_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/perejack/globalvisaapplication/internal"
	applicationdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
	"github.com/perejack/globalvisaapplication/internal/core/events"
	"github.com/perejack/globalvisaapplication/internal/payment"
	"github.com/perejack/globalvisaapplication/internal/paymentgateway"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []*events.PaymentOutcomeEvent
}

func (r *eventRecorder) handle(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(*events.PaymentOutcomeEvent))
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

var _ = Describe("Service", func() {
	const maxAttempts = 3

	var (
		ctx      context.Context
		repo     *memoryRepository
		gateway  *fakeGateway
		apps     *fakeApplications
		recorder *eventRecorder
		service  *payment.Service
		bus      *events.EventBus
		log      *slog.Logger
	)

	build := func(scheduler payment.Scheduler) *payment.Service {
		bus = events.NewEventBus(logger.Discard())
		for _, t := range []string{events.EventTypePaymentConfirmed, events.EventTypePaymentFailed, events.EventTypePaymentTimedOut} {
			bus.Subscribe(t, recorder.handle)
		}

		poller := payment.NewPoller(gateway,
			payment.WithInitialDelay(0),
			payment.WithPollInterval(time.Millisecond),
			payment.WithMaxAttempts(maxAttempts),
			payment.WithPollerLogger(logger.Discard()),
		)

		return payment.NewService(payment.Config{Amount: 1000, Currency: "KSH", CountryCode: "254"}, payment.Dependencies{
			Repository:   repo,
			Applications: apps,
			Gateway:      gateway,
			Poller:       poller,
			Scheduler:    scheduler,
			EventBus:     bus,
		}, log)
	}

	buildInline := func() *payment.Service {
		inline := &inlineScheduler{}
		svc := build(inline)
		inline.service = svc
		return svc
	}

	BeforeEach(func() {
		ctx = context.Background()
		log = logger.Discard()
		repo = newMemoryRepository()
		gateway = &fakeGateway{checkoutID: "ws_CO_1"}
		recorder = &eventRecorder{}
		apps = &fakeApplications{apps: map[string]*applicationdatamodel.Application{
			"app-1":  {ID: "app-1", UserID: "user-1", VisaType: "Work Permit"},
			"active": {ID: "active", UserID: "user-1", VisaType: "Tourist", IsActive: true},
		}}
		service = buildInline()
	})

	Describe("Initiate", func() {
		It("should push the activation fee and confirm the payment", func() {
			gateway.replies = []checkReply{reply("pending"), reply("completed")}

			session, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())

			Expect(gateway.pushes).To(HaveLen(1))
			push := gateway.pushes[0]
			Expect(push.PhoneNumber).To(Equal("254712345678"))
			Expect(push.Amount).To(Equal(int64(1000)))
			Expect(push.Reference).To(Equal("VISA-WORK-PERMIT"))
			Expect(push.Description).To(Equal("Activation fee for Work Permit"))

			Expect(session.CheckoutID).To(Equal("ws_CO_1"))
			Expect(session.Status).To(Equal(payment.StatusSuccess))

			stored, err := service.Get(ctx, "user-1", session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(payment.StatusSuccess))
			Expect(stored.AttemptsMade).To(Equal(2))
			Expect(stored.GatewayResponse).To(ContainSubstring("ws_CO_1"))

			Expect(recorder.types()).To(Equal([]string{events.EventTypePaymentConfirmed}))
			Expect(recorder.events[0].ApplicationID).To(Equal("app-1"))
		})

		It("should log outcome events the bus no longer accepts", func() {
			buf := &bytes.Buffer{}
			log = slog.New(slog.NewJSONHandler(buf, nil))
			service = buildInline()
			Expect(bus.Drain(ctx)).To(Succeed())
			gateway.pushErr = &paymentgateway.GatewayRejectedError{StatusCode: 400, Message: "Invalid till"}

			_, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).To(HaveOccurred())

			Expect(buf.String()).To(ContainSubstring("payment outcome event not published"))
			Expect(buf.String()).To(ContainSubstring(events.ErrBusClosed.Error()))
			Consistently(recorder.types, 20*time.Millisecond).Should(BeEmpty())
		})

		It("should fail without polling when the gateway rejects the push", func() {
			gateway.pushErr = &paymentgateway.GatewayRejectedError{StatusCode: 400, Message: "Invalid till"}

			session, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(appErr.Message).To(Equal("Invalid till"))
			Expect(session.Status).To(Equal(payment.StatusFailed))
			Expect(session.Message).To(Equal("Invalid till"))
			Expect(gateway.Calls()).To(BeZero())
			Eventually(recorder.types).Should(Equal([]string{events.EventTypePaymentFailed}))
		})

		It("should report an unreachable gateway with a retry hint", func() {
			gateway.pushErr = &paymentgateway.TransportError{Op: "stk push", Err: errGatewayDown}

			session, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")

			Expect(err).To(HaveOccurred())
			Expect(session.Message).To(Equal("Failed to send STK push. Please try again."))
		})

		It("should reject an invalid phone before contacting the gateway", func() {
			_, err := service.Initiate(ctx, "user-1", "app-1", "123")

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(gateway.pushes).To(BeEmpty())
			Expect(repo.Len()).To(BeZero())
		})

		It("should not reveal another user's application", func() {
			_, err := service.Initiate(ctx, "user-2", "app-1", "0712345678")
			Expect(err).To(Equal(errors.ErrApplicationNotFound))
		})

		It("should refuse an application whose card is already active", func() {
			_, err := service.Initiate(ctx, "user-1", "active", "0712345678")
			Expect(err).To(Equal(errors.ErrApplicationAlreadyActive))
			Expect(gateway.pushes).To(BeEmpty())
		})

		It("should publish a timeout when the budget runs out", func() {
			session, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())

			Expect(session.Status).To(Equal(payment.StatusTimeout))
			Expect(gateway.Calls()).To(Equal(maxAttempts))
			Eventually(recorder.types).Should(Equal([]string{events.EventTypePaymentTimedOut}))
		})
	})

	Describe("Recheck", func() {
		It("should continue a timed-out session with a fresh budget", func() {
			first, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Status).To(Equal(payment.StatusTimeout))

			gateway.mu.Lock()
			gateway.replies = []checkReply{reply("completed")}
			gateway.calls = 0
			gateway.mu.Unlock()

			next, err := service.Recheck(ctx, "user-1", first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.ID).NotTo(Equal(first.ID))
			Expect(next.ParentID).To(Equal(first.ID))
			Expect(next.CheckoutID).To(Equal(first.CheckoutID))
			Expect(next.Status).To(Equal(payment.StatusSuccess))
			Expect(gateway.pushes).To(HaveLen(1))

			sessions, err := service.ListForApplication(ctx, "user-1", "app-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal(next.ID))
		})

		It("should return a confirmed session unchanged", func() {
			gateway.replies = []checkReply{reply("success")}
			first, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())

			again, err := service.Recheck(ctx, "user-1", first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal(first.ID))
			Expect(repo.Len()).To(Equal(1))
		})

		It("should refuse to recheck a failed payment", func() {
			gateway.replies = []checkReply{failedReply("Insufficient balance")}
			first, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Status).To(Equal(payment.StatusFailed))

			_, err = service.Recheck(ctx, "user-1", first.ID)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodePaymentFailed))
		})

		It("should not start a second loop while one is running", func() {
			holding := &holdingScheduler{}
			service = build(holding)

			first, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Status).To(Equal(payment.StatusPending))
			Expect(holding.jobs).To(HaveLen(1))

			again, err := service.Recheck(ctx, "user-1", first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal(first.ID))
			Expect(holding.jobs).To(HaveLen(1))
			Expect(repo.Len()).To(Equal(1))
		})

		It("should close an interrupted session before continuing it", func() {
			holding := &holdingScheduler{err: payment.ErrQueueFull}
			service = build(holding)

			first, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Status).To(Equal(payment.StatusPending))

			holding.err = nil
			next, err := service.Recheck(ctx, "user-1", first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.ParentID).To(Equal(first.ID))
			Expect(holding.jobs).To(HaveLen(1))

			parent, err := service.Get(ctx, "user-1", first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(parent.Status).To(Equal(payment.StatusTimeout))
			Expect(parent.Message).To(Equal(payment.AbandonedMessage))
		})

		It("should create a single continuation under concurrent rechecks", func() {
			timedOut := payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", maxAttempts, time.Millisecond)
			timedOut.MarkPending("ws_CO_7")
			timedOut.TimeOut("")
			Expect(repo.Create(ctx, timedOut.ToDataModel())).To(Succeed())

			holding := &holdingScheduler{}
			service = build(holding)

			const callers = 8
			ids := make(chan string, callers)
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					next, err := service.Recheck(ctx, "user-1", timedOut.ID)
					Expect(err).NotTo(HaveOccurred())
					ids <- next.ID
				}()
			}
			wg.Wait()
			close(ids)

			seen := map[string]bool{}
			for id := range ids {
				seen[id] = true
			}
			Expect(seen).To(HaveLen(1))
			Expect(seen).NotTo(HaveKey(timedOut.ID))
			Expect(holding.Len()).To(Equal(1))
			Expect(repo.Len()).To(Equal(2))
			Expect(repo.Unfinished()).To(HaveLen(1))
		})

		It("should stop polling once another process closes the session", func() {
			gateway.replies = []checkReply{reply("pending")}
			gateway.onCheck = func(call int) {
				if call == 2 {
					for _, row := range repo.Unfinished() {
						repo.Close(row.ID, payment.StatusTimeout)
					}
				}
			}

			session, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())
			Expect(gateway.Calls()).To(Equal(2))
			Expect(session.Status).To(Equal(payment.StatusProcessing))

			stored, err := service.Get(ctx, "user-1", session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(payment.StatusTimeout))
			Consistently(recorder.types, 20*time.Millisecond).Should(BeEmpty())
		})

		It("should not find another user's session", func() {
			gateway.replies = []checkReply{reply("success")}
			first, err := service.Initiate(ctx, "user-1", "app-1", "0712345678")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Recheck(ctx, "user-2", first.ID)
			Expect(err).To(Equal(errors.ErrPaymentNotFound))
		})
	})

	Describe("ListForApplication", func() {
		It("should require ownership of the application", func() {
			_, err := service.ListForApplication(ctx, "user-2", "app-1")
			Expect(err).To(Equal(errors.ErrApplicationNotFound))
		})
	})

	Describe("Resume", func() {
		It("should requeue sessions left pending by a previous process", func() {
			pending := payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", maxAttempts, time.Millisecond)
			pending.MarkPending("ws_CO_9")
			Expect(repo.Create(ctx, pending.ToDataModel())).To(Succeed())

			holding := &holdingScheduler{}
			service = build(holding)

			resumed, err := service.Resume(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed).To(Equal(1))
			Expect(holding.jobs).To(HaveLen(1))
			Expect(holding.jobs[0].Session.CheckoutID).To(Equal("ws_CO_9"))
		})

		It("should fail sessions that never reached the gateway", func() {
			neverSent := payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", maxAttempts, time.Millisecond)
			Expect(repo.Create(ctx, neverSent.ToDataModel())).To(Succeed())

			holding := &holdingScheduler{}
			service = build(holding)

			resumed, err := service.Resume(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed).To(BeZero())
			Expect(holding.jobs).To(BeEmpty())

			stored, err := service.Get(ctx, "user-1", neverSent.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(payment.StatusFailed))
			Expect(stored.Message).To(Equal(payment.InterruptedPushMessage))
			Eventually(recorder.types).Should(Equal([]string{events.EventTypePaymentFailed}))
		})

		It("should resume only the newest session of a checkout", func() {
			older := payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", maxAttempts, time.Millisecond)
			older.MarkPending("ws_CO_9")
			Expect(repo.Create(ctx, older.ToDataModel())).To(Succeed())
			newer := older.Continuation(maxAttempts, time.Millisecond)
			Expect(repo.Create(ctx, newer.ToDataModel())).To(Succeed())

			holding := &holdingScheduler{}
			service = build(holding)

			resumed, err := service.Resume(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed).To(Equal(1))
			Expect(holding.jobs[0].Session.ID).To(Equal(newer.ID))

			stored, err := service.Get(ctx, "user-1", older.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(payment.StatusTimeout))

			unfinished := repo.Unfinished()
			Expect(unfinished).To(HaveLen(1))
			Expect(unfinished[0].ID).To(Equal(newer.ID))
		})
	})
})
