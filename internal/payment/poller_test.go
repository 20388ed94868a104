package payment_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perejack/globalvisaapplication/internal/payment"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var _ = Describe("Poller", func() {
	var (
		checker *scriptedChecker
		poller  *payment.Poller
		session *payment.Session
	)

	newPoller := func(opts ...payment.PollerOption) *payment.Poller {
		base := []payment.PollerOption{
			payment.WithInitialDelay(0),
			payment.WithPollInterval(time.Millisecond),
			payment.WithPollerLogger(logger.Discard()),
		}
		return payment.NewPoller(checker, append(base, opts...)...)
	}

	BeforeEach(func() {
		checker = &scriptedChecker{}
		poller = newPoller()
		session = payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", 30, time.Millisecond)
		Expect(session.MarkPending("ws_CO_1")).To(BeTrue())
	})

	It("should confirm after exactly three polls for pending, pending, completed", func() {
		checker.replies = []checkReply{reply("pending"), reply("pending"), reply("completed")}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusSuccess))
		Expect(out.Attempts).To(Equal(3))
		Expect(out.Abandoned).To(BeFalse())
		Expect(checker.Calls()).To(Equal(3))
		Expect(session.CompletedAt).NotTo(BeNil())
	})

	It("should time out after exactly thirty polls when the payment stays pending", func() {
		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusTimeout))
		Expect(out.Message).To(Equal(payment.TimeoutMessage))
		Expect(checker.Calls()).To(Equal(30))
		Expect(session.AttemptsMade).To(Equal(30))
	})

	It("should keep polling through a transport error", func() {
		checker.replies = []checkReply{
			reply("pending"), reply("pending"), reply("pending"), reply("pending"),
			transportFailure(),
			reply("completed"),
		}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusSuccess))
		Expect(checker.Calls()).To(Equal(6))
		Expect(out.Attempts).To(Equal(6))
	})

	It("should count transport errors against the budget", func() {
		checker.replies = []checkReply{transportFailure()}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusTimeout))
		Expect(checker.Calls()).To(Equal(30))
	})

	It("should surface the gateway's failure description", func() {
		checker.replies = []checkReply{reply("processing"), failedReply("Request cancelled by user")}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusFailed))
		Expect(out.Message).To(Equal("Request cancelled by user"))
		Expect(checker.Calls()).To(Equal(2))
	})

	It("should fall back to a generic failure message", func() {
		checker.replies = []checkReply{reply("cancelled")}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusFailed))
		Expect(out.Message).To(Equal(payment.GenericFailureMessage))
	})

	It("should retry unrecognized statuses and time out on the last attempt", func() {
		checker.replies = []checkReply{reply("queued")}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusTimeout))
		Expect(out.Message).To(Equal(payment.UnverifiedTimeoutMessage))
		Expect(checker.Calls()).To(Equal(30))
	})

	It("should treat an unsuccessful envelope as unrecognized", func() {
		resp := reply("completed")
		resp.resp.Success = false
		checker.replies = []checkReply{resp, reply("paid")}

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusSuccess))
		Expect(checker.Calls()).To(Equal(2))
	})

	It("should not poll a session that is already terminal", func() {
		session.Succeed()

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusSuccess))
		Expect(checker.Calls()).To(BeZero())
	})

	It("should honour the session's own attempt budget", func() {
		session.MaxAttempts = 4

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusTimeout))
		Expect(checker.Calls()).To(Equal(4))
	})

	It("should resume from attempts already used", func() {
		session.AttemptsMade = 28

		poller.Run(context.Background(), session, nil)

		Expect(checker.Calls()).To(Equal(2))
		Expect(session.AttemptsMade).To(Equal(30))
	})

	It("should notify the observer after every attempt", func() {
		checker.replies = []checkReply{reply("pending"), transportFailure(), reply("success")}
		var seen []payment.Status

		poller.Run(context.Background(), session, func(_ context.Context, s *payment.Session) error {
			seen = append(seen, s.Status)
			return nil
		})

		Expect(seen).To(Equal([]payment.Status{payment.StatusProcessing, payment.StatusProcessing, payment.StatusSuccess}))
	})

	It("should stop when the observer reports the session closed", func() {
		checker.replies = []checkReply{reply("pending")}
		saves := 0

		out := poller.Run(context.Background(), session, func(context.Context, *payment.Session) error {
			saves++
			if saves == 2 {
				return payment.ErrSessionClosed
			}
			return nil
		})

		Expect(out.Abandoned).To(BeTrue())
		Expect(out.Status).To(Equal(payment.StatusProcessing))
		Expect(checker.Calls()).To(Equal(2))
	})

	It("should keep polling when saving progress fails for another reason", func() {
		checker.replies = []checkReply{reply("pending"), reply("completed")}

		out := poller.Run(context.Background(), session, func(context.Context, *payment.Session) error {
			return errors.New("connection reset")
		})

		Expect(out.Abandoned).To(BeFalse())
		Expect(out.Status).To(Equal(payment.StatusSuccess))
	})

	It("should stop without a terminal status when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		checker.onCheck = func(call int) {
			if call == 3 {
				cancel()
			}
		}
		poller = newPoller(payment.WithPollInterval(50 * time.Millisecond))

		out := poller.Run(ctx, session, nil)

		Expect(out.Abandoned).To(BeTrue())
		Expect(out.Status.IsTerminal()).To(BeFalse())
		Expect(checker.Calls()).To(Equal(3))
	})

	It("should not poll before the initial delay has passed", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		poller = newPoller(payment.WithInitialDelay(time.Hour))

		out := poller.Run(ctx, session, nil)

		Expect(out.Abandoned).To(BeTrue())
		Expect(checker.Calls()).To(BeZero())
	})

	It("should time out when the wall-clock window elapses", func() {
		poller = newPoller(
			payment.WithPollInterval(20*time.Millisecond),
			payment.WithMaxWindow(50*time.Millisecond),
		)

		out := poller.Run(context.Background(), session, nil)

		Expect(out.Status).To(Equal(payment.StatusTimeout))
		Expect(checker.Calls()).To(BeNumerically("<", 30))
		Expect(checker.Calls()).To(BeNumerically(">=", 1))
	})
})
