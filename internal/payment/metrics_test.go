package payment_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	applicationdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
	"github.com/perejack/globalvisaapplication/internal/payment"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var _ = Describe("Metrics", func() {
	It("records nothing through a nil receiver", func() {
		var m *payment.Metrics
		Expect(func() {
			m.Initiation("accepted")
			m.StatusCheck("pending", time.Second)
			m.Completed(payment.StatusSuccess)
			m.PollStarted()
			m.PollFinished()
		}).NotTo(Panic())
	})

	It("counts a confirmed payment end to end", func() {
		reg := prometheus.NewRegistry()
		metrics := payment.NewMetrics(reg)

		gateway := &fakeGateway{checkoutID: "ws_CO_9"}
		gateway.replies = []checkReply{reply("pending"), reply("completed")}

		poller := payment.NewPoller(gateway,
			payment.WithInitialDelay(0),
			payment.WithPollInterval(time.Millisecond),
			payment.WithMaxAttempts(5),
			payment.WithPollerMetrics(metrics),
			payment.WithPollerLogger(logger.Discard()),
		)

		inline := &inlineScheduler{}
		service := payment.NewService(payment.Config{}, payment.Dependencies{
			Repository: newMemoryRepository(),
			Applications: &fakeApplications{apps: map[string]*applicationdatamodel.Application{
				"app-1": {ID: "app-1", UserID: "user-1", VisaType: "Student"},
			}},
			Gateway:   gateway,
			Poller:    poller,
			Scheduler: inline,
			Metrics:   metrics,
		}, logger.Discard())
		inline.service = service

		session, err := service.Initiate(context.Background(), "user-1", "app-1", "0712345678")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Status).To(Equal(payment.StatusSuccess))

		Expect(testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP visa_portal_payment_sessions_completed_total Payment sessions that reached a terminal status.
# TYPE visa_portal_payment_sessions_completed_total counter
visa_portal_payment_sessions_completed_total{status="success"} 1
# HELP visa_portal_payment_stk_push_total STK push requests sent to the gateway, by result.
# TYPE visa_portal_payment_stk_push_total counter
visa_portal_payment_stk_push_total{result="accepted"} 1
# HELP visa_portal_payment_active_polls Sessions currently being polled.
# TYPE visa_portal_payment_active_polls gauge
visa_portal_payment_active_polls 0
`), "visa_portal_payment_sessions_completed_total", "visa_portal_payment_stk_push_total", "visa_portal_payment_active_polls")).To(Succeed())

		series, err := testutil.GatherAndCount(reg, "visa_portal_payment_status_checks_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(series).To(Equal(2))
	})
})
