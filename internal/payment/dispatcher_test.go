package payment_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perejack/globalvisaapplication/internal/payment"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

func pollJob(id string) payment.PollJob {
	return payment.PollJob{Session: &payment.Session{ID: id, CheckoutID: "ws_" + id}}
}

var _ = Describe("Dispatcher", func() {
	It("should run every queued job on the worker pool", func() {
		d := payment.NewDispatcher(payment.DispatcherConfig{MaxWorkers: 3, JobQueueSize: 10}, logger.Discard())
		var processed atomic.Int32
		d.Start(func(ctx context.Context, job payment.PollJob) {
			processed.Add(1)
		})

		for i := 0; i < 8; i++ {
			Expect(d.Enqueue(pollJob(fmt.Sprintf("s-%d", i)))).To(Succeed())
		}

		Eventually(processed.Load).WithTimeout(time.Second).Should(Equal(int32(8)))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(d.Shutdown(shutdownCtx)).To(Succeed())
	})

	It("should reject work once the queue is full", func() {
		d := payment.NewDispatcher(payment.DispatcherConfig{MaxWorkers: 1, JobQueueSize: 1}, logger.Discard())

		Expect(d.Enqueue(pollJob("s-1"))).To(Succeed())
		Expect(d.Enqueue(pollJob("s-2"))).To(MatchError(payment.ErrQueueFull))
	})

	It("should cancel running loops on shutdown", func() {
		d := payment.NewDispatcher(payment.DispatcherConfig{MaxWorkers: 1, JobQueueSize: 1}, logger.Discard())
		started := make(chan struct{})
		d.Start(func(ctx context.Context, job payment.PollJob) {
			close(started)
			<-ctx.Done()
		})

		Expect(d.Enqueue(pollJob("s-1"))).To(Succeed())
		Eventually(started).WithTimeout(time.Second).Should(BeClosed())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(d.Shutdown(shutdownCtx)).To(Succeed())
		Expect(d.Enqueue(pollJob("s-2"))).NotTo(Succeed())
	})
})
