package payment_test

import (
	"context"
	"errors"
	"sync"

	applicationdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
	paymentdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/perejack/globalvisaapplication/internal/core/datamodel/paymentgateway"
	"github.com/perejack/globalvisaapplication/internal/payment"
)

var errGatewayDown = errors.New("connection refused")

// scriptedChecker replays one reply per status check; the last reply repeats once the script runs out.
type scriptedChecker struct {
	mu      sync.Mutex
	replies []checkReply
	calls   int
	onCheck func(call int)
}

type checkReply struct {
	resp *paymentgatewaytypes.StatusResponse
	err  error
}

func reply(status string) checkReply {
	return checkReply{resp: &paymentgatewaytypes.StatusResponse{
		Success: true,
		Payment: &paymentgatewaytypes.PaymentStatusData{Status: status},
	}}
}

func failedReply(desc string) checkReply {
	return checkReply{resp: &paymentgatewaytypes.StatusResponse{
		Success: true,
		Payment: &paymentgatewaytypes.PaymentStatusData{Status: "failed", ResultDesc: desc},
	}}
}

func transportFailure() checkReply {
	return checkReply{err: errGatewayDown}
}

func (c *scriptedChecker) CheckStatus(ctx context.Context, checkoutID string) (*paymentgatewaytypes.StatusResponse, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	var r checkReply
	if len(c.replies) > 0 {
		idx := call - 1
		if idx >= len(c.replies) {
			idx = len(c.replies) - 1
		}
		r = c.replies[idx]
	} else {
		r = reply("pending")
	}
	hook := c.onCheck
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return r.resp, r.err
}

func (c *scriptedChecker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeGateway struct {
	scriptedChecker
	pushErr    error
	checkoutID string
	pushes     []*paymentgatewaytypes.STKPushRequest
}

func (g *fakeGateway) InitiateSTKPush(ctx context.Context, req *paymentgatewaytypes.STKPushRequest) (*paymentgatewaytypes.STKPushResponse, error) {
	g.mu.Lock()
	g.pushes = append(g.pushes, req)
	g.mu.Unlock()

	if g.pushErr != nil {
		return nil, g.pushErr
	}
	resp := &paymentgatewaytypes.STKPushResponse{Success: true}
	resp.Data.CheckoutID = g.checkoutID
	return resp, nil
}

type memoryRepository struct {
	mu   sync.Mutex
	rows map[string]paymentdatamodel.PaymentSession
	// ids in insertion order
	order []string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: make(map[string]paymentdatamodel.PaymentSession)}
}

func (r *memoryRepository) Create(ctx context.Context, session *paymentdatamodel.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[session.ID]; exists {
		return errors.New("duplicate id")
	}
	r.rows[session.ID] = *session
	r.order = append(r.order, session.ID)
	return nil
}

func (r *memoryRepository) Update(ctx context.Context, session *paymentdatamodel.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.Status(r.rows[session.ID].Status).IsTerminal() {
		return payment.ErrSessionClosed
	}
	r.rows[session.ID] = *session
	return nil
}

// Close finishes a stored row directly, as another process would.
func (r *memoryRepository) Close(id string, status payment.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	row.Status = string(status)
	r.rows[id] = row
}

func (r *memoryRepository) Unfinished() []paymentdatamodel.PaymentSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []paymentdatamodel.PaymentSession
	for _, id := range r.order {
		if !payment.Status(r.rows[id].Status).IsTerminal() {
			out = append(out, r.rows[id])
		}
	}
	return out
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*paymentdatamodel.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memoryRepository) ListByApplicationID(ctx context.Context, applicationID string) ([]*paymentdatamodel.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*paymentdatamodel.PaymentSession
	for i := len(r.order) - 1; i >= 0; i-- {
		row := r.rows[r.order[i]]
		if row.ApplicationID == applicationID {
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *memoryRepository) ListUnfinished(ctx context.Context) ([]*paymentdatamodel.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*paymentdatamodel.PaymentSession
	for _, id := range r.order {
		row := r.rows[id]
		if !payment.Status(row.Status).IsTerminal() {
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *memoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeApplications struct {
	apps map[string]*applicationdatamodel.Application
}

func (f *fakeApplications) GetOwnedRecord(ctx context.Context, userID, applicationID string) (*applicationdatamodel.Application, error) {
	app, ok := f.apps[applicationID]
	if !ok || app.UserID != userID {
		return nil, nil
	}
	return app, nil
}

// inlineScheduler runs the poll on the caller's goroutine so tests observe the final state on return.
type inlineScheduler struct {
	service *payment.Service
}

func (s *inlineScheduler) Enqueue(job payment.PollJob) error {
	s.service.ProcessJob(context.Background(), job)
	return nil
}

// holdingScheduler accepts jobs without running them, leaving sessions in flight.
type holdingScheduler struct {
	mu   sync.Mutex
	jobs []payment.PollJob
	err  error
}

func (s *holdingScheduler) Enqueue(job payment.PollJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *holdingScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
