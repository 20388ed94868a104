package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/payment"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

type mockPaymentService struct {
	session       *payment.Session
	sessions      []*payment.Session
	err           error
	lastUserID    string
	lastAppID     string
	lastPhone     string
	lastSessionID string
}

func (m *mockPaymentService) Initiate(ctx context.Context, userID, applicationID, phone string) (*payment.Session, error) {
	m.lastUserID, m.lastAppID, m.lastPhone = userID, applicationID, phone
	return m.session, m.err
}

func (m *mockPaymentService) Recheck(ctx context.Context, userID, sessionID string) (*payment.Session, error) {
	m.lastUserID, m.lastSessionID = userID, sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockPaymentService) Get(ctx context.Context, userID, sessionID string) (*payment.Session, error) {
	m.lastUserID, m.lastSessionID = userID, sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockPaymentService) ListForApplication(ctx context.Context, userID, applicationID string) ([]*payment.Session, error) {
	m.lastUserID, m.lastAppID = userID, applicationID
	return m.sessions, m.err
}

var _ = ginkgo.Describe("Payment Handler", func() {
	var (
		svc    *mockPaymentService
		router chi.Router
		user   *internal.User
	)

	withUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(internal.ContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}

	pendingSession := func() *payment.Session {
		s := payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", 30, 0)
		s.MarkPending("ws_CO_1")
		return s
	}

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		svc = &mockPaymentService{}
		user = &internal.User{ID: "user-1", Email: "jane@example.com"}

		h := payment.NewHandler(svc, logger.Discard())
		router = chi.NewRouter()
		router.Use(withUser)
		router.Post("/applications/{id}/payments", h.Initiate)
		router.Get("/applications/{id}/payments", h.ListForApplication)
		router.Get("/payments/{id}", h.Get)
		router.Post("/payments/{id}/recheck", h.Recheck)
	})

	ginkgo.Describe("Initiate", func() {
		ginkgo.It("should accept a payment and return the pending session", func() {
			svc.session = pendingSession()

			rec := do(http.MethodPost, "/applications/app-1/payments", map[string]string{"phone": "0712345678"})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusAccepted))
			gomega.Expect(svc.lastAppID).To(gomega.Equal("app-1"))
			gomega.Expect(svc.lastPhone).To(gomega.Equal("0712345678"))

			var resp payment.SessionResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Status).To(gomega.Equal(payment.StatusPending))
			gomega.Expect(resp.CheckoutID).To(gomega.Equal("ws_CO_1"))
			gomega.Expect(resp.Terminal).To(gomega.BeFalse())
		})

		ginkgo.It("should require a phone number", func() {
			rec := do(http.MethodPost, "/applications/app-1/payments", map[string]string{"phone": " "})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(svc.lastAppID).To(gomega.BeEmpty())
		})

		ginkgo.It("should reject an unknown body field", func() {
			rec := do(http.MethodPost, "/applications/app-1/payments", map[string]string{"phone": "0712345678", "amount": "1"})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should include the failed session when the gateway refuses", func() {
			failed := payment.NewSession("app-1", "user-1", "254712345678", "Tourist", 1000, "KSH", 30, 0)
			failed.Fail("Invalid till")
			svc.session = failed
			svc.err = internal.NewExternalError("Invalid till", internal.ErrCodePaymentGatewayRejected, nil)

			rec := do(http.MethodPost, "/applications/app-1/payments", map[string]string{"phone": "0712345678"})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadGateway))
			var body struct {
				Error struct {
					Code    string                  `json:"code"`
					Message string                  `json:"message"`
					Details payment.SessionResponse `json:"details"`
				} `json:"error"`
			}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body.Error.Message).To(gomega.Equal("Invalid till"))
			gomega.Expect(body.Error.Details.Status).To(gomega.Equal(payment.StatusFailed))
		})

		ginkgo.It("should require an authenticated user", func() {
			user = nil
			rec := do(http.MethodPost, "/applications/app-1/payments", map[string]string{"phone": "0712345678"})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("ListForApplication", func() {
		ginkgo.It("should list sessions for the application", func() {
			svc.sessions = []*payment.Session{pendingSession(), pendingSession()}

			rec := do(http.MethodGet, "/applications/app-1/payments", nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var resp payment.SessionListResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Payments).To(gomega.HaveLen(2))
		})

		ginkgo.It("should map a missing application to 404", func() {
			svc.err = internal.ErrApplicationNotFound
			rec := do(http.MethodGet, "/applications/nope/payments", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
		})
	})

	ginkgo.Describe("Get", func() {
		ginkgo.It("should return the session for the caller", func() {
			svc.session = pendingSession()
			rec := do(http.MethodGet, "/payments/"+svc.session.ID, nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(svc.lastSessionID).To(gomega.Equal(svc.session.ID))
			gomega.Expect(svc.lastUserID).To(gomega.Equal("user-1"))
		})
	})

	ginkgo.Describe("Recheck", func() {
		ginkgo.It("should answer 202 while verification continues", func() {
			svc.session = pendingSession()
			rec := do(http.MethodPost, "/payments/s-1/recheck", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusAccepted))
		})

		ginkgo.It("should answer 200 for an already confirmed session", func() {
			s := pendingSession()
			s.Succeed()
			svc.session = s
			rec := do(http.MethodPost, "/payments/s-1/recheck", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should surface a failed payment as a bad request", func() {
			svc.err = internal.NewValidationError("This payment failed. Please start a new payment.", internal.ErrCodePaymentFailed)
			rec := do(http.MethodPost, "/payments/s-1/recheck", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})
})
