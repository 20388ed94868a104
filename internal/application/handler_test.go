package application_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/application"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var _ = Describe("Application Handler", func() {
	var (
		router chi.Router
		user   *internal.User
	)

	do := func(method, path string, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		if user != nil {
			req = req.WithContext(internal.ContextWithUser(context.Background(), user))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		user = &internal.User{ID: "user-1"}
		service := application.NewService(NewMockRepository(), logger.Discard())
		h := application.NewHandler(service, logger.Discard())

		router = chi.NewRouter()
		router.Post("/applications", h.Submit)
		router.Get("/applications", h.List)
		router.Get("/applications/{id}", h.Get)
	})

	It("should create and then fetch an application", func() {
		payload, _ := json.Marshal(validRequest())
		rec := do(http.MethodPost, "/applications", string(payload))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var created application.ApplicationResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created.IsActive).To(BeFalse())
		Expect(created.FullName).To(Equal("Jane Wanjiku"))

		rec = do(http.MethodGet, "/applications/"+created.ID, "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/applications", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var list application.ApplicationListResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Applications).To(HaveLen(1))
	})

	It("should return 400 with field details for an invalid body", func() {
		rec := do(http.MethodPost, "/applications", `{"first_name":"Jane"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("last_name"))
	})

	It("should return 400 for malformed JSON", func() {
		rec := do(http.MethodPost, "/applications", `{`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for an unknown application", func() {
		rec := do(http.MethodGet, "/applications/missing", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should return 401 without a user", func() {
		user = nil
		rec := do(http.MethodGet, "/applications", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
