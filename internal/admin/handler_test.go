package admin_test

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/perejack/globalvisaapplication/internal/admin"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var _ = Describe("Admin Handler", func() {
	var (
		router chi.Router
		store  *MockStore
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	BeforeEach(func() {
		phone := "0712345678"
		store = &MockStore{
			counts: admin.Counts{TotalApplicants: 2, ActiveCards: 1, PendingActivation: 1},
			applicants: []*admin.Applicant{
				{ID: "app-1", FirstName: "Jane", LastName: "Wanjiku", Email: "jane@example.com", Phone: &phone, Nationality: "Kenyan", VisaType: "Tourist", CardNumber: "4532 1234 5678 9012", IsActive: true, CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)},
				{ID: "app-2", FirstName: "Otieno", LastName: "Odhiambo", Email: "otieno@example.com", Nationality: "Kenyan", VisaType: "Work Permit", CardNumber: "4532 0000 1111 2222", CreatedAt: time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)},
			},
		}
		service := admin.NewService(store, admin.Config{ActivationFee: 1000, Currency: "KSH"}, logger.Discard())
		h := admin.NewHandler(service, logger.Discard())

		router = chi.NewRouter()
		router.Get("/admin/stats", h.Stats)
		router.Get("/admin/applications", h.ListApplicants)
		router.Get("/admin/applications/export", h.ExportApplicants)
	})

	It("should render the dashboard figures", func() {
		rec := get("/admin/stats")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var stats admin.StatsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
		Expect(stats.TotalApplicants).To(Equal(int64(2)))
		Expect(stats.TotalRevenue).To(Equal(int64(1000)))
		Expect(stats.Currency).To(Equal("KSH"))
	})

	It("should pass search and paging through to the store", func() {
		rec := get("/admin/applications?q=jane&status=active&limit=20&offset=40")
		Expect(rec.Code).To(Equal(http.StatusOK))

		Expect(store.filter.Query).To(Equal("jane"))
		Expect(store.filter.State).To(Equal(admin.CardStateActive))
		Expect(store.filter.Limit).To(Equal(20))
		Expect(store.filter.Offset).To(Equal(40))

		var list admin.ApplicantListResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Applicants).To(HaveLen(2))
		Expect(list.Applicants[0].FullName).To(Equal("Jane Wanjiku"))
		Expect(list.Applicants[0].Status).To(Equal(admin.CardStateActive))
		Expect(list.Applicants[1].Status).To(Equal(admin.CardStatePending))
		Expect(list.Limit).To(Equal(20))
	})

	It("should return 400 for a non-numeric limit", func() {
		rec := get("/admin/applications?limit=many")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("limit"))
	})

	It("should export the applicant list as CSV", func() {
		rec := get("/admin/applications/export")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/csv"))

		rows, err := csv.NewReader(rec.Body).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[0][0]).To(Equal("Name"))
		Expect(rows[1]).To(Equal([]string{"Jane Wanjiku", "jane@example.com", "0712345678", "Tourist", "Kenyan", "4532 1234 5678 9012", "Active", "2026-10-01"}))
		Expect(rows[2][2]).To(Equal("N/A"))
		Expect(rows[2][6]).To(Equal("Pending"))
		Expect(store.filter.Limit).To(Equal(admin.MaxPageSize))
	})
})
