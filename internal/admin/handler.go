package admin

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	errors "github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/transport"
)

type ServiceAPI interface {
	Stats(ctx context.Context) (*Stats, error)
	ListApplicants(ctx context.Context, filter Filter) ([]*Applicant, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     service,
	}
}

// Stats handles GET /api/v1/admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats.ToResponse())
}

// ListApplicants handles GET /api/v1/admin/applications
func (h *Handler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	filter, appErr := parseFilter(r.URL.Query())
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	applicants, err := h.Service.ListApplicants(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toApplicantList(applicants, filter.paged()))
}

// ExportApplicants handles GET /api/v1/admin/applications/export
func (h *Handler) ExportApplicants(w http.ResponseWriter, r *http.Request) {
	filter, appErr := parseFilter(r.URL.Query())
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	filter.Limit = MaxPageSize

	applicants, err := h.Service.ListApplicants(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="applicants-export.csv"`)
	w.WriteHeader(http.StatusOK)

	out := csv.NewWriter(w)
	_ = out.Write([]string{"Name", "Email", "Phone", "Visa Type", "Nationality", "Card Number", "Status", "Applied"})
	for _, a := range applicants {
		phone := "N/A"
		if a.Phone != nil && *a.Phone != "" {
			phone = *a.Phone
		}
		status := "Pending"
		if a.IsActive {
			status = "Active"
		}
		_ = out.Write([]string{
			a.FullName(), a.Email, phone, a.VisaType, a.Nationality, a.CardNumber, status,
			a.CreatedAt.Format("2006-01-02"),
		})
	}
	out.Flush()
	if err := out.Error(); err != nil {
		h.Logger.Error("failed to write applicant export", "error", err)
	}
}

func parseFilter(query url.Values) (Filter, *errors.AppError) {
	filter := Filter{
		Query: query.Get("q"),
		State: CardState(query.Get("status")),
	}

	var err error
	if v := query.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, errors.NewValidationFieldError("limit", fmt.Sprintf("limit must be a number, got %q", v), errors.ErrCodeValidationFailed)
		}
	}
	if v := query.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			return filter, errors.NewValidationFieldError("offset", fmt.Sprintf("offset must be a number, got %q", v), errors.ErrCodeValidationFailed)
		}
	}
	return filter, nil
}
