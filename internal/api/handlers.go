/**
 * @description
 * This file contains the HTTP handlers for the rent service: lease creation,
 * payment recording, obligation listings, and the manual daily-cycle
 * trigger. Handlers parse requests, call the engine or stores, and map
 * domain errors to HTTP status codes.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rently/rent-service/internal/app"
	"github.com/rently/rent-service/internal/domain"
	"github.com/rently/rent-service/internal/store"
)

// RentEngine defines the engine operations the handlers invoke.
type RentEngine interface {
	MarkPaid(ctx context.Context, obligationID string, paymentDate time.Time, method string, amountPaid int64) (*domain.Obligation, error)
	RunDailyCycle(ctx context.Context, today time.Time) (*app.CycleSummary, error)
}

// LeaseWriter defines the lease store operations the handlers need.
type LeaseWriter interface {
	CreateLease(ctx context.Context, lease domain.Lease) (*domain.Lease, error)
	UpdateLeaseTerms(ctx context.Context, leaseID string, rentAmount int64, rentDueDay int) (*domain.Lease, error)
	GetLease(ctx context.Context, tenantID, unitID string) (*domain.Lease, error)
}

// ObligationReader defines the obligation store operations the handlers need.
type ObligationReader interface {
	ListObligationsByTenant(ctx context.Context, tenantID string, limit int) ([]domain.Obligation, error)
	ListOpenObligations(ctx context.Context, asOf time.Time) ([]domain.Obligation, error)
}

// Handlers holds the dependencies for the HTTP handlers.
type Handlers struct {
	engine      RentEngine
	leases      LeaseWriter
	obligations ObligationReader
	loc         *time.Location
}

// NewHandlers creates the handler set.
func NewHandlers(engine RentEngine, leases LeaseWriter, obligations ObligationReader, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{engine: engine, leases: leases, obligations: obligations, loc: loc}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

// CreateLeasePayload is the request body for lease creation.
type CreateLeasePayload struct {
	TenantID   string     `json:"tenant_id"`
	UnitID     string     `json:"unit_id"`
	RentAmount int64      `json:"rent_amount"`
	RentDueDay int        `json:"rent_due_day"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	IsPrimary  bool       `json:"is_primary"`
}

// CreateLeaseHandler creates a new lease after validating its terms.
func (h *Handlers) CreateLeaseHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateLeasePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	lease := domain.Lease{
		ID:         uuid.NewString(),
		TenantID:   payload.TenantID,
		UnitID:     payload.UnitID,
		RentAmount: payload.RentAmount,
		RentDueDay: payload.RentDueDay,
		StartDate:  payload.StartDate,
		EndDate:    payload.EndDate,
		IsPrimary:  payload.IsPrimary,
	}
	if err := lease.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.leases.CreateLease(r.Context(), lease)
	if err != nil {
		log.Printf("level=error component=api endpoint=create_lease outcome=failed tenant_id=%s err=%v", payload.TenantID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not create lease.")
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateLeaseTermsPayload is the request body for a rent terms change.
type UpdateLeaseTermsPayload struct {
	RentAmount int64 `json:"rent_amount"`
	RentDueDay int   `json:"rent_due_day"`
}

// UpdateLeaseTermsHandler changes the rent terms on an existing lease, e.g.
// at renewal. Obligations already created keep their snapshot amounts.
func (h *Handlers) UpdateLeaseTermsHandler(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "id")

	var payload UpdateLeaseTermsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	if payload.RentAmount < 0 {
		h.writeError(w, http.StatusBadRequest, "rent_amount must not be negative.")
		return
	}
	if payload.RentDueDay < 1 || payload.RentDueDay > 31 {
		h.writeError(w, http.StatusBadRequest, "rent_due_day must be between 1 and 31.")
		return
	}

	lease, err := h.leases.UpdateLeaseTerms(r.Context(), leaseID, payload.RentAmount, payload.RentDueDay)
	if err != nil {
		if errors.Is(err, store.ErrLeaseNotFound) {
			h.writeError(w, http.StatusNotFound, "Lease not found.")
			return
		}
		log.Printf("level=error component=api endpoint=update_lease_terms outcome=failed lease_id=%s err=%v", leaseID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not update lease.")
		return
	}

	h.writeJSON(w, http.StatusOK, lease)
}

// GetLeaseHandler returns the current lease for a tenant-unit pair.
func (h *Handlers) GetLeaseHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	unitID := chi.URLParam(r, "unitID")

	lease, err := h.leases.GetLease(r.Context(), tenantID, unitID)
	if err != nil {
		if errors.Is(err, store.ErrLeaseNotFound) {
			h.writeError(w, http.StatusNotFound, "Lease not found.")
			return
		}
		log.Printf("level=error component=api endpoint=get_lease outcome=failed tenant_id=%s unit_id=%s err=%v", tenantID, unitID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve lease.")
		return
	}

	h.writeJSON(w, http.StatusOK, lease)
}

// RecordPaymentPayload is the request body for recording a payment.
type RecordPaymentPayload struct {
	PaymentDate time.Time `json:"payment_date"`
	Method      string    `json:"method"`
	AmountPaid  int64     `json:"amount_paid"`
}

// RecordPaymentHandler records an external payment confirmation against an
// obligation.
func (h *Handlers) RecordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	obligationID := chi.URLParam(r, "id")

	var payload RecordPaymentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	if payload.PaymentDate.IsZero() {
		payload.PaymentDate = time.Now().In(h.loc)
	}

	ob, err := h.engine.MarkPaid(r.Context(), obligationID, payload.PaymentDate, payload.Method, payload.AmountPaid)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.Is(err, store.ErrObligationNotFound):
			h.writeError(w, http.StatusNotFound, "Obligation not found.")
		case errors.Is(err, app.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &validationErr):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=record_payment outcome=failed obligation_id=%s err=%v", obligationID, err)
			h.writeError(w, http.StatusInternalServerError, "Could not record payment.")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, ob)
}

// ListTenantObligationsHandler returns a tenant's billing history.
func (h *Handlers) ListTenantObligationsHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	obligations, err := h.obligations.ListObligationsByTenant(r.Context(), tenantID, 24)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_tenant_obligations outcome=failed tenant_id=%s err=%v", tenantID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve obligations.")
		return
	}
	if obligations == nil {
		obligations = []domain.Obligation{}
	}

	h.writeJSON(w, http.StatusOK, obligations)
}

// ListOpenObligationsHandler returns every obligation still awaiting full
// payment.
func (h *Handlers) ListOpenObligationsHandler(w http.ResponseWriter, r *http.Request) {
	obligations, err := h.obligations.ListOpenObligations(r.Context(), time.Now().In(h.loc))
	if err != nil {
		log.Printf("level=error component=api endpoint=list_open_obligations outcome=failed err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve obligations.")
		return
	}
	if obligations == nil {
		obligations = []domain.Obligation{}
	}

	h.writeJSON(w, http.StatusOK, obligations)
}

// RunCyclePayload optionally overrides the cycle date, mainly for backfills.
type RunCyclePayload struct {
	Date *time.Time `json:"date,omitempty"`
}

// RunCycleHandler triggers the daily rent cycle outside the cron schedule.
func (h *Handlers) RunCycleHandler(w http.ResponseWriter, r *http.Request) {
	var payload RunCyclePayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
			return
		}
	}

	today := time.Now().In(h.loc)
	if payload.Date != nil {
		today = *payload.Date
	}

	if landlordID, ok := LandlordFromContext(r.Context()); ok {
		log.Printf("level=info component=api endpoint=run_cycle landlord_id=%s date=%s", landlordID, today.Format("2006-01-02"))
	}

	summary, err := h.engine.RunDailyCycle(r.Context(), today)
	if err != nil {
		log.Printf("level=error component=api endpoint=run_cycle outcome=failed err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Daily cycle failed.")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}
