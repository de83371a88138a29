package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rently/rent-service/internal/app"
	"github.com/rently/rent-service/internal/domain"
	"github.com/rently/rent-service/internal/store"
)

type engineStub struct {
	markPaidResult *domain.Obligation
	markPaidErr    error
	cycleSummary   *app.CycleSummary
	cycleErr       error
	cycleDate      time.Time
}

func (s *engineStub) MarkPaid(ctx context.Context, obligationID string, paymentDate time.Time, method string, amountPaid int64) (*domain.Obligation, error) {
	if s.markPaidErr != nil {
		return nil, s.markPaidErr
	}
	return s.markPaidResult, nil
}

func (s *engineStub) RunDailyCycle(ctx context.Context, today time.Time) (*app.CycleSummary, error) {
	s.cycleDate = today
	if s.cycleErr != nil {
		return nil, s.cycleErr
	}
	return s.cycleSummary, nil
}

type leaseWriterStub struct {
	created *domain.Lease
	err     error
}

func (s *leaseWriterStub) CreateLease(ctx context.Context, lease domain.Lease) (*domain.Lease, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &lease
	return &lease, nil
}

func (s *leaseWriterStub) UpdateLeaseTerms(ctx context.Context, leaseID string, rentAmount int64, rentDueDay int) (*domain.Lease, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Lease{ID: leaseID, RentAmount: rentAmount, RentDueDay: rentDueDay}, nil
}

func (s *leaseWriterStub) GetLease(ctx context.Context, tenantID, unitID string) (*domain.Lease, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Lease{TenantID: tenantID, UnitID: unitID}, nil
}

type obligationReaderStub struct {
	byTenant []domain.Obligation
	open     []domain.Obligation
}

func (s *obligationReaderStub) ListObligationsByTenant(ctx context.Context, tenantID string, limit int) ([]domain.Obligation, error) {
	return s.byTenant, nil
}

func (s *obligationReaderStub) ListOpenObligations(ctx context.Context, asOf time.Time) ([]domain.Obligation, error) {
	return s.open, nil
}

func newTestHandlers(engine *engineStub) *Handlers {
	return NewHandlers(engine, &leaseWriterStub{}, &obligationReaderStub{}, time.UTC)
}

func postPayment(t *testing.T, h *Handlers, obligationID string, payload RecordPaymentPayload) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	r := chi.NewRouter()
	r.Post("/obligations/{id}/payments", h.RecordPaymentHandler)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/obligations/%s/payments", obligationID), bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRecordPaymentHandler_Success(t *testing.T) {
	engine := &engineStub{markPaidResult: &domain.Obligation{ID: "ob-1", Status: domain.ObligationPaid}}
	h := newTestHandlers(engine)

	rec := postPayment(t, h, "ob-1", RecordPaymentPayload{Method: "e-transfer", AmountPaid: 150000})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var ob domain.Obligation
	if err := json.NewDecoder(rec.Body).Decode(&ob); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if ob.Status != domain.ObligationPaid {
		t.Errorf("expected paid status in response, got %s", ob.Status)
	}
}

func TestRecordPaymentHandler_NotFound(t *testing.T) {
	engine := &engineStub{markPaidErr: store.ErrObligationNotFound}
	h := newTestHandlers(engine)

	rec := postPayment(t, h, "missing", RecordPaymentPayload{Method: "e-transfer", AmountPaid: 150000})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRecordPaymentHandler_DoublePaymentConflict(t *testing.T) {
	engine := &engineStub{markPaidErr: fmt.Errorf("%w: obligation ob-1 is already paid", app.ErrInvalidTransition)}
	h := newTestHandlers(engine)

	rec := postPayment(t, h, "ob-1", RecordPaymentPayload{Method: "e-transfer", AmountPaid: 150000})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRecordPaymentHandler_ValidationError(t *testing.T) {
	engine := &engineStub{markPaidErr: &domain.ValidationError{Field: "amount_paid", Reason: "must be positive"}}
	h := newTestHandlers(engine)

	rec := postPayment(t, h, "ob-1", RecordPaymentPayload{Method: "e-transfer", AmountPaid: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateLeaseHandler_RejectsInvalidDueDay(t *testing.T) {
	h := newTestHandlers(&engineStub{})

	payload := CreateLeasePayload{
		TenantID:   "t1",
		UnitID:     "u1",
		RentAmount: 150000,
		RentDueDay: 32,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/leases", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateLeaseHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateLeaseTermsHandler_NotFound(t *testing.T) {
	h := NewHandlers(&engineStub{}, &leaseWriterStub{err: store.ErrLeaseNotFound}, &obligationReaderStub{}, time.UTC)

	r := chi.NewRouter()
	r.Patch("/leases/{id}", h.UpdateLeaseTermsHandler)

	body, _ := json.Marshal(UpdateLeaseTermsPayload{RentAmount: 160000, RentDueDay: 1})
	req := httptest.NewRequest(http.MethodPatch, "/leases/missing", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRunCycleHandler_UsesProvidedDate(t *testing.T) {
	engine := &engineStub{cycleSummary: &app.CycleSummary{Generated: 1}}
	h := newTestHandlers(engine)

	target := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	body, _ := json.Marshal(RunCyclePayload{Date: &target})

	req := httptest.NewRequest(http.MethodPost, "/cycle/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.RunCycleHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !engine.cycleDate.Equal(target) {
		t.Errorf("expected cycle run for 2025-05-01, got %s", engine.cycleDate)
	}
}
