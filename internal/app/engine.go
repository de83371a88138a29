/**
 * @description
 * Core business logic for the rent cycle: obligation generation, the
 * obligation state machine, and the escalation policy. Every entry point
 * takes an explicit `today` so the engine is deterministic under test and
 * never coupled to the wall clock.
 *
 * Batch semantics: per-lease and per-obligation failures are collected and
 * reported in the result, never aborting sibling iterations. Each unit of
 * work commits independently, so an aborted run is safe to rerun; the
 * obligations table's uniqueness constraint makes generation idempotent.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rently/rent-service/internal/domain"
	"github.com/rently/rent-service/internal/store"
)

// ErrInvalidTransition is returned when a payment is submitted against an
// obligation already in a terminal state.
var ErrInvalidTransition = errors.New("invalid obligation status transition")

// LeaseStore defines the lease operations the engine needs.
type LeaseStore interface {
	ListActiveLeases(ctx context.Context, asOf time.Time) ([]domain.Lease, error)
}

// ObligationStore defines the obligation operations the engine needs.
type ObligationStore interface {
	CreateObligation(ctx context.Context, ob domain.Obligation) (*domain.Obligation, error)
	GetObligation(ctx context.Context, id string) (*domain.Obligation, error)
	MarkObligationsLate(ctx context.Context, asOf time.Time) ([]domain.Obligation, error)
	ListLateObligations(ctx context.Context) ([]domain.Obligation, error)
	RecordPayment(ctx context.Context, id, status string, paymentDate time.Time, method string) (*domain.Obligation, error)
	SetPaymentRequestRef(ctx context.Context, id, ref string) error
}

// PaymentLinker creates external payment request links.
type PaymentLinker interface {
	CreateRequestLink(ctx context.Context, recipientEmail, recipientName string, amount int64, message string) (string, error)
}

// EventPublisher publishes obligation lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// NotificationDispatcher delivers notifications and records their outcome.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, tenantID string, obligationID *string, notificationType, channel string, params map[string]string) (*domain.NotificationRecord, error)
}

const eventsExchange = "rently.events"

// Engine owns obligation generation, lateness sweeps, payments and
// escalation checks.
type Engine struct {
	leases        LeaseStore
	obligations   ObligationStore
	notifications NotificationStore
	dispatcher    NotificationDispatcher
	directory     TenantDirectory
	linker        PaymentLinker
	publisher     EventPublisher
	logger        *slog.Logger
	n4AfterDays   int
	l1AfterDays   int
}

// NewEngine creates a rent cycle engine. The publisher and linker may be nil
// when the corresponding collaborator is not configured.
func NewEngine(
	leases LeaseStore,
	obligations ObligationStore,
	notifications NotificationStore,
	dispatcher NotificationDispatcher,
	directory TenantDirectory,
	linker PaymentLinker,
	publisher EventPublisher,
	logger *slog.Logger,
	n4AfterDays, l1AfterDays int,
) *Engine {
	return &Engine{
		leases:        leases,
		obligations:   obligations,
		notifications: notifications,
		dispatcher:    dispatcher,
		directory:     directory,
		linker:        linker,
		publisher:     publisher,
		logger:        logger,
		n4AfterDays:   n4AfterDays,
		l1AfterDays:   l1AfterDays,
	}
}

// GenerateResult summarizes one obligation generation run.
type GenerateResult struct {
	Created             []domain.Obligation
	NotificationsSent   int
	NotificationsFailed int
	Errors              []string
}

// SweepResult summarizes one lateness sweep.
type SweepResult struct {
	Latened             []domain.Obligation
	NotificationsSent   int
	NotificationsFailed int
	Errors              []string
}

// EscalationEvent is a legal-notice-eligible event derived from sustained
// lateness.
type EscalationEvent struct {
	Obligation domain.Obligation
	FormType   string
	DaysLate   int
}

// EscalationResult summarizes one escalation sweep.
type EscalationResult struct {
	Events              []EscalationEvent
	NotificationsSent   int
	NotificationsFailed int
	Errors              []string
}

// CycleSummary is the outcome of one full daily cycle.
type CycleSummary struct {
	Date                time.Time `json:"date"`
	Generated           int       `json:"generated"`
	Latened             int       `json:"latened"`
	Escalated           int       `json:"escalated"`
	NotificationsSent   int       `json:"notifications_sent"`
	NotificationsFailed int       `json:"notifications_failed"`
	Errors              []string  `json:"errors,omitempty"`
}

// GenerateDue creates this period's obligations for every active lease whose
// due day has been reached, skipping pairs that already have one. Safe to
// re-run for the same date.
func (e *Engine) GenerateDue(ctx context.Context, today time.Time) (*GenerateResult, error) {
	today = domain.DateOnly(today)

	leases, err := e.leases.ListActiveLeases(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list active leases: %w", err)
	}

	result := &GenerateResult{}
	for _, lease := range leases {
		dueDate := domain.DueDateInMonth(today, lease.RentDueDay)
		if today.Before(dueDate) {
			continue
		}
		// A lease starting mid-month after its due day waits for the
		// next period; an obligation must not predate its lease.
		if dueDate.Before(domain.DateOnly(lease.StartDate)) {
			continue
		}

		created, err := e.obligations.CreateObligation(ctx, domain.Obligation{
			ID:        uuid.NewString(),
			TenantID:  lease.TenantID,
			UnitID:    lease.UnitID,
			AmountDue: lease.RentAmount,
			DueDate:   dueDate,
			Status:    domain.ObligationPending,
		})
		if errors.Is(err, store.ErrDuplicateObligation) {
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("lease %s: %v", lease.ID, err))
			continue
		}

		e.attachPaymentRequest(ctx, created)

		params := map[string]string{
			"amount":   formatAmount(created.AmountDue),
			"due_date": created.DueDate.Format("2006-01-02"),
			"unit_id":  created.UnitID,
		}
		if created.PaymentRequestRef != nil {
			params["payment_link"] = *created.PaymentRequestRef
		}
		e.notify(ctx, created.TenantID, &created.ID, domain.NotificationRentDue, params,
			&result.NotificationsSent, &result.NotificationsFailed, &result.Errors)

		e.publishEvent(ctx, domain.EventObligationCreated, *created, 0, "")
		result.Created = append(result.Created, *created)
	}

	return result, nil
}

// SweepLate transitions every pending obligation past its due date to late
// and sends the late notice for each. This is the state machine's only
// automatic transition.
func (e *Engine) SweepLate(ctx context.Context, today time.Time) (*SweepResult, error) {
	today = domain.DateOnly(today)

	latened, err := e.obligations.MarkObligationsLate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to mark obligations late: %w", err)
	}

	result := &SweepResult{Latened: latened}
	for _, ob := range latened {
		daysLate := domain.DaysBetween(ob.DueDate, today)
		params := map[string]string{
			"amount":    formatAmount(ob.AmountDue),
			"due_date":  ob.DueDate.Format("2006-01-02"),
			"days_late": strconv.Itoa(daysLate),
		}
		e.notify(ctx, ob.TenantID, &ob.ID, domain.NotificationRentLate, params,
			&result.NotificationsSent, &result.NotificationsFailed, &result.Errors)

		e.publishEvent(ctx, domain.EventObligationLate, ob, daysLate, "")
	}

	return result, nil
}

// MarkPaid records an external payment confirmation against an obligation.
// Full payment reaches paid, a positive underpayment reaches partial. Both
// are terminal: a second submission is rejected with ErrInvalidTransition so
// the caller can detect the duplicate.
func (e *Engine) MarkPaid(ctx context.Context, obligationID string, paymentDate time.Time, method string, amountPaid int64) (*domain.Obligation, error) {
	if amountPaid <= 0 {
		return nil, &domain.ValidationError{Field: "amount_paid", Reason: "must be positive"}
	}

	ob, err := e.obligations.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if !ob.IsOpen() {
		return nil, fmt.Errorf("%w: obligation %s is already %s", ErrInvalidTransition, ob.ID, ob.Status)
	}

	status := domain.ObligationPaid
	if amountPaid < ob.AmountDue {
		status = domain.ObligationPartial
	}

	updated, err := e.obligations.RecordPayment(ctx, obligationID, status, domain.DateOnly(paymentDate), method)
	if err != nil {
		// The store's status predicate catches a payment that settled the
		// obligation after our read.
		if errors.Is(err, store.ErrObligationClosed) {
			return nil, fmt.Errorf("%w: obligation %s is already settled", ErrInvalidTransition, obligationID)
		}
		return nil, err
	}

	if status == domain.ObligationPaid {
		params := map[string]string{
			"amount":    formatAmount(updated.AmountDue),
			"paid_date": domain.DateOnly(paymentDate).Format("2006-01-02"),
			"method":    method,
		}
		if _, err := e.dispatcher.Dispatch(ctx, updated.TenantID, &updated.ID, domain.NotificationReceipt, domain.ChannelWhatsApp, params); err != nil {
			e.logger.Error("failed to dispatch receipt", "obligation_id", updated.ID, "error", err)
		}
		e.publishEvent(ctx, domain.EventObligationPaid, *updated, 0, "")
	} else {
		e.publishEvent(ctx, domain.EventObligationPartial, *updated, 0, "")
	}

	return updated, nil
}

// CheckEscalation evaluates every late obligation against the legal-notice
// thresholds: N4 at 14+ days late, L1 at 15+. The thresholds are independent
// and each form fires at most once per obligation, guarded by the existing
// notification records.
func (e *Engine) CheckEscalation(ctx context.Context, today time.Time) (*EscalationResult, error) {
	today = domain.DateOnly(today)

	late, err := e.obligations.ListLateObligations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list late obligations: %w", err)
	}

	result := &EscalationResult{}
	for _, ob := range late {
		daysLate := domain.DaysBetween(ob.DueDate, today)
		if daysLate >= e.n4AfterDays {
			e.escalate(ctx, ob, domain.NotificationFormN4, daysLate, result)
		}
		if daysLate >= e.l1AfterDays {
			e.escalate(ctx, ob, domain.NotificationFormL1, daysLate, result)
		}
	}

	return result, nil
}

func (e *Engine) escalate(ctx context.Context, ob domain.Obligation, formType string, daysLate int, result *EscalationResult) {
	_, err := e.notifications.FindNotification(ctx, ob.ID, formType)
	if err == nil {
		return // already issued
	}
	if !errors.Is(err, store.ErrNotificationNotFound) {
		result.Errors = append(result.Errors, fmt.Sprintf("obligation %s: %v", ob.ID, err))
		return
	}

	params := map[string]string{
		"unit_id":    ob.UnitID,
		"amount_due": formatAmount(ob.AmountDue),
		"due_date":   ob.DueDate.Format("2006-01-02"),
		"days_late":  strconv.Itoa(daysLate),
	}
	// Without a notification record the once-per-form guard has nothing to
	// key on, so the escalation is not counted and retries next run.
	if !e.notify(ctx, ob.TenantID, &ob.ID, formType, params,
		&result.NotificationsSent, &result.NotificationsFailed, &result.Errors) {
		return
	}

	e.publishEvent(ctx, domain.EventObligationEscalated, ob, daysLate, formType)
	result.Events = append(result.Events, EscalationEvent{Obligation: ob, FormType: formType, DaysLate: daysLate})
}

// RunDailyCycle is the single orchestrating entry point the scheduler
// invokes once per day: generation, then the lateness sweep, then the
// escalation check. The summary always completes; partial failures are
// reported, not thrown.
func (e *Engine) RunDailyCycle(ctx context.Context, today time.Time) (*CycleSummary, error) {
	today = domain.DateOnly(today)
	summary := &CycleSummary{Date: today}

	generated, err := e.GenerateDue(ctx, today)
	if err != nil {
		return nil, err
	}
	summary.Generated = len(generated.Created)
	summary.NotificationsSent += generated.NotificationsSent
	summary.NotificationsFailed += generated.NotificationsFailed
	summary.Errors = append(summary.Errors, generated.Errors...)

	swept, err := e.SweepLate(ctx, today)
	if err != nil {
		return nil, err
	}
	summary.Latened = len(swept.Latened)
	summary.NotificationsSent += swept.NotificationsSent
	summary.NotificationsFailed += swept.NotificationsFailed
	summary.Errors = append(summary.Errors, swept.Errors...)

	escalated, err := e.CheckEscalation(ctx, today)
	if err != nil {
		return nil, err
	}
	summary.Escalated = len(escalated.Events)
	summary.NotificationsSent += escalated.NotificationsSent
	summary.NotificationsFailed += escalated.NotificationsFailed
	summary.Errors = append(summary.Errors, escalated.Errors...)

	return summary, nil
}

// notify dispatches a WhatsApp notification and tallies the delivery outcome
// into the enclosing result. It reports whether a notification record was
// created; a false return means the dispatch never reached the store.
func (e *Engine) notify(ctx context.Context, tenantID string, obligationID *string, notificationType string, params map[string]string, sent, failed *int, errs *[]string) bool {
	rec, err := e.dispatcher.Dispatch(ctx, tenantID, obligationID, notificationType, domain.ChannelWhatsApp, params)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("dispatch %s for tenant %s: %v", notificationType, tenantID, err))
		*failed++
		return false
	}
	if rec.DeliveryStatus == domain.DeliveryFailed {
		*failed++
		return true
	}
	*sent++
	return true
}

// attachPaymentRequest creates an Interac request link for a fresh
// obligation and stores its reference. Link failures are logged only; the
// obligation stands regardless.
func (e *Engine) attachPaymentRequest(ctx context.Context, ob *domain.Obligation) {
	if e.linker == nil {
		return
	}

	tenant, err := e.directory.GetTenant(ctx, ob.TenantID)
	if err != nil {
		e.logger.Error("failed to resolve tenant for payment request", "obligation_id", ob.ID, "error", err)
		return
	}

	message := fmt.Sprintf("Rent for unit %s due %s", ob.UnitID, ob.DueDate.Format("2006-01-02"))
	link, err := e.linker.CreateRequestLink(ctx, tenant.Email, tenant.FullName, ob.AmountDue, message)
	if err != nil {
		e.logger.Error("failed to create payment request link", "obligation_id", ob.ID, "error", err)
		return
	}

	if err := e.obligations.SetPaymentRequestRef(ctx, ob.ID, link); err != nil {
		e.logger.Error("failed to store payment request ref", "obligation_id", ob.ID, "error", err)
		return
	}
	ob.PaymentRequestRef = &link
}

func (e *Engine) publishEvent(ctx context.Context, routingKey string, ob domain.Obligation, daysLate int, formType string) {
	if e.publisher == nil {
		return
	}

	payload := domain.ObligationEvent{
		ObligationID: ob.ID,
		TenantID:     ob.TenantID,
		UnitID:       ob.UnitID,
		AmountDue:    ob.AmountDue,
		DueDate:      ob.DueDate,
		Status:       ob.Status,
		DaysLate:     daysLate,
		FormType:     formType,
		Timestamp:    time.Now().UTC(),
	}

	if err := e.publisher.Publish(ctx, eventsExchange, routingKey, payload); err != nil {
		e.logger.Error("failed to publish event", "routing_key", routingKey, "obligation_id", ob.ID, "error", err)
	}
}

// formatAmount renders cents as a dollar string for message templates.
func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
