package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/rently/rent-service/internal/domain"
)

type transportStub struct {
	templateErr   error
	documentErr   error
	sentTemplates []string
	sentDocuments []string
}

func (s *transportStub) SendTemplate(ctx context.Context, phone, template string, params map[string]string) (string, error) {
	if s.templateErr != nil {
		return "", s.templateErr
	}
	s.sentTemplates = append(s.sentTemplates, template)
	return "wamid.template." + template, nil
}

func (s *transportStub) SendDocument(ctx context.Context, phone, filename string, document []byte) (string, error) {
	if s.documentErr != nil {
		return "", s.documentErr
	}
	s.sentDocuments = append(s.sentDocuments, filename)
	return "wamid.document." + filename, nil
}

type rendererStub struct {
	err      error
	rendered []string
	fields   map[string]string
}

func (s *rendererStub) Render(ctx context.Context, formType string, fields map[string]string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.rendered = append(s.rendered, formType)
	s.fields = fields
	return []byte("%PDF-1.7 " + formType), nil
}

func newTestDispatcher(notifications NotificationStore, transport MessageTransport, renderer DocumentRenderer) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(notifications, transport, renderer, directoryStub{}, logger)
}

func TestDispatch_SendsTemplateAndRecordsExternalID(t *testing.T) {
	notifications := &notificationStoreStub{}
	transport := &transportStub{}
	dispatcher := newTestDispatcher(notifications, transport, &rendererStub{})

	obligationID := "ob-1"
	rec, err := dispatcher.Dispatch(context.Background(), "t1", &obligationID, domain.NotificationRentDue, domain.ChannelWhatsApp, map[string]string{"amount": "1500.00"})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if rec.DeliveryStatus != domain.DeliverySent {
		t.Errorf("expected sent status, got %s", rec.DeliveryStatus)
	}
	if rec.ExternalID == nil || !strings.HasPrefix(*rec.ExternalID, "wamid.template.") {
		t.Errorf("expected whatsapp message id, got %v", rec.ExternalID)
	}
	if len(transport.sentTemplates) != 1 || transport.sentTemplates[0] != domain.NotificationRentDue {
		t.Errorf("expected rent_due template send, got %v", transport.sentTemplates)
	}
}

func TestDispatch_TransportFailureIsRecordedNotReturned(t *testing.T) {
	notifications := &notificationStoreStub{}
	transport := &transportStub{templateErr: errors.New("whatsapp API returned status 500")}
	dispatcher := newTestDispatcher(notifications, transport, &rendererStub{})

	rec, err := dispatcher.Dispatch(context.Background(), "t1", nil, domain.NotificationRentLate, domain.ChannelWhatsApp, nil)
	if err != nil {
		t.Fatalf("expected transport failure to be swallowed, got %v", err)
	}
	if rec.DeliveryStatus != domain.DeliveryFailed {
		t.Errorf("expected failed status, got %s", rec.DeliveryStatus)
	}
	if len(notifications.records) != 1 {
		t.Fatalf("expected one record, got %d", len(notifications.records))
	}
}

func TestDispatch_FormTypeRendersAndSendsDocument(t *testing.T) {
	notifications := &notificationStoreStub{}
	transport := &transportStub{}
	renderer := &rendererStub{}
	dispatcher := newTestDispatcher(notifications, transport, renderer)

	obligationID := "ob-42"
	rec, err := dispatcher.Dispatch(context.Background(), "t1", &obligationID, domain.NotificationFormN4, domain.ChannelWhatsApp, map[string]string{"amount_due": "1500.00"})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if rec.DeliveryStatus != domain.DeliverySent {
		t.Errorf("expected sent status, got %s", rec.DeliveryStatus)
	}
	if len(renderer.rendered) != 1 || renderer.rendered[0] != domain.NotificationFormN4 {
		t.Errorf("expected form_n4 render, got %v", renderer.rendered)
	}
	if renderer.fields["tenant_name"] != "Jordan Tenant" {
		t.Errorf("expected tenant name in form fields, got %q", renderer.fields["tenant_name"])
	}
	if renderer.fields["amount_due"] != "1500.00" {
		t.Errorf("expected caller params merged into form fields, got %q", renderer.fields["amount_due"])
	}
	if len(transport.sentDocuments) != 1 || transport.sentDocuments[0] != "form_n4-ob-42.pdf" {
		t.Errorf("expected document send with obligation filename, got %v", transport.sentDocuments)
	}
	if len(transport.sentTemplates) != 0 {
		t.Errorf("form dispatch must not send a template, got %v", transport.sentTemplates)
	}
}

func TestDispatch_RenderFailureMarksRecordFailed(t *testing.T) {
	notifications := &notificationStoreStub{}
	renderer := &rendererStub{err: errors.New("render service returned status 502")}
	dispatcher := newTestDispatcher(notifications, &transportStub{}, renderer)

	obligationID := "ob-1"
	rec, err := dispatcher.Dispatch(context.Background(), "t1", &obligationID, domain.NotificationFormL1, domain.ChannelWhatsApp, nil)
	if err != nil {
		t.Fatalf("expected render failure to be swallowed, got %v", err)
	}
	if rec.DeliveryStatus != domain.DeliveryFailed {
		t.Errorf("expected failed status, got %s", rec.DeliveryStatus)
	}
}
