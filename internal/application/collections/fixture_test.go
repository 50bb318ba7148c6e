package collections_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/memory"
)

// 10:00 en Bogotá: "hoy" es 2025-03-10 tanto en UTC como en la zona de la organización.
var fixtureNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []ports.OutboundMessage
	err     error
	receipt *ports.SendReceipt
}

func (f *fakeSender) Send(_ context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return nil, f.err
	}
	if f.receipt != nil {
		r := *f.receipt
		return &r, nil
	}
	return &ports.SendReceipt{ExternalID: "ext-" + msg.AttemptID}, nil
}

type fakeClassifier struct {
	out *dto.ReplyClassificationDTO
	err error
}

func (f *fakeClassifier) ClassifyReply(_ context.Context, _ dto.ReplyClassificationInput) (*dto.ReplyClassificationDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.out
	return &out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ports.DomainEvent
}

func (f *fakePublisher) Publish(_ context.Context, events ...ports.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *fakePublisher) count(typ string) int {
	n := 0
	for _, t := range f.types() {
		if t == typ {
			n++
		}
	}
	return n
}

type fakeRenderer struct {
	mu   sync.Mutex
	last *ports.Statement
	err  error
}

func (f *fakeRenderer) RenderStatement(_ context.Context, st ports.Statement) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.last = &st
	return []byte("%PDF-1.4"), nil
}

type fixture struct {
	svc        *collections.Service
	store      *memory.Store
	repos      collections.Repositories
	clock      *collections.FixedClock
	sender     *fakeSender
	classifier *fakeClassifier
	events     *fakePublisher
	renderer   *fakeRenderer
	rc         repository.RepositoryContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedOrganization(entity.Organization{ID: "org-1", Name: "Acme Cobranzas", Status: entity.OrganizationActive})
	f := &fixture{
		store:      store,
		repos:      store.Repositories(),
		clock:      &collections.FixedClock{At: fixtureNow},
		sender:     &fakeSender{},
		classifier: &fakeClassifier{out: &dto.ReplyClassificationDTO{Intent: "OTHER"}},
		events:     &fakePublisher{},
		renderer:   &fakeRenderer{},
		rc:         repository.RepositoryContext{OrganizationID: "org-1", ActorID: "user-1"},
	}
	f.svc = collections.NewService(memory.NewTxRunner(store), f.repos, f.sender, f.classifier, f.events, f.renderer, f.clock, nil)
	return f
}

func (f *fixture) company(t *testing.T, name string) *entity.CustomerCompany {
	t.Helper()
	c, err := f.svc.CreateCustomerCompany(context.Background(), f.rc, dto.CreateCustomerCompanyRequest{Name: name, TaxID: "900123456"})
	require.NoError(t, err)
	return c
}

func (f *fixture) contact(t *testing.T, companyID string) *entity.Contact {
	t.Helper()
	c, err := f.svc.CreateContact(context.Background(), f.rc, dto.CreateContactRequest{
		CustomerCompanyID: companyID,
		FirstName:         "Laura",
		LastName:          "Gómez",
		Email:             "Laura@Cliente.co",
		WhatsappNumber:    "+57 300 123 4567",
		IsBillingContact:  true,
	})
	require.NoError(t, err)
	return c
}

type invoiceOpts struct {
	number   string
	issue    string
	due      string
	amount   int64
	expected *string
	status   string
	openCase bool
}

func (f *fixture) invoice(t *testing.T, companyID string, o invoiceOpts) *dto.InvoiceDetailResponse {
	t.Helper()
	if o.issue == "" {
		o.issue = "2025-03-01"
	}
	out, err := f.svc.CreateInvoice(context.Background(), f.rc, dto.CreateInvoiceRequest{
		CustomerCompanyID:   companyID,
		Number:              o.number,
		IssueDate:           o.issue,
		DueDate:             o.due,
		Amount:              decimal.NewFromInt(o.amount),
		Currency:            "COP",
		Status:              o.status,
		ExpectedPaymentDate: o.expected,
		OpenCase:            o.openCase,
	})
	require.NoError(t, err)
	return out
}

// withCase empresa + contacto de facturación + factura PENDING con caso abierto.
func (f *fixture) withCase(t *testing.T) (*entity.Contact, *dto.InvoiceDetailResponse) {
	t.Helper()
	company := f.company(t, "Cliente Uno")
	contact := f.contact(t, company.ID)
	inv := f.invoice(t, company.ID, invoiceOpts{number: "FV-100", due: "2025-03-20", amount: 1000, openCase: true})
	require.NotNil(t, inv.Case)
	return contact, inv
}

func strPtr(s string) *string { return &s }

var errTransporte = errors.New("smtp: conexión rechazada")
