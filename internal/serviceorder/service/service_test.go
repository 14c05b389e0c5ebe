package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"shopcore/internal/audit"
	"shopcore/internal/serviceorder/models"
	"shopcore/internal/serviceorder/store"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
)

type recordingAuditor struct {
	records []audit.Record
}

func (r *recordingAuditor) Emit(_ context.Context, record audit.Record) error {
	r.records = append(r.records, record)
	return nil
}

type ServiceSuite struct {
	suite.Suite

	svc      *Service
	auditor  *recordingAuditor
	tenantID uuid.UUID
	ctx      context.Context
	now      time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.auditor = &recordingAuditor{}
	s.tenantID = uuid.New()
	s.now = time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = scope.WithScope(context.Background(), scope.ForTenant(s.tenantID))
	s.svc = New(store.NewInMemoryStore(), s.auditor, WithClock(func() time.Time { return s.now }))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) createOrder() *models.ServiceOrder {
	order, err := s.svc.Create(s.ctx, CreateOrderCommand{CustomerName: "Acme Trucking", UnitLabel: "truck-7"})
	s.Require().NoError(err)
	return order
}

func (s *ServiceSuite) TestCreateOpensInDraft() {
	order := s.createOrder()
	s.Equal(models.StatusDraft, order.Status)
	s.Equal(s.tenantID, order.TenantID)
	s.Equal(s.now, order.OpenedAt)
	s.Nil(order.InProgressAt)
	s.Nil(order.ClosedAt)
}

func (s *ServiceSuite) TestCreateWithoutScopeFails() {
	_, err := s.svc.Create(context.Background(), CreateOrderCommand{CustomerName: "Acme"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestTransitionWalksTheFullChain() {
	order := s.createOrder()

	targets := []models.Status{
		models.StatusAwaitingApproval,
		models.StatusApproved,
		models.StatusInProgress,
		models.StatusReadyToInvoice,
		models.StatusInvoiced,
		models.StatusClosed,
	}
	for _, target := range targets {
		updated, err := s.svc.Transition(s.ctx, order.ID, target)
		s.Require().NoError(err, "to %s", target)
		s.Equal(target, updated.Status)
	}
	s.Len(s.auditor.records, len(targets))
	for _, rec := range s.auditor.records {
		s.Equal(audit.ActionOrderTransition, rec.Action)
		s.Equal(s.tenantID, rec.TenantID)
	}
}

func (s *ServiceSuite) TestTransitionRejectsSkips() {
	order := s.createOrder()

	_, err := s.svc.Transition(s.ctx, order.ID, models.StatusInProgress)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	s.Contains(err.Error(), "draft")
	s.Contains(err.Error(), "in_progress")
	s.Empty(s.auditor.records)
}

func (s *ServiceSuite) TestTransitionRejectsBackwardAndSelf() {
	order := s.createOrder()
	_, err := s.svc.Transition(s.ctx, order.ID, models.StatusAwaitingApproval)
	s.Require().NoError(err)

	_, err = s.svc.Transition(s.ctx, order.ID, models.StatusDraft)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	_, err = s.svc.Transition(s.ctx, order.ID, models.StatusAwaitingApproval)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestClosedIsTerminal() {
	order := s.createOrder()
	for _, target := range []models.Status{
		models.StatusAwaitingApproval, models.StatusApproved, models.StatusInProgress,
		models.StatusReadyToInvoice, models.StatusInvoiced, models.StatusClosed,
	} {
		_, err := s.svc.Transition(s.ctx, order.ID, target)
		s.Require().NoError(err)
	}

	for _, target := range []models.Status{models.StatusDraft, models.StatusClosed, models.StatusInProgress} {
		_, err := s.svc.Transition(s.ctx, order.ID, target)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "closed -> %s", target)
	}
}

func (s *ServiceSuite) TestTransitionCrossTenantIsNotFound() {
	order := s.createOrder()

	strangerCtx := scope.WithScope(context.Background(), scope.ForTenant(uuid.New()))
	_, err := s.svc.Transition(strangerCtx, order.ID, models.StatusAwaitingApproval)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestAddLaborLineRejectsNegativeHours() {
	order := s.createOrder()
	_, err := s.svc.AddLaborLine(s.ctx, AddLaborLineCommand{OrderID: order.ID, Hours: -1})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	st := store.NewInMemoryStore()
	auditor := &recordingAuditor{}
	svc := New(st, auditor)
	ctx := scope.WithScope(context.Background(), scope.ForTenant(uuid.New()))

	order, err := svc.Create(ctx, CreateOrderCommand{CustomerName: "Acme Trucking"})
	require.NoError(t, err)

	const attempts = 8
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.Transition(ctx, order.ID, models.StatusAwaitingApproval)
			results <- err
		}()
	}

	wins := 0
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			wins++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		}
	}
	assert.Equal(t, 1, wins)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingApproval, got.Status)
}
