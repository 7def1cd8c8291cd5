package installment

import (
	"context"
	"time"

	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of installment.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*installment.Obligation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Obligation), args.Error(1)
}

func (m *MockRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*installment.Obligation, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Obligation), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context, filter installment.ObligationFilter) ([]*installment.Obligation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Obligation), args.Error(1)
}

func (m *MockRepository) FindOpen(ctx context.Context, filter installment.ObligationFilter) ([]*installment.Obligation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Obligation), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, filter installment.ObligationFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListPayments(ctx context.Context, obligationID uuid.UUID) ([]*installment.Payment, error) {
	args := m.Called(ctx, obligationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Payment), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, obligation *installment.Obligation) error {
	args := m.Called(ctx, obligation)
	return args.Error(0)
}

func (m *MockRepository) CreatePayment(ctx context.Context, obligationID uuid.UUID, draft installment.PaymentDraft, today time.Time) (*installment.Obligation, *installment.Payment, error) {
	args := m.Called(ctx, obligationID, draft, today)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*installment.Obligation), args.Get(1).(*installment.Payment), args.Error(2)
}

func (m *MockRepository) DeletePayment(ctx context.Context, obligationID, paymentID uuid.UUID, today time.Time) (*installment.Obligation, error) {
	args := m.Called(ctx, obligationID, paymentID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Obligation), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, obligation *installment.Obligation) error {
	args := m.Called(ctx, obligation)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// publishedTypes returns the event types of every Publish call in order
func (m *MockEventPublisher) publishedTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		for _, e := range call.Arguments.Get(1).([]shared.DomainEvent) {
			types = append(types, e.EventType())
		}
	}
	return types
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Claimed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
