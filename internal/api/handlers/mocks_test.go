package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/playmaker-pro/backend-sub001/internal/models"
	"github.com/playmaker-pro/backend-sub001/internal/services"
)

// --- Mocks ---

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) Create(ctx context.Context, senderID, recipientID string, anonymousRequested bool) (*models.Inquiry, error) {
	args := m.Called(ctx, senderID, recipientID, anonymousRequested)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) GetByID(ctx context.Context, inquiryID string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) MarkRead(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) Accept(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) Reject(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) SentBy(ctx context.Context, senderID string) ([]models.Inquiry, error) {
	args := m.Called(ctx, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) ReceivedBy(ctx context.Context, recipientID string) ([]models.Inquiry, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) Contacts(ctx context.Context, userID string) ([]models.Inquiry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

// MockQuotaService
type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) GetOrCreateAccount(ctx context.Context, userID string) (*models.QuotaAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuotaAccount), args.Error(1)
}

func (m *MockQuotaService) CanAdmit(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuotaService) Increment(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockQuotaService) Decrement(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockQuotaService) SetPlan(ctx context.Context, userID, planRef string) error {
	args := m.Called(ctx, userID, planRef)
	return args.Error(0)
}

func (m *MockQuotaService) Metadata(ctx context.Context, userID string) (*services.QuotaMetadata, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QuotaMetadata), args.Error(1)
}

// MockAnonymityService
type MockAnonymityService struct {
	mock.Mock
}

func (m *MockAnonymityService) SnapshotUUID(ctx context.Context, recipientUserID string, requested bool) (bool, *string, error) {
	args := m.Called(ctx, recipientUserID, requested)
	var snapshot *string
	if args.Get(1) != nil {
		snapshot = args.Get(1).(*string)
	}
	return args.Bool(0), snapshot, args.Error(2)
}

func (m *MockAnonymityService) ResolveRecipient(ctx context.Context, inquiry *models.Inquiry) (models.PublicIdentity, error) {
	args := m.Called(ctx, inquiry)
	return args.Get(0).(models.PublicIdentity), args.Error(1)
}

func (m *MockAnonymityService) ResolveSender(ctx context.Context, inquiry *models.Inquiry) (models.PublicIdentity, error) {
	args := m.Called(ctx, inquiry)
	return args.Get(0).(models.PublicIdentity), args.Error(1)
}

// MockProfileService
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileService) FindByUUID(ctx context.Context, profileUUID string) (*models.Profile, error) {
	args := m.Called(ctx, profileUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileService) FindByAnonymousUUID(ctx context.Context, anonymousUUID string) (*models.Profile, error) {
	args := m.Called(ctx, anonymousUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}
