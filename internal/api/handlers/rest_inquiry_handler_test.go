package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/playmaker-pro/backend-sub001/internal/api/handlers"
	"github.com/playmaker-pro/backend-sub001/internal/api/middleware"
	"github.com/playmaker-pro/backend-sub001/internal/models"
	"github.com/playmaker-pro/backend-sub001/internal/services"
)

// asUser injects the authenticated user the way AuthMiddleware would.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Next()
	}
}

func setupInquiryRouter(userID string, h *handlers.RestInquiryHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser(userID))
	r.POST("/v1/profile/:uuid/inquiry", h.SendInquiry)
	r.POST("/v1/inquiry/:id/read", h.MarkRead)
	r.POST("/v1/inquiry/:id/accept", h.AcceptInquiry)
	r.POST("/v1/inquiry/:id/reject", h.RejectInquiry)
	r.GET("/v1/inquiries/sent", h.ListSent)
	r.GET("/v1/inquiries/quota", h.GetQuota)
	return r
}

func sampleInquiry(senderID, recipientID string, status models.InquiryStatus) *models.Inquiry {
	now := time.Now().UTC()
	return &models.Inquiry{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRestInquiryHandler_SendInquiry_Success(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	senderID := uuid.NewString()
	recipient := &models.Profile{UserID: uuid.NewString(), UUID: uuid.NewString(), FirstName: "Adam", LastName: "Nowak", Slug: "adam-nowak"}
	inquiry := sampleInquiry(senderID, recipient.UserID, models.StatusSent)

	mockProfileSvc.On("FindByUUID", mock.Anything, recipient.UUID).Return(recipient, nil)
	mockInquirySvc.On("Create", mock.Anything, senderID, recipient.UserID, false).Return(inquiry, nil)
	mockAnonSvc.On("ResolveSender", mock.Anything, inquiry).Return(models.PublicIdentity{Slug: "sender"}, nil)
	mockAnonSvc.On("ResolveRecipient", mock.Anything, inquiry).Return(models.PublicIdentityOf(recipient), nil)

	r := setupInquiryRouter(senderID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/profile/"+recipient.UUID+"/inquiry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var view handlers.InquiryView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, inquiry.ID, view.ID)
	assert.Equal(t, "WYSŁANO", view.StatusDisplay)
	assert.Equal(t, "adam-nowak", view.Recipient.Slug)
	mockInquirySvc.AssertExpectations(t)
	mockProfileSvc.AssertExpectations(t)
}

func TestRestInquiryHandler_SendInquiry_QuotaExceeded(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	senderID := uuid.NewString()
	recipient := &models.Profile{UserID: uuid.NewString(), UUID: uuid.NewString()}

	mockProfileSvc.On("FindByUUID", mock.Anything, recipient.UUID).Return(recipient, nil)
	mockInquirySvc.On("Create", mock.Anything, senderID, recipient.UserID, false).Return(nil, services.ErrQuotaExceeded)

	r := setupInquiryRouter(senderID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/profile/"+recipient.UUID+"/inquiry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockInquirySvc.AssertExpectations(t)
}

func TestRestInquiryHandler_SendInquiry_DuplicateActive(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	senderID := uuid.NewString()
	recipient := &models.Profile{UserID: uuid.NewString(), UUID: uuid.NewString()}

	mockProfileSvc.On("FindByUUID", mock.Anything, recipient.UUID).Return(recipient, nil)
	mockInquirySvc.On("Create", mock.Anything, senderID, recipient.UserID, false).Return(nil, services.ErrDuplicateActiveInquiry)

	r := setupInquiryRouter(senderID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/profile/"+recipient.UUID+"/inquiry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRestInquiryHandler_SendInquiry_ProfileNotFound(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	profileUUID := uuid.NewString()
	mockProfileSvc.On("FindByUUID", mock.Anything, profileUUID).Return(nil, assert.AnError)
	mockProfileSvc.On("FindByAnonymousUUID", mock.Anything, profileUUID).Return(nil, assert.AnError)

	r := setupInquiryRouter(uuid.NewString(), handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/profile/"+profileUUID+"/inquiry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockProfileSvc.AssertExpectations(t)
}

func TestRestInquiryHandler_SendInquiry_AnonymousHandle(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	senderID := uuid.NewString()
	anonUUID := uuid.NewString()
	recipient := &models.Profile{
		UserID:         uuid.NewString(),
		UUID:           uuid.NewString(),
		TransferStatus: &models.TransferStatus{AnonymousUUID: anonUUID, IsAnonymous: true},
	}
	inquiry := sampleInquiry(senderID, recipient.UserID, models.StatusSent)
	inquiry.AnonymousRecipient = true
	inquiry.RecipientAnonymousUUID = &anonUUID

	// The anonymous handle is not a profile uuid, so the first lookup misses.
	mockProfileSvc.On("FindByUUID", mock.Anything, anonUUID).Return(nil, assert.AnError)
	mockProfileSvc.On("FindByAnonymousUUID", mock.Anything, anonUUID).Return(recipient, nil)
	mockInquirySvc.On("Create", mock.Anything, senderID, recipient.UserID, true).Return(inquiry, nil)
	mockAnonSvc.On("ResolveSender", mock.Anything, inquiry).Return(models.PublicIdentity{Slug: "sender"}, nil)
	mockAnonSvc.On("ResolveRecipient", mock.Anything, inquiry).Return(models.AnonymousIdentity(anonUUID), nil)

	r := setupInquiryRouter(senderID, handler)
	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"anonymous_recipient": true}`)
	req, _ := http.NewRequest("POST", "/v1/profile/"+anonUUID+"/inquiry", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var view handlers.InquiryView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "anonymous-"+anonUUID, view.Recipient.Slug)
	assert.Equal(t, "Anonimowy", view.Recipient.FirstName)
	mockInquirySvc.AssertExpectations(t)
	mockProfileSvc.AssertExpectations(t)
}

func TestRestInquiryHandler_Accept_ForbiddenTransition(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	userID := uuid.NewString()
	inquiryID := uuid.NewString()
	mockInquirySvc.On("Accept", mock.Anything, inquiryID, userID).Return(nil, models.ErrForbiddenTransition)

	r := setupInquiryRouter(userID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/inquiry/"+inquiryID+"/accept", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRestInquiryHandler_Reject_Success(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	senderID := uuid.NewString()
	recipientID := uuid.NewString()
	inquiry := sampleInquiry(senderID, recipientID, models.StatusRejected)
	inquiry.AnonymousRecipient = true
	anonUUID := uuid.NewString()
	inquiry.RecipientAnonymousUUID = &anonUUID

	mockInquirySvc.On("Reject", mock.Anything, inquiry.ID, recipientID).Return(inquiry, nil)
	mockAnonSvc.On("ResolveSender", mock.Anything, inquiry).Return(models.PublicIdentity{Slug: "sender"}, nil)
	mockAnonSvc.On("ResolveRecipient", mock.Anything, inquiry).Return(models.AnonymousIdentity(anonUUID), nil)

	r := setupInquiryRouter(recipientID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/inquiry/"+inquiry.ID+"/reject", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var view handlers.InquiryView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "ODRZUCONO", view.StatusDisplay)
	assert.Equal(t, "Anonimowy", view.Recipient.FirstName)
	assert.Equal(t, "anonymous-"+anonUUID, view.Recipient.Slug)
}

func TestRestInquiryHandler_ListSent(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	senderID := uuid.NewString()
	first := sampleInquiry(senderID, uuid.NewString(), models.StatusSent)
	second := sampleInquiry(senderID, uuid.NewString(), models.StatusAccepted)

	mockInquirySvc.On("SentBy", mock.Anything, senderID).Return([]models.Inquiry{*first, *second}, nil)
	mockAnonSvc.On("ResolveSender", mock.Anything, mock.Anything).Return(models.PublicIdentity{Slug: "sender"}, nil)
	mockAnonSvc.On("ResolveRecipient", mock.Anything, mock.Anything).Return(models.PublicIdentity{Slug: "recipient"}, nil)

	r := setupInquiryRouter(senderID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/inquiries/sent", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Inquiries []handlers.InquiryView `json:"inquiries"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Inquiries, 2)
	assert.Equal(t, "WYSŁANO", resp.Inquiries[0].StatusDisplay)
	assert.Equal(t, "ZAAKCEPTOWANO", resp.Inquiries[1].StatusDisplay)
}

func TestRestInquiryHandler_GetQuota(t *testing.T) {
	mockInquirySvc := new(MockInquiryService)
	mockQuotaSvc := new(MockQuotaService)
	mockAnonSvc := new(MockAnonymityService)
	mockProfileSvc := new(MockProfileService)
	handler := handlers.NewRestInquiryHandler(mockInquirySvc, mockQuotaSvc, mockAnonSvc, mockProfileSvc)

	userID := uuid.NewString()
	mockQuotaSvc.On("Metadata", mock.Anything, userID).Return(&services.QuotaMetadata{
		PlanRef:   models.PlanBasic,
		Counter:   1,
		Limit:     2,
		Available: 1,
	}, nil)

	r := setupInquiryRouter(userID, handler)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/inquiries/quota", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var meta services.QuotaMetadata
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, models.PlanBasic, meta.PlanRef)
	assert.Equal(t, 1, meta.Available)
	mockQuotaSvc.AssertExpectations(t)
}
