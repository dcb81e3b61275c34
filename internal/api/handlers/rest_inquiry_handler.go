package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playmaker-pro/backend-sub001/internal/api/middleware"
	"github.com/playmaker-pro/backend-sub001/internal/models"
	"github.com/playmaker-pro/backend-sub001/internal/services"
)

// RestInquiryHandler handles REST requests for contact inquiries.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
	quotaService   services.IQuotaService
	anonymity      services.IAnonymityService
	profileService services.IProfileService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(
	inquiryService services.IInquiryService,
	quotaService services.IQuotaService,
	anonymity services.IAnonymityService,
	profileService services.IProfileService,
) *RestInquiryHandler {
	return &RestInquiryHandler{
		inquiryService: inquiryService,
		quotaService:   quotaService,
		anonymity:      anonymity,
		profileService: profileService,
	}
}

// InquiryView is the serialized inquiry, always rendered through the
// anonymity resolver and from the viewer's perspective.
type InquiryView struct {
	ID              string                `json:"id"`
	Status          models.InquiryStatus  `json:"status"`
	StatusDisplay   string                `json:"status_display"`
	Sender          models.PublicIdentity `json:"sender"`
	Recipient       models.PublicIdentity `json:"recipient"`
	SenderHasUpdate bool                  `json:"sender_has_update"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func (h *RestInquiryHandler) view(ctx context.Context, inquiry *models.Inquiry, viewerID string) (*InquiryView, error) {
	sender, err := h.anonymity.ResolveSender(ctx, inquiry)
	if err != nil {
		return nil, err
	}
	recipient, err := h.anonymity.ResolveRecipient(ctx, inquiry)
	if err != nil {
		return nil, err
	}
	return &InquiryView{
		ID:              inquiry.ID,
		Status:          inquiry.Status,
		StatusDisplay:   inquiry.StatusDisplayFor(viewerID),
		Sender:          sender,
		Recipient:       recipient,
		SenderHasUpdate: inquiry.SenderHasUpdate,
		CreatedAt:       inquiry.CreatedAt,
		UpdatedAt:       inquiry.UpdatedAt,
	}, nil
}

func (h *RestInquiryHandler) views(ctx context.Context, inquiries []models.Inquiry, viewerID string) ([]InquiryView, error) {
	result := make([]InquiryView, 0, len(inquiries))
	for i := range inquiries {
		v, err := h.view(ctx, &inquiries[i], viewerID)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, nil
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextKeyUserID)
}

func respondInquiryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSelfInquiry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateActiveInquiry),
		errors.Is(err, services.ErrAlreadyReplied),
		errors.Is(err, models.ErrForbiddenTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInquiryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// SendInquiryRequest is the optional body of a send request. The flag asks
// for the recipient to stay hidden regardless of their transfer marker.
type SendInquiryRequest struct {
	AnonymousRecipient bool `json:"anonymous_recipient"`
}

// SendInquiry handles POST /v1/profile/:uuid/inquiry
func (h *RestInquiryHandler) SendInquiry(c *gin.Context) {
	userID := currentUserID(c)

	var req SendInquiryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	ref := c.Param("uuid")
	recipient, err := h.profileService.FindByUUID(c.Request.Context(), ref)
	if err != nil {
		// The path may carry the anonymous handle of a transfer marker instead
		// of the profile uuid. Addressing someone by their anonymous handle
		// makes the inquiry anonymous whether or not the caller asked.
		recipient, err = h.profileService.FindByAnonymousUUID(c.Request.Context(), ref)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		req.AnonymousRecipient = true
	}

	inquiry, err := h.inquiryService.Create(c.Request.Context(), userID, recipient.UserID, req.AnonymousRecipient)
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	view, err := h.view(c.Request.Context(), inquiry, userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// MarkRead handles POST /v1/inquiry/:id/read
func (h *RestInquiryHandler) MarkRead(c *gin.Context) {
	h.decide(c, h.inquiryService.MarkRead)
}

// AcceptInquiry handles POST /v1/inquiry/:id/accept
func (h *RestInquiryHandler) AcceptInquiry(c *gin.Context) {
	h.decide(c, h.inquiryService.Accept)
}

// RejectInquiry handles POST /v1/inquiry/:id/reject
func (h *RestInquiryHandler) RejectInquiry(c *gin.Context) {
	h.decide(c, h.inquiryService.Reject)
}

func (h *RestInquiryHandler) decide(c *gin.Context, action func(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error)) {
	userID := currentUserID(c)

	inquiry, err := action(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	view, err := h.view(c.Request.Context(), inquiry, userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListSent handles GET /v1/inquiry/sent
func (h *RestInquiryHandler) ListSent(c *gin.Context) {
	h.list(c, h.inquiryService.SentBy)
}

// ListReceived handles GET /v1/inquiry/received
func (h *RestInquiryHandler) ListReceived(c *gin.Context) {
	h.list(c, h.inquiryService.ReceivedBy)
}

// ListContacts handles GET /v1/inquiry/contacts
func (h *RestInquiryHandler) ListContacts(c *gin.Context) {
	h.list(c, h.inquiryService.Contacts)
}

func (h *RestInquiryHandler) list(c *gin.Context, query func(ctx context.Context, userID string) ([]models.Inquiry, error)) {
	userID := currentUserID(c)

	inquiries, err := query(c.Request.Context(), userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	views, err := h.views(c.Request.Context(), inquiries, userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiries": views})
}

// GetQuota handles GET /v1/inquiry/quota
func (h *RestInquiryHandler) GetQuota(c *gin.Context) {
	userID := currentUserID(c)

	meta, err := h.quotaService.Metadata(c.Request.Context(), userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}
