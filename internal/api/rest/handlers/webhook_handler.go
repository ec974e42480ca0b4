package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/internal/service"
	"github.com/padelpoint/access-service/pkg/logger"
)

// WebhookHandler обработчик вебхуков биллинговой системы
type WebhookHandler struct {
	lifecycle service.LifecycleService
	log       *logger.Logger
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(lifecycle service.LifecycleService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		lifecycle: lifecycle,
		log:       log,
	}
}

// billingWebhookPayload сырой формат вебхука биллинговой системы
type billingWebhookPayload struct {
	Event     string                  `json:"event"`
	CreatedAt time.Time               `json:"created_at"`
	Data      billingSubscriptionData `json:"data"`
}

// billingSubscriptionData сырой блок данных подписки
type billingSubscriptionData struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	DateFrom     time.Time            `json:"date_from"`
	DateTo       time.Time            `json:"date_to"`
	PausedAt     *time.Time           `json:"paused_at"`
	ResumeAt     *time.Time           `json:"resume_at"`
	PaidAmount   float64              `json:"paid_amount"`
	TotalAmount  float64              `json:"total_amount"`
	Discount     float64              `json:"discount"`
	Code         string               `json:"code"`
	Name         string               `json:"name"`
	MoveTo       string               `json:"move_to"`
	Client       billingClientRef     `json:"client"`
	CustomFields []billingCustomField `json:"custom_fields"`
}

// billingClientRef ссылка на клиента биллинговой системы
type billingClientRef struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// billingCustomField произвольное поле payload, адресуемое по подписи
type billingCustomField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// syncPayload сырой формат массовой синхронизации
type syncPayload struct {
	Customers []customerSnapshotData `json:"customers"`
}

type customerSnapshotData struct {
	ID            string                    `json:"id"`
	Phone         string                    `json:"phone"`
	Email         string                    `json:"email"`
	Subscriptions []billingSubscriptionData `json:"subscriptions"`
}

// HandleBillingWebhook принимает вебхук биллинговой системы.
// Сбои обработки логируются и не ретраятся этим сервисом: повторная
// доставка идемпотентна и остается на стороне биллинга.
func (h *WebhookHandler) HandleBillingWebhook(c *gin.Context) {
	var payload billingWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Warn("Invalid webhook payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := domain.BillingEvent{
		Type:         domain.BillingEventType(payload.Event),
		CreatedAt:    payload.CreatedAt,
		Subscription: toBillingSubscription(payload.Data),
	}
	if event.Type == domain.BillingEventSubscriptionCreated ||
		event.Type == domain.BillingEventSubscriptionActivated {
		event.Profile = extractProfile(payload.Data)
	}

	if err := h.lifecycle.ProcessWebhookEvent(c.Request.Context(), event); err != nil {
		h.log.Error("Failed to process billing webhook %s: %v", payload.Event, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// HandleSync принимает массовую синхронизацию подписок
func (h *WebhookHandler) HandleSync(c *gin.Context) {
	var payload syncPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.log.Warn("Invalid sync payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshots := make([]domain.CustomerSnapshot, 0, len(payload.Customers))
	for _, customer := range payload.Customers {
		snapshot := domain.CustomerSnapshot{
			CustomerExternalID: customer.ID,
			Profile: &domain.MemberProfile{
				Phone: customer.Phone,
				Email: customer.Email,
			},
		}
		for _, data := range customer.Subscriptions {
			sub := toBillingSubscription(data)
			if sub.CustomerExternalID == "" {
				sub.CustomerExternalID = customer.ID
			}
			snapshot.Subscriptions = append(snapshot.Subscriptions, sub)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := h.lifecycle.SyncSubscriptions(c.Request.Context(), snapshots); err != nil {
		h.log.Error("Failed to sync subscriptions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "synced", "customers": len(snapshots)})
}

// toBillingSubscription переводит сырой блок данных в типизированный
func toBillingSubscription(data billingSubscriptionData) domain.BillingSubscription {
	return domain.BillingSubscription{
		ExternalID:         data.ID,
		CustomerExternalID: data.Client.ID,
		Status:             domain.ParseSubscriptionStatus(data.Status),
		StartDate:          data.DateFrom,
		EndDate:            data.DateTo,
		PausedAt:           data.PausedAt,
		ResumeAt:           data.ResumeAt,
		PaidAmount:         data.PaidAmount,
		TotalAmount:        data.TotalAmount,
		Discount:           data.Discount,
		Code:               data.Code,
		Name:               data.Name,
		TransferTarget:     data.MoveTo,
	}
}

// extractProfile собирает профиль участника из ссылки на клиента и
// произвольных полей payload, находя значения по подписи поля
func extractProfile(data billingSubscriptionData) *domain.MemberProfile {
	profile := &domain.MemberProfile{
		Phone: data.Client.Phone,
		Email: data.Client.Email,
	}

	for _, field := range data.CustomFields {
		switch strings.ToLower(strings.TrimSpace(field.Label)) {
		case "name", "full name", "client name":
			if profile.FullName == "" {
				profile.FullName = field.Value
			}
		case "phone", "phone number":
			if profile.Phone == "" {
				profile.Phone = field.Value
			}
		case "email":
			if profile.Email == "" {
				profile.Email = field.Value
			}
		case "photo", "image", "avatar":
			if profile.ImageURL == "" {
				profile.ImageURL = field.Value
			}
		}
	}

	return profile
}
