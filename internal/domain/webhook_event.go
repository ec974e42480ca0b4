package domain

import (
	"time"
)

// BillingEventType тип события от биллинговой системы
type BillingEventType string

const (
	BillingEventSubscriptionCreated     BillingEventType = "subscription.created"
	BillingEventSubscriptionActivated   BillingEventType = "subscription.activated"
	BillingEventSubscriptionPaused      BillingEventType = "subscription.paused"
	BillingEventSubscriptionResumed     BillingEventType = "subscription.resumed"
	BillingEventSubscriptionCancelled   BillingEventType = "subscription.cancelled"
	BillingEventSubscriptionExpired     BillingEventType = "subscription.expired"
	BillingEventSubscriptionTransferred BillingEventType = "subscription.transferred"
)

// Known сообщает, известен ли тип события
func (t BillingEventType) Known() bool {
	switch t {
	case BillingEventSubscriptionCreated,
		BillingEventSubscriptionActivated,
		BillingEventSubscriptionPaused,
		BillingEventSubscriptionResumed,
		BillingEventSubscriptionCancelled,
		BillingEventSubscriptionExpired,
		BillingEventSubscriptionTransferred:
		return true
	}
	return false
}

// BillingSubscription блок данных подписки в событии или снапшоте биллинга.
// Временные поля уже нормализованы адаптером до календарных дат.
type BillingSubscription struct {
	ExternalID         string             `json:"external_id"`
	CustomerExternalID string             `json:"customer_external_id"`
	Status             SubscriptionStatus `json:"status"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	PausedAt           *time.Time         `json:"paused_at,omitempty"`
	ResumeAt           *time.Time         `json:"resume_at,omitempty"`
	PaidAmount         float64            `json:"paid_amount"`
	TotalAmount        float64            `json:"total_amount"`
	Discount           float64            `json:"discount,omitempty"`
	Code               string             `json:"code,omitempty"`
	Name               string             `json:"name,omitempty"`
	TransferTarget     string             `json:"transfer_target,omitempty"`
}

// BillingEvent типизированное вебхук-событие биллинговой системы
type BillingEvent struct {
	Type         BillingEventType    `json:"type"`
	CreatedAt    time.Time           `json:"created_at"`
	Subscription BillingSubscription `json:"subscription"`

	// Профиль для синтеза участника; заполняется адаптером
	// только для событий created/activated
	Profile *MemberProfile `json:"profile,omitempty"`
}

// CustomerSnapshot снапшот подписок одного клиента для массовой синхронизации
type CustomerSnapshot struct {
	CustomerExternalID string                `json:"customer_external_id"`
	Profile            *MemberProfile        `json:"profile,omitempty"`
	Subscriptions      []BillingSubscription `json:"subscriptions"`
}
