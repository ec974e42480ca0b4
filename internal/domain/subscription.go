package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusPending      SubscriptionStatus = "pending"
	SubscriptionStatusActive       SubscriptionStatus = "active"
	SubscriptionStatusPaused       SubscriptionStatus = "paused"
	SubscriptionStatusStartingSoon SubscriptionStatus = "starting_soon"
	SubscriptionStatusExpired      SubscriptionStatus = "expired"
	SubscriptionStatusCancelled    SubscriptionStatus = "cancelled"
	SubscriptionStatusTransferred  SubscriptionStatus = "transferred"
)

// ParseSubscriptionStatus приводит статус из внешней системы к внутреннему enum
func ParseSubscriptionStatus(raw string) SubscriptionStatus {
	switch SubscriptionStatus(raw) {
	case SubscriptionStatusPending,
		SubscriptionStatusActive,
		SubscriptionStatusPaused,
		SubscriptionStatusStartingSoon,
		SubscriptionStatusExpired,
		SubscriptionStatusCancelled,
		SubscriptionStatusTransferred:
		return SubscriptionStatus(raw)
	default:
		return SubscriptionStatusPending
	}
}

// Subscription представляет собой запись подписки участника.
// На одного участника может существовать много записей (продления, переносы);
// записи никогда не удаляются.
type Subscription struct {
	ID         uuid.UUID          `json:"id"`
	MemberID   uuid.UUID          `json:"member_id"`
	ExternalID string             `json:"external_id"`
	Status     SubscriptionStatus `json:"status"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`

	PausedAt *time.Time `json:"paused_at,omitempty"`
	ResumeAt *time.Time `json:"resume_at,omitempty"`

	PaidAmount  float64 `json:"paid_amount"`
	TotalAmount float64 `json:"total_amount"`
	Discount    float64 `json:"discount,omitempty"`

	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`

	TransferTarget string     `json:"transfer_target,omitempty"`
	TransferredAt  *time.Time `json:"transferred_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullyPaid сообщает, оплачена ли подписка полностью
func (s *Subscription) FullyPaid() bool {
	return s.TotalAmount == 0 || s.PaidAmount >= s.TotalAmount
}

// ContainsDate сообщает, попадает ли календарная дата в окно подписки
func (s *Subscription) ContainsDate(date time.Time) bool {
	return !date.Before(s.StartDate) && !date.After(s.EndDate)
}

// SubscriptionHistory запись аудита изменений подписки, только добавление
type SubscriptionHistory struct {
	ID             uuid.UUID  `json:"id"`
	MemberID       uuid.UUID  `json:"member_id"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	Event          string     `json:"event"`
	WindowStart    *time.Time `json:"window_start,omitempty"`
	WindowEnd      *time.Time `json:"window_end,omitempty"`
	Note           string     `json:"note,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
