package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckIn представляет собой запись посещения
type CheckIn struct {
	ID              uuid.UUID  `json:"id"`
	MemberID        uuid.UUID  `json:"member_id"`
	BranchID        uuid.UUID  `json:"branch_id"`
	CheckInTime     time.Time  `json:"check_in_time"`
	LocalDayBucket  string     `json:"local_day_bucket"` // локальная дата филиала, YYYY-MM-DD
	CourtID         *uuid.UUID `json:"court_id,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Attended        bool       `json:"attended"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RejectReason причина отказа в допуске
type RejectReason string

const (
	RejectMemberNotFound        RejectReason = "member_not_found"
	RejectBranchNotFound        RejectReason = "branch_not_found"
	RejectBranchInactive        RejectReason = "branch_inactive"
	RejectTimeZoneNotSet        RejectReason = "time_zone_not_set"
	RejectStopped               RejectReason = "stopped"
	RejectPaused                RejectReason = "paused"
	RejectSubscriptionNotActive RejectReason = "subscription_not_active"
	RejectAlreadyCheckedIn      RejectReason = "already_checked_in"
	RejectOutsideAllowedWindow  RejectReason = "outside_allowed_window"
)

// CheckInDecision результат проверки допуска. Отказ в допуске — это
// нормальный результат, а не ошибка: ошибки возвращаются только на сбои хранилища.
type CheckInDecision struct {
	Valid   bool         `json:"valid"`
	Reason  RejectReason `json:"reason,omitempty"`
	Message string       `json:"message,omitempty"`
	Member  *Member      `json:"member,omitempty"`
}

// Admit создает решение о допуске
func Admit(member *Member) CheckInDecision {
	return CheckInDecision{Valid: true, Member: member}
}

// Reject создает решение об отказе
func Reject(reason RejectReason, message string, member *Member) CheckInDecision {
	return CheckInDecision{Valid: false, Reason: reason, Message: message, Member: member}
}
