package domain

import (
	"time"

	"github.com/google/uuid"
)

// Причины административной остановки, генерируемые системой
const (
	StopReasonIndefinitePause = "subscription paused indefinitely in billing system"
	StopReasonTransferred     = "subscription transferred to another member"
	StopReasonWarningLimit    = "no-show warning limit reached"
)

// Member представляет собой участника клуба
type Member struct {
	ID                 uuid.UUID `json:"id"`
	FullName           string    `json:"full_name"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email,omitempty"`
	Code               string    `json:"code,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	BillingCustomerID  string    `json:"billing_customer_id,omitempty"`

	// Денормализованное "текущее окно" подписки
	SubscriptionStartDate *time.Time `json:"subscription_start_date,omitempty"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date,omitempty"`

	IsPaused              bool       `json:"is_paused"`
	CurrentPauseStartDate *time.Time `json:"current_pause_start_date,omitempty"`
	CurrentPauseEndDate   *time.Time `json:"current_pause_end_date,omitempty"`

	IsStopped          bool       `json:"is_stopped"`
	StoppedDate        *time.Time `json:"stopped_date,omitempty"`
	StopReason         string     `json:"stop_reason,omitempty"`
	IsStoppedByWarning bool       `json:"is_stopped_by_warning"`
	WarningCount       int        `json:"warning_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearPause снимает состояние паузы с участника
func (m *Member) ClearPause() {
	m.IsPaused = false
	m.CurrentPauseStartDate = nil
	m.CurrentPauseEndDate = nil
}

// ClearStop снимает административную остановку с участника
func (m *Member) ClearStop() {
	m.IsStopped = false
	m.StoppedDate = nil
	m.StopReason = ""
	m.IsStoppedByWarning = false
}

// ApplyPause переводит участника в состояние паузы.
// Остановленный участник не может быть одновременно на паузе.
func (m *Member) ApplyPause(start, end time.Time) {
	m.ClearStop()
	m.IsPaused = true
	m.CurrentPauseStartDate = &start
	m.CurrentPauseEndDate = &end
}

// ApplyStop останавливает участника. Активная пауза при этом снимается:
// инвариант IsStopped => !IsPaused.
func (m *Member) ApplyStop(reason string, at time.Time, byWarning bool) {
	m.ClearPause()
	m.IsStopped = true
	m.StoppedDate = &at
	m.StopReason = reason
	m.IsStoppedByWarning = byWarning
}

// SetWindow устанавливает текущее окно подписки участника
func (m *Member) SetWindow(start, end time.Time) {
	m.SubscriptionStartDate = &start
	m.SubscriptionEndDate = &end
}

// WindowContains сообщает, попадает ли календарная дата в текущее окно подписки
func (m *Member) WindowContains(date time.Time) bool {
	if m.SubscriptionStartDate == nil || m.SubscriptionEndDate == nil {
		return false
	}
	return !date.Before(*m.SubscriptionStartDate) && !date.After(*m.SubscriptionEndDate)
}

// MemberProfile чистые поля профиля, извлеченные адаптером из payload биллинга
type MemberProfile struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
