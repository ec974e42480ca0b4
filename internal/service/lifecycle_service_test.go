package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padelpoint/access-service/internal/domain"
)

func newLifecycleServiceAt(env *testEnv, now time.Time) LifecycleService {
	svc := env.newLifecycleService().(*lifecycleService)
	svc.now = func() time.Time { return now }
	return svc
}

func billingEvent(eventType domain.BillingEventType, sub domain.BillingSubscription) domain.BillingEvent {
	return domain.BillingEvent{
		Type:         eventType,
		CreatedAt:    time.Now(),
		Subscription: sub,
	}
}

func TestProcessWebhookSynthesizesMemberOnCreated(t *testing.T) {
	env := newTestEnv(t)
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionCreated, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: "cust-1",
		Status:             domain.SubscriptionStatusActive,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		PaidAmount:         100,
		TotalAmount:        100,
	})
	event.Profile = &domain.MemberProfile{
		FullName: "New Member",
		Phone:    "+971500000100",
		Email:    "new@example.com",
	}

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	member, err := env.members.GetByBillingCustomerID(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "New Member", member.FullName)
	assert.Equal(t, "+971500000100", member.Phone)

	// Окно восстановлено пересчетом, раз у нового участника его не было
	require.NotNil(t, member.SubscriptionStartDate)
	assert.Equal(t, date(2025, 9, 1), *member.SubscriptionStartDate)
	assert.Equal(t, date(2025, 9, 30), *member.SubscriptionEndDate)

	sub, err := env.subs.GetByExternalID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, member.ID, sub.MemberID)
}

func TestProcessWebhookUnknownMemberDroppedSilently(t *testing.T) {
	env := newTestEnv(t)
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionCancelled, domain.BillingSubscription{
		ExternalID:         "sub-x",
		CustomerExternalID: "ghost",
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
	})

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	_, err := env.members.GetByBillingCustomerID(context.Background(), "ghost")
	assert.Error(t, err)
	_, err = env.subs.GetByExternalID(context.Background(), "sub-x")
	assert.Error(t, err)
}

func TestProcessWebhookIndefinitePauseStopsMember(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 1), date(2025, 9, 30)))
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-1",
		Status:      domain.SubscriptionStatusActive,
		StartDate:   date(2025, 9, 1),
		EndDate:     date(2025, 9, 30),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionPaused, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: member.BillingCustomerID,
		Status:             domain.SubscriptionStatusPaused,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		PausedAt:           datePtr(2025, 9, 9),
		// ResumeAt отсутствует: бессрочная пауза
		PaidAmount:  100,
		TotalAmount: 100,
	})

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsStopped)
	assert.False(t, updated.IsPaused)
	assert.Equal(t, domain.StopReasonIndefinitePause, updated.StopReason)
}

func TestProcessWebhookFinitePausePausesMember(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 1), date(2025, 9, 30)))
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-1",
		Status:      domain.SubscriptionStatusActive,
		StartDate:   date(2025, 9, 1),
		EndDate:     date(2025, 9, 30),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionPaused, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: member.BillingCustomerID,
		Status:             domain.SubscriptionStatusPaused,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		PausedAt:           datePtr(2025, 9, 8),
		ResumeAt:           datePtr(2025, 9, 15),
		PaidAmount:         100,
		TotalAmount:        100,
	})

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsPaused)
	assert.False(t, updated.IsStopped)
	require.NotNil(t, updated.CurrentPauseEndDate)
	assert.Equal(t, date(2025, 9, 15), *updated.CurrentPauseEndDate)

	// Запись паузы создана автоматически
	record, err := env.pauses.GetActiveByMemberID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, "system", record.CreatedBy)

	// Окно продлено на число дней паузы
	days := domain.PauseDaysForWindow(date(2025, 9, 8), date(2025, 9, 15))
	assert.Equal(t, date(2025, 9, 30).AddDate(0, 0, days), *updated.SubscriptionEndDate)
}

func TestProcessWebhookResumeRetiresPauseRecord(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 1), date(2025, 9, 30)))
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-1",
		Status:      domain.SubscriptionStatusActive,
		StartDate:   date(2025, 9, 1),
		EndDate:     date(2025, 9, 30),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	paused := billingEvent(domain.BillingEventSubscriptionPaused, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: member.BillingCustomerID,
		Status:             domain.SubscriptionStatusPaused,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		PausedAt:           datePtr(2025, 9, 8),
		ResumeAt:           datePtr(2025, 9, 15),
		PaidAmount:         100,
		TotalAmount:        100,
	})
	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), paused))

	resumed := billingEvent(domain.BillingEventSubscriptionResumed, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: member.BillingCustomerID,
		Status:             domain.SubscriptionStatusActive,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		PaidAmount:         100,
		TotalAmount:        100,
	})
	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), resumed))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsPaused)

	// Запись паузы деактивирована вместе со снятием флагов
	_, err = env.pauses.GetActiveByMemberID(context.Background(), member.ID)
	assert.Error(t, err)

	// Последующая ручная пауза не упирается в висящую запись
	pauses := newPauseServiceAt(env, date(2025, 9, 16))
	_, err = pauses.Pause(context.Background(), updated.ID, date(2025, 9, 18), 5, "", "admin")
	require.NoError(t, err)
}

func TestProcessWebhookCancelledReselectsUpcoming(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 1), date(2025, 9, 30)))
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-1",
		Status:      domain.SubscriptionStatusActive,
		StartDate:   date(2025, 9, 1),
		EndDate:     date(2025, 9, 30),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-2",
		Status:      domain.SubscriptionStatusStartingSoon,
		StartDate:   date(2025, 10, 5),
		EndDate:     date(2025, 11, 5),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionCancelled, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: member.BillingCustomerID,
		Status:             domain.SubscriptionStatusCancelled,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		PaidAmount:         100,
		TotalAmount:        100,
	})

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	// Выбрана ближайшая будущая подписка
	assert.Equal(t, date(2025, 10, 5), *updated.SubscriptionStartDate)
	assert.Equal(t, date(2025, 11, 5), *updated.SubscriptionEndDate)
	assert.False(t, updated.IsStopped)
}

func TestProcessWebhookTransferredStopsWithoutFallback(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 1), date(2025, 9, 30)))
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-1",
		Status:      domain.SubscriptionStatusActive,
		StartDate:   date(2025, 9, 1),
		EndDate:     date(2025, 9, 30),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionTransferred, domain.BillingSubscription{
		ExternalID:         "sub-1",
		CustomerExternalID: member.BillingCustomerID,
		StartDate:          date(2025, 9, 1),
		EndDate:            date(2025, 9, 30),
		TransferTarget:     "cust-other",
		PaidAmount:         100,
		TotalAmount:        100,
	})

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsStopped)
	assert.Equal(t, domain.StopReasonTransferred, updated.StopReason)

	sub, err := env.subs.GetByExternalID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusTransferred, sub.Status)
	assert.NotNil(t, sub.TransferredAt)
}

func TestProcessWebhookNormalizesBillingTimes(t *testing.T) {
	env := newTestEnv(t)
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent(domain.BillingEventSubscriptionCreated, domain.BillingSubscription{
		ExternalID:         "sub-21",
		CustomerExternalID: "cust-21",
		Status:             domain.SubscriptionStatusActive,
		// Ровно 21:00 обозначает начало следующего дня
		StartDate:   time.Date(2025, 8, 31, 21, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 9, 30, 14, 30, 0, 0, time.UTC),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	event.Profile = &domain.MemberProfile{Phone: "+971500000200"}

	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))

	sub, err := env.subs.GetByExternalID(context.Background(), "sub-21")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 9, 1), sub.StartDate)
	assert.Equal(t, date(2025, 9, 30), sub.EndDate)
}

func TestProcessWebhookUnknownEventTypeSkipped(t *testing.T) {
	env := newTestEnv(t)
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	event := billingEvent("subscription.exploded", domain.BillingSubscription{ExternalID: "sub-1"})
	require.NoError(t, svc.ProcessWebhookEvent(context.Background(), event))
}

func TestSyncSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 8, 1), date(2025, 8, 31)))
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	snapshots := []domain.CustomerSnapshot{
		{
			CustomerExternalID: member.BillingCustomerID,
			Subscriptions: []domain.BillingSubscription{
				{
					ExternalID:         "sub-old",
					CustomerExternalID: member.BillingCustomerID,
					Status:             domain.SubscriptionStatusExpired,
					StartDate:          date(2025, 8, 1),
					EndDate:            date(2025, 8, 31),
					PaidAmount:         100,
					TotalAmount:        100,
				},
				{
					ExternalID:         "sub-new",
					CustomerExternalID: member.BillingCustomerID,
					Status:             domain.SubscriptionStatusActive,
					StartDate:          date(2025, 9, 1),
					EndDate:            date(2025, 9, 30),
					PaidAmount:         100,
					TotalAmount:        100,
				},
			},
		},
		{
			// Неизвестный клиент пропускается без ошибки
			CustomerExternalID: "ghost",
			Subscriptions: []domain.BillingSubscription{
				{ExternalID: "sub-ghost", StartDate: date(2025, 9, 1), EndDate: date(2025, 9, 30)},
			},
		},
	}

	require.NoError(t, svc.SyncSubscriptions(context.Background(), snapshots))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 9, 1), *updated.SubscriptionStartDate)
	assert.Equal(t, date(2025, 9, 30), *updated.SubscriptionEndDate)

	_, err = env.subs.GetByExternalID(context.Background(), "sub-ghost")
	assert.Error(t, err)
}

func TestRecomputePreservesManualStop(t *testing.T) {
	env := newTestEnv(t)
	member := activeMember(date(2025, 8, 1), date(2025, 8, 31))
	member.ApplyStop("misconduct", date(2025, 8, 20), false)
	member = env.createMember(t, member)
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	// Подписок нет: историческое окно и остановка сохраняются
	require.NoError(t, svc.RecomputeMemberWindow(context.Background(), member.ID))

	updated, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsStopped)
	assert.Equal(t, "misconduct", updated.StopReason)
	assert.Equal(t, date(2025, 8, 1), *updated.SubscriptionStartDate)
}

func TestRecomputeWritesHistory(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 1), date(2025, 9, 30)))
	env.upsertSubscription(t, domain.Subscription{
		MemberID:    member.ID,
		ExternalID:  "sub-1",
		Status:      domain.SubscriptionStatusActive,
		StartDate:   date(2025, 9, 1),
		EndDate:     date(2025, 9, 30),
		PaidAmount:  100,
		TotalAmount: 100,
	})
	svc := newLifecycleServiceAt(env, date(2025, 9, 10))

	require.NoError(t, svc.RecomputeMemberWindow(context.Background(), member.ID))

	history := env.members.History()
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, member.ID, last.MemberID)
	assert.Equal(t, "window.recompute", last.Event)
}
