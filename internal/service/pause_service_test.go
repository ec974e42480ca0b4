package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padelpoint/access-service/internal/domain"
)

func newPauseServiceAt(env *testEnv, now time.Time) PauseService {
	svc := env.newPauseService("UTC").(*pauseService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestPauseExtendsSubscriptionEnd(t *testing.T) {
	env := newTestEnv(t)
	// Окно подписки 2 сентября - 1 октября, пауза с 13 сентября на 10 дней
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	updated, err := svc.Pause(context.Background(), member.ID, date(2025, 9, 13), 10, "vacation", "admin")
	require.NoError(t, err)

	assert.True(t, updated.IsPaused)
	require.NotNil(t, updated.CurrentPauseStartDate)
	require.NotNil(t, updated.CurrentPauseEndDate)
	assert.Equal(t, date(2025, 9, 13), *updated.CurrentPauseStartDate)
	// Инклюзивный учет: 10 дней с 13 сентября кончаются 21 сентября
	assert.Equal(t, date(2025, 9, 21), *updated.CurrentPauseEndDate)
	// Конец подписки продлен на полные 10 дней: 1 октября -> 11 октября
	assert.Equal(t, date(2025, 10, 11), *updated.SubscriptionEndDate)

	record, err := env.pauses.GetActiveByMemberID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, record.PauseDays)
	assert.True(t, record.IsActive)
}

func TestUnpauseReturnsUnusedDays(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	_, err := svc.Pause(context.Background(), member.ID, date(2025, 9, 13), 10, "vacation", "admin")
	require.NoError(t, err)

	// Возобновление 16 сентября: использовано 4 дня (13-16 включительно),
	// 6 неиспользованных возвращаются, конец 11 октября -> 5 октября
	updated, err := svc.Unpause(context.Background(), member.ID, date(2025, 9, 16), "admin")
	require.NoError(t, err)

	assert.False(t, updated.IsPaused)
	assert.Equal(t, date(2025, 10, 5), *updated.SubscriptionEndDate)

	_, err = env.pauses.GetActiveByMemberID(context.Background(), member.ID)
	assert.Error(t, err)
}

func TestUnpauseAfterPauseEndKeepsFullExtension(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	_, err := svc.Pause(context.Background(), member.ID, date(2025, 9, 13), 10, "", "admin")
	require.NoError(t, err)

	updated, err := svc.Unpause(context.Background(), member.ID, date(2025, 9, 25), "admin")
	require.NoError(t, err)

	// Все 10 дней использованы, укорачивать нечего
	assert.Equal(t, date(2025, 10, 11), *updated.SubscriptionEndDate)
}

func TestPauseValidation(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	_, err := svc.Pause(context.Background(), uuid.New(), date(2025, 9, 14), 5, "", "admin")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	_, err = svc.Pause(context.Background(), member.ID, date(2025, 9, 12), 5, "", "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidPauseDate)

	_, err = svc.Pause(context.Background(), member.ID, date(2025, 10, 2), 5, "", "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidPauseDate)

	_, err = svc.Pause(context.Background(), member.ID, date(2025, 9, 14), 1, "", "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidPauseDate)

	_, err = svc.Pause(context.Background(), member.ID, date(2025, 9, 14), 5, "", "admin")
	require.NoError(t, err)

	_, err = svc.Pause(context.Background(), member.ID, date(2025, 9, 15), 5, "", "admin")
	assert.ErrorIs(t, err, domain.ErrAlreadyPaused)
}

func TestUnpauseNotPaused(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	_, err := svc.Unpause(context.Background(), member.ID, date(2025, 9, 14), "admin")
	assert.ErrorIs(t, err, domain.ErrNotPaused)
}

func TestPauseStoppedMemberRejected(t *testing.T) {
	env := newTestEnv(t)
	member := activeMember(date(2025, 9, 2), date(2025, 10, 1))
	member.ApplyStop("misconduct", date(2025, 9, 1), false)
	member = env.createMember(t, member)
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	_, err := svc.Pause(context.Background(), member.ID, date(2025, 9, 14), 5, "", "admin")
	assert.ErrorIs(t, err, domain.ErrAlreadyStopped)
}

func TestAutoUnpauseIfElapsed(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 13))

	_, err := svc.Pause(context.Background(), member.ID, date(2025, 9, 13), 4, "", "admin")
	require.NoError(t, err)

	paused, err := env.members.GetByID(context.Background(), member.ID)
	require.NoError(t, err)

	// Пауза на 4 дня кончается 15 сентября; 14-го еще действует
	same, lifted, err := svc.AutoUnpauseIfElapsed(context.Background(), paused, date(2025, 9, 14))
	require.NoError(t, err)
	assert.False(t, lifted)
	assert.True(t, same.IsPaused)

	updated, lifted, err := svc.AutoUnpauseIfElapsed(context.Background(), paused, date(2025, 9, 16))
	require.NoError(t, err)
	assert.True(t, lifted)
	assert.False(t, updated.IsPaused)
}

func TestUnpauseBeforePauseStartRestoresEnd(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := newPauseServiceAt(env, date(2025, 9, 8))

	_, err := svc.Pause(context.Background(), member.ID, date(2025, 9, 13), 10, "vacation", "admin")
	require.NoError(t, err)

	// Возобновление 10 сентября, до начала паузы: ноль использованных дней,
	// конец подписки возвращается к исходному 1 октября
	updated, err := svc.Unpause(context.Background(), member.ID, date(2025, 9, 10), "admin")
	require.NoError(t, err)

	assert.False(t, updated.IsPaused)
	require.NotNil(t, updated.SubscriptionEndDate)
	assert.Equal(t, date(2025, 10, 1), *updated.SubscriptionEndDate)

	_, err = env.pauses.GetActiveByMemberID(context.Background(), member.ID)
	assert.Error(t, err)
}
