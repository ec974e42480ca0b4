package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padelpoint/access-service/internal/domain"
)

func recordVisit(t *testing.T, env *testEnv, memberID uuid.UUID, day string) domain.CheckIn {
	t.Helper()
	checkIn, err := env.checkIns.Create(context.Background(), domain.CheckIn{
		ID:             uuid.New(),
		MemberID:       memberID,
		BranchID:       uuid.New(),
		CheckInTime:    date(2025, 9, 10),
		LocalDayBucket: day,
		Attended:       true,
	})
	require.NoError(t, err)
	return checkIn
}

func TestRecordAttendanceNoShowIncrementsWarnings(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	checkIn := recordVisit(t, env, member.ID, "2025-09-10")
	svc := env.newWarningService(3)

	updated, err := svc.RecordAttendance(context.Background(), checkIn.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 1, updated.WarningCount)
	assert.False(t, updated.IsStopped)

	saved, err := env.checkIns.GetByID(context.Background(), checkIn.ID)
	require.NoError(t, err)
	assert.False(t, saved.Attended)
}

func TestRecordAttendanceThresholdStopsMember(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := env.newWarningService(2)

	first := recordVisit(t, env, member.ID, "2025-09-08")
	second := recordVisit(t, env, member.ID, "2025-09-09")

	_, err := svc.RecordAttendance(context.Background(), first.ID, false)
	require.NoError(t, err)

	updated, err := svc.RecordAttendance(context.Background(), second.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.WarningCount)
	assert.True(t, updated.IsStopped)
	assert.True(t, updated.IsStoppedByWarning)
	assert.Equal(t, domain.StopReasonWarningLimit, updated.StopReason)
	assert.False(t, updated.IsPaused)
}

func TestRecordAttendanceIdempotent(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	checkIn := recordVisit(t, env, member.ID, "2025-09-10")
	svc := env.newWarningService(3)

	_, err := svc.RecordAttendance(context.Background(), checkIn.ID, false)
	require.NoError(t, err)

	// Повторная отметка той же неявки счетчик не двигает
	updated, err := svc.RecordAttendance(context.Background(), checkIn.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.WarningCount)
}

func TestClearNoShowDecrementsButKeepsStop(t *testing.T) {
	env := newTestEnv(t)
	member := env.createMember(t, activeMember(date(2025, 9, 2), date(2025, 10, 1)))
	svc := env.newWarningService(1)

	checkIn := recordVisit(t, env, member.ID, "2025-09-10")

	stopped, err := svc.RecordAttendance(context.Background(), checkIn.ID, false)
	require.NoError(t, err)
	require.True(t, stopped.IsStopped)

	// Снятие неявки уменьшает счетчик, но доступ возвращает только администратор
	cleared, err := svc.ClearNoShow(context.Background(), checkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cleared.WarningCount)
	assert.True(t, cleared.IsStopped)

	saved, err := env.checkIns.GetByID(context.Background(), checkIn.ID)
	require.NoError(t, err)
	assert.True(t, saved.Attended)
}

func TestWarningServiceNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := env.newWarningService(3)

	_, err := svc.RecordAttendance(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, domain.ErrCheckInNotFound)

	_, err = svc.ClearNoShow(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrCheckInNotFound)
}
