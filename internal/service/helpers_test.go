package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/internal/kafka/producer"
	"github.com/padelpoint/access-service/internal/metrics"
	"github.com/padelpoint/access-service/internal/repository"
	"github.com/padelpoint/access-service/pkg/logger"
)

// testEnv собирает in-memory инфраструктуру для сервисных тестов
type testEnv struct {
	members  *repository.InMemoryMemberRepository
	subs     *repository.InMemorySubscriptionRepository
	branches *repository.InMemoryBranchRepository
	checkIns *repository.InMemoryCheckInRepository
	pauses   *repository.InMemoryPauseRepository
	producer producer.AccessProducer
	metrics  metrics.AccessMetrics
	log      *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.New(logger.ERROR)
	members := repository.NewInMemoryMemberRepository(log)

	return &testEnv{
		members:  members,
		subs:     repository.NewInMemorySubscriptionRepository(log),
		branches: repository.NewInMemoryBranchRepository(log),
		checkIns: repository.NewInMemoryCheckInRepository(members, log),
		pauses:   repository.NewInMemoryPauseRepository(members, log),
		producer: producer.NewNoopProducer(log),
		metrics:  metrics.NewAccessMetrics(prometheus.NewRegistry(), log),
		log:      log,
	}
}

func (e *testEnv) newLifecycleService() LifecycleService {
	return NewLifecycleService(e.members, e.subs, e.pauses, e.producer, e.metrics, e.log)
}

func (e *testEnv) newPauseService(facilityZone string) PauseService {
	return NewPauseService(e.members, e.pauses, e.metrics, e.log, facilityZone)
}

func (e *testEnv) newCheckInService(pauses PauseService) CheckInService {
	return NewCheckInService(e.members, e.branches, e.checkIns, pauses, e.producer, e.metrics, e.log)
}

func (e *testEnv) newWarningService(threshold int) WarningService {
	return NewWarningService(e.members, e.checkIns, e.producer, e.metrics, e.log, threshold)
}

func (e *testEnv) createMember(t *testing.T, member domain.Member) domain.Member {
	t.Helper()
	created, err := e.members.Create(context.Background(), member)
	require.NoError(t, err)
	return created
}

func (e *testEnv) createBranch(t *testing.T, branch domain.Branch) domain.Branch {
	t.Helper()
	saved, err := e.branches.Save(context.Background(), branch)
	require.NoError(t, err)
	return saved
}

func (e *testEnv) upsertSubscription(t *testing.T, sub domain.Subscription) domain.Subscription {
	t.Helper()
	saved, err := e.subs.Upsert(context.Background(), sub)
	require.NoError(t, err)
	return saved
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func activeMember(start, end time.Time) domain.Member {
	startDate := start
	endDate := end
	return domain.Member{
		ID:                    uuid.New(),
		FullName:              "Test Member",
		Phone:                 "+971500000001",
		Code:                  "M-0001",
		BillingCustomerID:     uuid.NewString(),
		SubscriptionStartDate: &startDate,
		SubscriptionEndDate:   &endDate,
	}
}
