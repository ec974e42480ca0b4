package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

// InMemoryCheckInRepository реализация репозитория чек-инов в памяти
type InMemoryCheckInRepository struct {
	checkIns map[uuid.UUID]domain.CheckIn
	members  *InMemoryMemberRepository
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryCheckInRepository создает новый репозиторий чек-инов в памяти.
// Репозиторий участников нужен для атомарной правки посещаемости.
func NewInMemoryCheckInRepository(members *InMemoryMemberRepository, log *logger.Logger) *InMemoryCheckInRepository {
	return &InMemoryCheckInRepository{
		checkIns: make(map[uuid.UUID]domain.CheckIn),
		members:  members,
		log:      log,
	}
}

// Create создает запись чек-ина. Уникальность пары (участник, локальный день)
// проверяется здесь же, как это делает ограничение уникальности в PostgreSQL.
func (r *InMemoryCheckInRepository) Create(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.checkIns {
		if existing.MemberID == checkIn.MemberID && existing.LocalDayBucket == checkIn.LocalDayBucket {
			return domain.CheckIn{}, ErrDuplicate
		}
	}

	if checkIn.ID == uuid.Nil {
		checkIn.ID = uuid.New()
	}
	checkIn.CreatedAt = time.Now()
	checkIn.UpdatedAt = time.Now()

	r.checkIns[checkIn.ID] = checkIn

	return checkIn, nil
}

// GetByID возвращает чек-ин по ID
func (r *InMemoryCheckInRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.CheckIn, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	checkIn, exists := r.checkIns[id]
	if !exists {
		return domain.CheckIn{}, ErrNotFound
	}

	return checkIn, nil
}

// ExistsByDayBucket сообщает, есть ли у участника чек-ин с указанным маркером
// локального дня (в любом филиале)
func (r *InMemoryCheckInRepository) ExistsByDayBucket(ctx context.Context, memberID uuid.UUID, bucket string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, checkIn := range r.checkIns {
		if checkIn.MemberID == memberID && checkIn.LocalDayBucket == bucket {
			return true, nil
		}
	}

	return false, nil
}

// UpdateWithMember обновляет чек-ин и участника атомарно (правка посещаемости)
func (r *InMemoryCheckInRepository) UpdateWithMember(ctx context.Context, checkIn domain.CheckIn, member domain.Member) error {
	r.mutex.Lock()
	if _, exists := r.checkIns[checkIn.ID]; !exists {
		r.mutex.Unlock()
		return ErrNotFound
	}
	checkIn.UpdatedAt = time.Now()
	r.checkIns[checkIn.ID] = checkIn
	r.mutex.Unlock()

	return r.members.Update(ctx, member)
}

// PostgresCheckInRepository реализация репозитория чек-инов через PostgreSQL
type PostgresCheckInRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresCheckInRepository создает новый репозиторий чек-инов через PostgreSQL
func NewPostgresCheckInRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresCheckInRepository {
	return &PostgresCheckInRepository{
		db:  db,
		log: log,
	}
}

const checkInColumns = `
	id, member_id, branch_id, check_in_time, local_day_bucket,
	court_id, duration_minutes, notes, attended, created_at, updated_at
`

// scanCheckIn читает строку чек-ина
func scanCheckIn(row pgx.Row) (domain.CheckIn, error) {
	var c domain.CheckIn
	err := row.Scan(
		&c.ID,
		&c.MemberID,
		&c.BranchID,
		&c.CheckInTime,
		&c.LocalDayBucket,
		&c.CourtID,
		&c.DurationMinutes,
		&c.Notes,
		&c.Attended,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CheckIn{}, ErrNotFound
		}
		return domain.CheckIn{}, fmt.Errorf("failed to scan check-in: %w", err)
	}
	return c, nil
}

// Create создает запись чек-ина в базе данных.
// Уникальный индекс (member_id, local_day_bucket) повторно проверяет правило
// "один чек-ин в локальный день" внутри транзакции вставки.
func (r *PostgresCheckInRepository) Create(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error) {
	query := `
		INSERT INTO check_ins (
			id, member_id, branch_id, check_in_time, local_day_bucket,
			court_id, duration_minutes, notes, attended, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id, created_at, updated_at
	`

	if checkIn.ID == uuid.Nil {
		checkIn.ID = uuid.New()
	}

	err := r.db.QueryRow(
		ctx,
		query,
		checkIn.ID,
		checkIn.MemberID,
		checkIn.BranchID,
		checkIn.CheckInTime,
		checkIn.LocalDayBucket,
		checkIn.CourtID,
		checkIn.DurationMinutes,
		checkIn.Notes,
		checkIn.Attended,
		time.Now(),
		time.Now(),
	).Scan(&checkIn.ID, &checkIn.CreatedAt, &checkIn.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.CheckIn{}, ErrDuplicate
		}
		return domain.CheckIn{}, fmt.Errorf("failed to create check-in: %w", err)
	}

	return checkIn, nil
}

// GetByID возвращает чек-ин по ID из базы данных
func (r *PostgresCheckInRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE id = $1`
	return scanCheckIn(r.db.QueryRow(ctx, query, id))
}

// ExistsByDayBucket сообщает, есть ли у участника чек-ин с указанным маркером
// локального дня. Филиал намеренно не учитывается: правило глобальное.
func (r *PostgresCheckInRepository) ExistsByDayBucket(ctx context.Context, memberID uuid.UUID, bucket string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM check_ins
			WHERE member_id = $1 AND local_day_bucket = $2
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, memberID, bucket).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing check-ins: %w", err)
	}

	return exists, nil
}

// UpdateWithMember обновляет чек-ин и участника в одной транзакции
func (r *PostgresCheckInRepository) UpdateWithMember(ctx context.Context, checkIn domain.CheckIn, member domain.Member) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	checkInQuery := `
		UPDATE check_ins
		SET court_id = $1, duration_minutes = $2, notes = $3, attended = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := tx.Exec(ctx, checkInQuery,
		checkIn.CourtID,
		checkIn.DurationMinutes,
		checkIn.Notes,
		checkIn.Attended,
		time.Now(),
		checkIn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update check-in: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	result, err = tx.Exec(ctx, updateMemberQuery, memberUpdateArgs(member)...)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}
