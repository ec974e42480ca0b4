package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

// InMemoryPauseRepository реализация репозитория пауз в памяти
type InMemoryPauseRepository struct {
	records map[uuid.UUID]domain.PauseRecord
	members *InMemoryMemberRepository
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryPauseRepository создает новый репозиторий пауз в памяти.
// Репозиторий участников нужен для атомарного применения паузы.
func NewInMemoryPauseRepository(members *InMemoryMemberRepository, log *logger.Logger) *InMemoryPauseRepository {
	return &InMemoryPauseRepository{
		records: make(map[uuid.UUID]domain.PauseRecord),
		members: members,
		log:     log,
	}
}

// GetActiveByMemberID возвращает активную запись паузы участника
func (r *InMemoryPauseRepository) GetActiveByMemberID(ctx context.Context, memberID uuid.UUID) (domain.PauseRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, record := range r.records {
		if record.MemberID == memberID && record.IsActive {
			return record, nil
		}
	}

	return domain.PauseRecord{}, ErrNotFound
}

// ApplyPause создает активную запись паузы и обновляет участника атомарно.
// Вторая активная запись для участника не допускается.
func (r *InMemoryPauseRepository) ApplyPause(ctx context.Context, member domain.Member, record domain.PauseRecord) (domain.PauseRecord, error) {
	r.mutex.Lock()
	for _, existing := range r.records {
		if existing.MemberID == record.MemberID && existing.IsActive {
			r.mutex.Unlock()
			return domain.PauseRecord{}, ErrDuplicate
		}
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.IsActive = true
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	r.records[record.ID] = record
	r.mutex.Unlock()

	if err := r.members.Update(ctx, member); err != nil {
		return domain.PauseRecord{}, err
	}

	return record, nil
}

// ApplyUnpause деактивирует запись паузы и обновляет участника атомарно
func (r *InMemoryPauseRepository) ApplyUnpause(ctx context.Context, member domain.Member, record domain.PauseRecord) error {
	r.mutex.Lock()
	if _, exists := r.records[record.ID]; !exists {
		r.mutex.Unlock()
		return ErrNotFound
	}
	record.IsActive = false
	record.UpdatedAt = time.Now()
	r.records[record.ID] = record
	r.mutex.Unlock()

	return r.members.Update(ctx, member)
}

// PostgresPauseRepository реализация репозитория пауз через PostgreSQL
type PostgresPauseRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresPauseRepository создает новый репозиторий пауз через PostgreSQL
func NewPostgresPauseRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresPauseRepository {
	return &PostgresPauseRepository{
		db:  db,
		log: log,
	}
}

// GetActiveByMemberID возвращает активную запись паузы участника
func (r *PostgresPauseRepository) GetActiveByMemberID(ctx context.Context, memberID uuid.UUID) (domain.PauseRecord, error) {
	query := `
		SELECT id, member_id, pause_start, pause_days, pause_end, reason, created_by, is_active, created_at, updated_at
		FROM pause_records
		WHERE member_id = $1 AND is_active = true
	`

	var record domain.PauseRecord
	err := r.db.QueryRow(ctx, query, memberID).Scan(
		&record.ID,
		&record.MemberID,
		&record.PauseStart,
		&record.PauseDays,
		&record.PauseEnd,
		&record.Reason,
		&record.CreatedBy,
		&record.IsActive,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PauseRecord{}, ErrNotFound
		}
		return domain.PauseRecord{}, fmt.Errorf("failed to get active pause record: %w", err)
	}

	return record, nil
}

// ApplyPause создает активную запись паузы и обновляет участника в одной
// транзакции: флаги участника, окно паузы и продленная дата окончания
// подписки меняются вместе
func (r *PostgresPauseRepository) ApplyPause(ctx context.Context, member domain.Member, record domain.PauseRecord) (domain.PauseRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.PauseRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Вторая активная пауза участника не допускается
	var activeCount int
	countQuery := `SELECT COUNT(*) FROM pause_records WHERE member_id = $1 AND is_active = true`
	if err := tx.QueryRow(ctx, countQuery, record.MemberID).Scan(&activeCount); err != nil {
		return domain.PauseRecord{}, fmt.Errorf("failed to check active pause records: %w", err)
	}
	if activeCount > 0 {
		return domain.PauseRecord{}, ErrDuplicate
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.IsActive = true

	insertQuery := `
		INSERT INTO pause_records (
			id, member_id, pause_start, pause_days, pause_end, reason, created_by, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, insertQuery,
		record.ID,
		record.MemberID,
		record.PauseStart,
		record.PauseDays,
		record.PauseEnd,
		record.Reason,
		record.CreatedBy,
		record.IsActive,
		time.Now(),
		time.Now(),
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return domain.PauseRecord{}, fmt.Errorf("failed to create pause record: %w", err)
	}

	result, err := tx.Exec(ctx, updateMemberQuery, memberUpdateArgs(member)...)
	if err != nil {
		return domain.PauseRecord{}, fmt.Errorf("failed to update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.PauseRecord{}, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PauseRecord{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return record, nil
}

// ApplyUnpause деактивирует запись паузы (с перезаписанным числом дней)
// и обновляет участника в одной транзакции
func (r *PostgresPauseRepository) ApplyUnpause(ctx context.Context, member domain.Member, record domain.PauseRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE pause_records
		SET pause_days = $1, is_active = false, updated_at = $2
		WHERE id = $3
	`
	result, err := tx.Exec(ctx, updateQuery, record.PauseDays, time.Now(), record.ID)
	if err != nil {
		return fmt.Errorf("failed to deactivate pause record: %w", err)
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
