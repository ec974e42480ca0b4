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

// InMemoryBranchRepository реализация репозитория филиалов в памяти
type InMemoryBranchRepository struct {
	branches map[uuid.UUID]domain.Branch
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryBranchRepository создает новый репозиторий филиалов в памяти
func NewInMemoryBranchRepository(log *logger.Logger) *InMemoryBranchRepository {
	return &InMemoryBranchRepository{
		branches: make(map[uuid.UUID]domain.Branch),
		log:      log,
	}
}

// GetByID возвращает филиал по ID вместе с его окнами допуска
func (r *InMemoryBranchRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Branch, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	branch, exists := r.branches[id]
	if !exists {
		return domain.Branch{}, ErrNotFound
	}

	return branch, nil
}

// Save создает или обновляет филиал
func (r *InMemoryBranchRepository) Save(ctx context.Context, branch domain.Branch) (domain.Branch, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i := range branch.TimeSlots {
		if err := branch.TimeSlots[i].Validate(); err != nil {
			return domain.Branch{}, err
		}
	}

	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	branch.UpdatedAt = time.Now()
	r.branches[branch.ID] = branch

	return branch, nil
}

// PostgresBranchRepository реализация репозитория филиалов через PostgreSQL
type PostgresBranchRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresBranchRepository создает новый репозиторий филиалов через PostgreSQL
func NewPostgresBranchRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresBranchRepository {
	return &PostgresBranchRepository{
		db:  db,
		log: log,
	}
}

// GetByID возвращает филиал по ID вместе с его окнами допуска
func (r *PostgresBranchRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Branch, error) {
	query := `
		SELECT id, name, time_zone, active, created_at, updated_at
		FROM branches
		WHERE id = $1
	`

	var branch domain.Branch
	err := r.db.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.Name,
		&branch.TimeZone,
		&branch.Active,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Branch{}, ErrNotFound
		}
		return domain.Branch{}, fmt.Errorf("failed to get branch: %w", err)
	}

	slotsQuery := `
		SELECT id, branch_id, weekday, start_minute, end_minute, active
		FROM branch_time_slots
		WHERE branch_id = $1
		ORDER BY weekday, start_minute
	`

	rows, err := r.db.Query(ctx, slotsQuery, id)
	if err != nil {
		return domain.Branch{}, fmt.Errorf("failed to query branch time slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot domain.TimeSlot
		var weekday int
		err := rows.Scan(
			&slot.ID,
			&slot.BranchID,
			&weekday,
			&slot.StartMinute,
			&slot.EndMinute,
			&slot.Active,
		)
		if err != nil {
			return domain.Branch{}, fmt.Errorf("failed to scan branch time slot: %w", err)
		}
		slot.Weekday = time.Weekday(weekday)
		branch.TimeSlots = append(branch.TimeSlots, slot)
	}

	if err := rows.Err(); err != nil {
		return domain.Branch{}, fmt.Errorf("error iterating branch time slots: %w", err)
	}

	return branch, nil
}
