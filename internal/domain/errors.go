package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrMemberNotFound участник не найден
	ErrMemberNotFound = errors.New("member not found")

	// ErrBranchNotFound филиал не найден
	ErrBranchNotFound = errors.New("branch not found")

	// ErrSubscriptionNotFound подписка не найдена
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrCheckInNotFound чек-ин не найден
	ErrCheckInNotFound = errors.New("check-in not found")

	// ErrAlreadyPaused подписка участника уже на паузе
	ErrAlreadyPaused = errors.New("subscription is already paused")

	// ErrNotPaused подписка участника не на паузе
	ErrNotPaused = errors.New("subscription is not paused")

	// ErrAlreadyStopped участник уже остановлен
	ErrAlreadyStopped = errors.New("member is already stopped")

	// ErrNotStopped участник не остановлен
	ErrNotStopped = errors.New("member is not stopped")

	// ErrInvalidPauseDate дата паузы вне допустимого диапазона
	ErrInvalidPauseDate = errors.New("invalid pause date")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrDuplicate дубликат записи
	ErrDuplicate = errors.New("duplicate record")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")
)

// NotFoundError представляет ошибку "не найдено" с указанием сущности
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// InvalidStateError представляет недопустимый переход состояния участника
type InvalidStateError struct {
	MemberID string
	Message  string
	Sentinel error
}

// Error реализует интерфейс error
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state for member %s: %s", e.MemberID, e.Message)
}

// Is сопоставляет ошибку с соответствующим sentinel-значением
func (e *InvalidStateError) Is(target error) bool {
	return target == e.Sentinel
}

// Unwrap возвращает sentinel-значение
func (e *InvalidStateError) Unwrap() error {
	return e.Sentinel
}

// NewInvalidStateError создает новую ошибку недопустимого состояния
func NewInvalidStateError(memberID, message string, sentinel error) *InvalidStateError {
	return &InvalidStateError{
		MemberID: memberID,
		Message:  message,
		Sentinel: sentinel,
	}
}
