package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/internal/service"
	"github.com/padelpoint/access-service/pkg/logger"
)

// CheckInHandler обработчик для чекинов
type CheckInHandler struct {
	checkIns service.CheckInService
	warnings service.WarningService
	log      *logger.Logger
}

// NewCheckInHandler создает новый обработчик чекинов
func NewCheckInHandler(checkIns service.CheckInService, warnings service.WarningService, log *logger.Logger) *CheckInHandler {
	return &CheckInHandler{
		checkIns: checkIns,
		warnings: warnings,
		log:      log,
	}
}

// ValidateCheckInRequest запрос проверки допуска
type ValidateCheckInRequest struct {
	Identifier string     `json:"identifier" binding:"required"`
	BranchID   uuid.UUID  `json:"branch_id" binding:"required"`
	At         *time.Time `json:"at"`
}

// RecordCheckInRequest запрос записи визита. Момент визита принимается
// как есть: администратор может вносить чекины задним числом.
type RecordCheckInRequest struct {
	Identifier      string     `json:"identifier" binding:"required"`
	BranchID        uuid.UUID  `json:"branch_id" binding:"required"`
	At              *time.Time `json:"at"`
	CourtID         *uuid.UUID `json:"court_id"`
	DurationMinutes *int       `json:"duration_minutes"`
	Notes           string     `json:"notes"`
}

// AttendanceRequest запрос редактирования посещаемости
type AttendanceRequest struct {
	Attended *bool `json:"attended" binding:"required"`
}

// ValidateCheckIn проверяет допуск участника без записи визита
func (h *CheckInHandler) ValidateCheckIn(c *gin.Context) {
	var req ValidateCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	decision, err := h.checkIns.Validate(c.Request.Context(), req.Identifier, req.BranchID, at)
	if err != nil {
		h.log.Error("Failed to validate check-in: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate check-in"})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// RecordCheckIn проверяет допуск и записывает визит
func (h *CheckInHandler) RecordCheckIn(c *gin.Context) {
	var req RecordCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	decision, checkIn, err := h.checkIns.Record(c.Request.Context(), service.RecordCheckInRequest{
		Identifier:      req.Identifier,
		BranchID:        req.BranchID,
		At:              at,
		CourtID:         req.CourtID,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		h.log.Error("Failed to record check-in: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record check-in"})
		return
	}

	if !decision.Valid {
		c.JSON(http.StatusOK, gin.H{"decision": decision})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"decision": decision, "check_in": checkIn})
}

// UpdateAttendance редактирует флаг посещения визита
func (h *CheckInHandler) UpdateAttendance(c *gin.Context) {
	checkInID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid check-in ID format: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid check-in ID format"})
		return
	}

	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.warnings.RecordAttendance(c.Request.Context(), checkInID, *req.Attended)
	if err != nil {
		h.respondWarningError(c, err, checkInID)
		return
	}

	c.JSON(http.StatusOK, member)
}

// ClearNoShow возвращает визиту флаг посещения и снимает предупреждение
func (h *CheckInHandler) ClearNoShow(c *gin.Context) {
	checkInID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid check-in ID format: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid check-in ID format"})
		return
	}

	member, err := h.warnings.ClearNoShow(c.Request.Context(), checkInID)
	if err != nil {
		h.respondWarningError(c, err, checkInID)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (h *CheckInHandler) respondWarningError(c *gin.Context, err error, checkInID uuid.UUID) {
	switch {
	case errors.Is(err, domain.ErrCheckInNotFound):
		h.log.Warn("Check-in not found: %s", checkInID)
		c.JSON(http.StatusNotFound, gin.H{"error": "Check-in not found"})
	case errors.Is(err, domain.ErrMemberNotFound):
		h.log.Warn("Member not found for check-in: %s", checkInID)
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
	default:
		h.log.Error("Failed to update attendance: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update attendance"})
	}
}
