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

// MemberHandler обработчик для участников
type MemberHandler struct {
	members service.MemberService
	pauses  service.PauseService
	log     *logger.Logger
}

// NewMemberHandler создает новый обработчик участников
func NewMemberHandler(members service.MemberService, pauses service.PauseService, log *logger.Logger) *MemberHandler {
	return &MemberHandler{
		members: members,
		pauses:  pauses,
		log:     log,
	}
}

// PauseRequest запрос постановки участника на паузу
type PauseRequest struct {
	PauseStart time.Time `json:"pause_start" binding:"required"`
	Days       int       `json:"days" binding:"required"`
	Reason     string    `json:"reason"`
	Actor      string    `json:"actor"`
}

// UnpauseRequest запрос снятия участника с паузы
type UnpauseRequest struct {
	ResumeDate *time.Time `json:"resume_date"`
	Actor      string     `json:"actor"`
}

// StopRequest запрос административной остановки
type StopRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor"`
}

// ReactivateRequest запрос снятия остановки
type ReactivateRequest struct {
	Actor string `json:"actor"`
}

// GetMember возвращает участника по ID или идентификатору
func (h *MemberHandler) GetMember(c *gin.Context) {
	raw := c.Param("id")

	var member domain.Member
	var err error
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		member, err = h.members.GetByID(c.Request.Context(), id)
	} else {
		member, err = h.members.FindByIdentifier(c.Request.Context(), raw)
	}

	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			h.log.Warn("Member not found: %s", raw)
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		h.log.Error("Failed to get member: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get member"})
		return
	}

	c.JSON(http.StatusOK, member)
}

// PauseMember ставит участника на паузу
func (h *MemberHandler) PauseMember(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid member ID format: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID format"})
		return
	}

	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}

	member, err := h.pauses.Pause(c.Request.Context(), memberID, req.PauseStart, req.Days, req.Reason, actor)
	if err != nil {
		h.respondMemberError(c, err, memberID)
		return
	}

	c.JSON(http.StatusOK, member)
}

// UnpauseMember снимает участника с паузы
func (h *MemberHandler) UnpauseMember(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid member ID format: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID format"})
		return
	}

	var req UnpauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resumeDate := time.Now()
	if req.ResumeDate != nil {
		resumeDate = *req.ResumeDate
	}
	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}

	member, err := h.pauses.Unpause(c.Request.Context(), memberID, resumeDate, actor)
	if err != nil {
		h.respondMemberError(c, err, memberID)
		return
	}

	c.JSON(http.StatusOK, member)
}

// StopMember административно останавливает участника
func (h *MemberHandler) StopMember(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid member ID format: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID format"})
		return
	}

	var req StopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}

	member, err := h.members.Stop(c.Request.Context(), memberID, req.Reason, actor)
	if err != nil {
		h.respondMemberError(c, err, memberID)
		return
	}

	c.JSON(http.StatusOK, member)
}

// ReactivateMember снимает остановку участника
func (h *MemberHandler) ReactivateMember(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.log.Warn("Invalid member ID format: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member ID format"})
		return
	}

	var req ReactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}

	member, err := h.members.Reactivate(c.Request.Context(), memberID, actor)
	if err != nil {
		h.respondMemberError(c, err, memberID)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) respondMemberError(c *gin.Context, err error, memberID uuid.UUID) {
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		h.log.Warn("Member not found: %s", memberID)
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
	case errors.Is(err, domain.ErrAlreadyPaused),
		errors.Is(err, domain.ErrNotPaused),
		errors.Is(err, domain.ErrAlreadyStopped),
		errors.Is(err, domain.ErrNotStopped):
		h.log.Warn("Invalid member state: %v", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPauseDate), errors.Is(err, domain.ErrInvalidInput):
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("Failed member operation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
