package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"clipforge/internal/application/ratelimit/dto"
	"clipforge/internal/application/ratelimit/usecases"
	"clipforge/internal/infrastructure/auth"
	"clipforge/internal/shared/logger"
	"clipforge/internal/shared/utils"
)

const (
	actionCheck         = "check"
	actionRecordAttempt = "record_attempt"
	actionReset         = "reset"

	// fallbackIdentifier is used when no client address can be derived
	// from the request. All anonymous traffic shares one bucket.
	fallbackIdentifier = "0.0.0.0"
)

// RateLimitRequest is the request body for the rate limit endpoint.
type RateLimitRequest struct {
	Action        string `json:"action" validate:"required,oneof=check record_attempt reset"`
	Success       *bool  `json:"success"`
	CaptchaSolved bool   `json:"captchaSolved"`
}

type RateLimitHandler struct {
	checkLimit    checkLimitUseCase
	recordAttempt recordAttemptUseCase
	resetLimit    resetLimitUseCase
	getAuditTrail getAuditTrailUseCase
	verifier      tokenVerifier
	logger        logger.Interface
}

func NewRateLimitHandler(
	checkLimit checkLimitUseCase,
	recordAttempt recordAttemptUseCase,
	resetLimit resetLimitUseCase,
	getAuditTrail getAuditTrailUseCase,
	verifier tokenVerifier,
	logger logger.Interface,
) *RateLimitHandler {
	return &RateLimitHandler{
		checkLimit:    checkLimit,
		recordAttempt: recordAttempt,
		resetLimit:    resetLimit,
		getAuditTrail: getAuditTrail,
		verifier:      verifier,
		logger:        logger,
	}
}

// Handle dispatches the rate limit action from the request body: check
// classifies the caller's state, record_attempt registers a login
// outcome, reset clears all state for the caller.
func (h *RateLimitHandler) Handle(c *gin.Context) {
	var req RateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid rate limit request body", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	identifier := clientIdentifier(c)

	switch req.Action {
	case actionCheck:
		h.handleCheck(c, identifier)
	case actionRecordAttempt:
		h.handleRecordAttempt(c, identifier, req)
	case actionReset:
		h.handleReset(c, identifier)
	default:
		// unreachable: validation already rejects unknown actions
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown action")
	}
}

func (h *RateLimitHandler) handleCheck(c *gin.Context, identifier string) {
	status, err := h.checkLimit.Execute(c.Request.Context(), identifier)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	h.respondWithStatus(c, status)
}

func (h *RateLimitHandler) handleRecordAttempt(c *gin.Context, identifier string, req RateLimitRequest) {
	if req.Success == nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "success is required for record_attempt")
		return
	}

	status, err := h.recordAttempt.Execute(c.Request.Context(), usecases.RecordAttemptCommand{
		Identifier:    identifier,
		Success:       *req.Success,
		CaptchaSolved: req.CaptchaSolved,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	h.respondWithStatus(c, status)
}

// handleReset clears state for the caller's identifier. Unlike check
// and record_attempt this is an operator action, so it requires an
// admin bearer token.
func (h *RateLimitHandler) handleReset(c *gin.Context, identifier string) {
	if !h.requireAdminToken(c) {
		return
	}

	if err := h.resetLimit.Execute(c.Request.Context(), identifier); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "rate limit reset", nil)
}

func (h *RateLimitHandler) requireAdminToken(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if authHeader == "" || len(parts) != 2 || parts[0] != "Bearer" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
		return false
	}

	claims, err := h.verifier.Verify(parts[1])
	if err != nil {
		h.logger.Warnw("failed to verify reset token", "error", err)
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
		return false
	}
	if claims.Role != auth.RoleAdmin {
		utils.ErrorResponse(c, http.StatusForbidden, "admin privileges required")
		return false
	}
	return true
}

// GetAuditTrail returns the recent auth events for an identifier.
// Admin-only.
func (h *RateLimitHandler) GetAuditTrail(c *gin.Context) {
	identifier := c.Query("identifier")
	if identifier == "" {
		identifier = clientIdentifier(c)
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	events, err := h.getAuditTrail.Execute(c.Request.Context(), identifier, limit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", events)
}

// respondWithStatus maps a blocked decision to 429 with a Retry-After
// header so well-behaved clients back off without parsing the body.
func (h *RateLimitHandler) respondWithStatus(c *gin.Context, status *dto.LimitStatusDTO) {
	if status.Blocked {
		if status.RetryAfterSeconds != nil {
			c.Header("Retry-After", strconv.Itoa(*status.RetryAfterSeconds))
		}
		c.JSON(http.StatusTooManyRequests, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// clientIdentifier derives the rate-limit bucket from proxy headers in
// trust order: the first X-Forwarded-For hop, then CF-Connecting-IP,
// then X-Real-IP, falling back to a shared anonymous bucket.
func clientIdentifier(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if cfIP := c.GetHeader("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}
	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	return fallbackIdentifier
}
