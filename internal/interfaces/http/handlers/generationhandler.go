package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clipforge/internal/application/generation"
	"clipforge/internal/shared/logger"
	"clipforge/internal/shared/utils"
)

// RenderRequest is the request body for render submission.
type RenderRequest struct {
	ProjectID  string `json:"projectId" validate:"required"`
	TemplateID string `json:"templateId"`
	Prompt     string `json:"prompt" validate:"required,max=4000"`
}

type GenerationHandler struct {
	dispatcher *generation.Dispatcher
	logger     logger.Interface
}

func NewGenerationHandler(dispatcher *generation.Dispatcher, logger logger.Interface) *GenerationHandler {
	return &GenerationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SubmitRender queues a render job and waits for the downstream
// acknowledgement. The queue bounds concurrency toward the render farm,
// so under load this request parks until a slot frees up.
func (h *GenerationHandler) SubmitRender(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid render request body", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	task := h.dispatcher.Submit(c.Request.Context(), generation.RenderJob{
		ProjectID:  req.ProjectID,
		TemplateID: req.TemplateID,
		Prompt:     req.Prompt,
	})

	result, err := task.Wait(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "render queued", result)
}

// RequestPreview schedules a debounced preview render and returns
// immediately. Rapid successive edits collapse into one submission.
func (h *GenerationHandler) RequestPreview(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid preview request body", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.dispatcher.RequestPreview(generation.RenderJob{
		ProjectID:  req.ProjectID,
		TemplateID: req.TemplateID,
		Prompt:     req.Prompt,
	})

	utils.SuccessResponse(c, http.StatusAccepted, "preview scheduled", nil)
}

// GetStatus polls the downstream job status, throttled so a polling
// client cannot hammer the render farm.
func (h *GenerationHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing job id")
		return
	}

	status, ok, err := h.dispatcher.PollStatus(jobID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if !ok {
		// Inside the poll cool-down: nothing fresh to report yet.
		c.Header("Retry-After", "2")
		utils.SuccessResponse(c, http.StatusOK, "status poll throttled, retry shortly", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", status)
}
