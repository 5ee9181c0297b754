package handlers

import (
	"net/http"
	"time"

	"splitflap"

	"github.com/gin-gonic/gin"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Board status
// @Description  Current cached content plus circuit summary.
// @Tags         board
// @Produce      json
// @Success      200  {object}  apiResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  apiResponse
// @Router       /api/v1/board [get]
// @Security     BearerAuth
func (h *Handler) getBoard(c *gin.Context) {
	status, err := h.services.Monitoring.BoardStatus(c.Request.Context())
	if err != nil {
		h.log.Errorw("board_status_failed", "err", err)
		respondError(c, http.StatusInternalServerError, "failed to load board status")
		return
	}
	respondOK(c, status, "")
}

// @Summary      Force a major refresh
// @Description  Runs a full generation cycle immediately, honoring circuit gates.
// @Tags         board
// @Produce      json
// @Success      200  {object}  apiResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/board/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshBoard(c *gin.Context) {
	result := h.services.Orchestrator.GenerateAndSend(c.Request.Context(), splitflap.GenerationContext{
		UpdateType: splitflap.UpdateMajor,
		Timestamp:  time.Now(),
	})
	respondOK(c, result, "")
}
