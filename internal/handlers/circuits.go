package handlers

import (
	"errors"
	"net/http"

	"splitflap"
	"splitflap/internal/service"

	"github.com/gin-gonic/gin"
)

// apiResponse is the uniform envelope for the circuit/board/event surface.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	errCircuitServiceDown = "circuit breaker service unavailable"
	errCircuitNotFound    = "circuit not found"
)

func respondOK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, apiResponse{Success: true, Data: data, Message: message})
}

func respondError(c *gin.Context, code int, msg string) {
	c.JSON(code, apiResponse{Success: false, Error: msg})
}

// circuitService guards against a deployment without the breaker service.
func (h *Handler) circuitService(c *gin.Context) (service.CircuitBreaker, bool) {
	if h.services == nil || h.services.CircuitBreaker == nil {
		respondError(c, http.StatusServiceUnavailable, errCircuitServiceDown)
		return nil, false
	}
	return h.services.CircuitBreaker, true
}

// @Summary      List circuits
// @Tags         circuits
// @Produce      json
// @Success      200  {object}  apiResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  apiResponse
// @Router       /api/v1/circuits [get]
// @Security     BearerAuth
func (h *Handler) getCircuits(c *gin.Context) {
	svc, ok := h.circuitService(c)
	if !ok {
		return
	}
	circuits, err := svc.GetAllCircuits(c.Request.Context())
	if err != nil {
		h.log.Errorw("list_circuits_failed", "err", err)
		respondError(c, http.StatusInternalServerError, "failed to list circuits")
		return
	}
	respondOK(c, circuits, "")
}

// @Summary      Get one circuit
// @Tags         circuits
// @Produce      json
// @Param        id   path      string  true  "Circuit id"
// @Success      200  {object}  apiResponse
// @Failure      404  {object}  apiResponse
// @Router       /api/v1/circuits/{id} [get]
// @Security     BearerAuth
func (h *Handler) getCircuit(c *gin.Context) {
	svc, ok := h.circuitService(c)
	if !ok {
		return
	}
	circuit, err := svc.GetCircuitStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Errorw("get_circuit_failed", "circuit", c.Param("id"), "err", err)
		respondError(c, http.StatusInternalServerError, "failed to load circuit")
		return
	}
	if circuit == nil {
		respondError(c, http.StatusNotFound, errCircuitNotFound)
		return
	}
	respondOK(c, circuit, "")
}

// @Summary      Close a circuit (allow its action)
// @Tags         circuits
// @Produce      json
// @Param        id   path      string  true  "Circuit id"
// @Success      200  {object}  apiResponse
// @Failure      404  {object}  apiResponse
// @Router       /api/v1/circuits/{id}/on [post]
// @Security     BearerAuth
func (h *Handler) circuitOn(c *gin.Context) {
	h.setCircuit(c, splitflap.StateOn)
}

// @Summary      Open a circuit (block its action)
// @Tags         circuits
// @Produce      json
// @Param        id   path      string  true  "Circuit id"
// @Success      200  {object}  apiResponse
// @Failure      404  {object}  apiResponse
// @Router       /api/v1/circuits/{id}/off [post]
// @Security     BearerAuth
func (h *Handler) circuitOff(c *gin.Context) {
	h.setCircuit(c, splitflap.StateOff)
}

func (h *Handler) setCircuit(c *gin.Context, state splitflap.CircuitState) {
	svc, ok := h.circuitService(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := svc.SetCircuitState(c.Request.Context(), id, state); err != nil {
		if errors.Is(err, service.ErrUnknownCircuit) {
			respondError(c, http.StatusNotFound, errCircuitNotFound)
			return
		}
		h.log.Errorw("set_circuit_failed", "circuit", id, "state", state, "err", err)
		respondError(c, http.StatusInternalServerError, "failed to update circuit")
		return
	}
	h.respondWithCircuit(c, svc, id, "circuit set to "+string(state))
}

// @Summary      Reset a provider circuit
// @Description  Closes a tripped provider circuit and zeroes its counters. Manual circuits cannot be reset.
// @Tags         circuits
// @Produce      json
// @Param        id   path      string  true  "Circuit id"
// @Success      200  {object}  apiResponse
// @Failure      400  {object}  apiResponse
// @Failure      404  {object}  apiResponse
// @Router       /api/v1/circuits/{id}/reset [post]
// @Security     BearerAuth
func (h *Handler) circuitReset(c *gin.Context) {
	svc, ok := h.circuitService(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := svc.ResetProviderCircuit(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownCircuit):
			respondError(c, http.StatusNotFound, errCircuitNotFound)
		case errors.Is(err, service.ErrResetManual):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			h.log.Errorw("reset_circuit_failed", "circuit", id, "err", err)
			respondError(c, http.StatusInternalServerError, "failed to reset circuit")
		}
		return
	}
	h.respondWithCircuit(c, svc, id, "circuit reset")
}

// respondWithCircuit includes the fresh row after a mutation, best effort.
func (h *Handler) respondWithCircuit(c *gin.Context, svc service.CircuitBreaker, id, message string) {
	circuit, err := svc.GetCircuitStatus(c.Request.Context(), id)
	if err != nil {
		respondOK(c, nil, message)
		return
	}
	respondOK(c, circuit, message)
}
