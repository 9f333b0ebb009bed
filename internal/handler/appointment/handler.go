package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yferras/clinic-api/internal/middleware"
	"github.com/yferras/clinic-api/internal/model"
	"github.com/yferras/clinic-api/internal/service/appointment"
	apperrors "github.com/yferras/clinic-api/pkg/errors"
	"github.com/yferras/clinic-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid appointment request", err))
		return
	}

	requester := middleware.CurrentUser(c)
	if requester == nil {
		httputil.RespondWithError(c, apperrors.NewForbidden("missing authenticated user"))
		return
	}

	result, err := h.service.CreateAppointment(c.Request.Context(), requester, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, result)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid appointment ID", err))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid appointment ID", err))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid status request", err))
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		httputil.RespondWithError(c, apperrors.NewForbidden("missing authenticated user"))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateAppointmentStatus)
	}
}
