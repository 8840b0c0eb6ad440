package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"stackwarden/internal/models"
	"stackwarden/services"
)

type SupervisorController struct {
	sup *services.Supervisor
}

func NewSupervisorController(sup *services.Supervisor) *SupervisorController {
	return &SupervisorController{sup: sup}
}

// RegisterRoutes attaches the service management API to the router.
func (s *SupervisorController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/stackwarden/api/v1")
	api.GET("/services", s.ListServices)
	api.GET("/services/:name", s.GetService)
	api.POST("/services/:name/start", s.StartService)
	api.POST("/services/:name/stop", s.StopService)
	api.POST("/services/:name/restart", s.RestartService)
	api.POST("/services/:name/reset", s.ResetService)
	api.GET("/alerts", s.ListAlerts)
}

// ListServices returns the current runtime snapshot of every service
//
//	@Summary		List all services
//	@Description	Point-in-time snapshot of every managed service's runtime state
//	@Tags			Services
//	@Produce		json
//	@Success		200	{array}		models.ServiceRuntime	"Runtime records in id order"
//	@Router			/stackwarden/api/v1/services [get]
func (s *SupervisorController) ListServices(c *gin.Context) {
	snap := s.sup.Snapshot()
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.ServiceRuntime, 0, len(ids))
	for _, id := range ids {
		out = append(out, snap[id])
	}
	c.JSON(http.StatusOK, out)
}

// GetService returns the runtime record of one service
//
//	@Summary		Get service
//	@Description	Runtime state of a single service by name
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceRuntime	"Runtime record"
//	@Failure		404		{object}	models.ErrorResponse	"Unknown service"
//	@Router			/stackwarden/api/v1/services/{name} [get]
func (s *SupervisorController) GetService(c *gin.Context) {
	name := c.Param("name")
	rt, err := s.sup.Service(name)
	if err != nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "service.notexist",
			Error: fmt.Sprintf("service [%s] does not exist", name),
		})
		return
	}
	c.JSON(http.StatusOK, rt)
}

// StartService starts one stopped service
//
//	@Summary		Start service
//	@Description	Start a stopped service; its dependencies must be healthy
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceRuntime	"Runtime record after the start was issued"
//	@Failure		404		{object}	models.ErrorResponse	"Unknown service"
//	@Failure		409		{object}	models.ErrorResponse	"Already running or dependency not healthy"
//	@Router			/stackwarden/api/v1/services/{name}/start [post]
func (s *SupervisorController) StartService(c *gin.Context) {
	s.serviceAction(c, s.sup.StartService)
}

// StopService stops one running service
//
//	@Summary		Stop service
//	@Description	Stop a running service with its configured grace period
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceRuntime	"Runtime record after the stop"
//	@Failure		404		{object}	models.ErrorResponse	"Unknown service"
//	@Router			/stackwarden/api/v1/services/{name}/stop [post]
func (s *SupervisorController) StopService(c *gin.Context) {
	s.serviceAction(c, s.sup.StopService)
}

// RestartService stops and starts one service
//
//	@Summary		Restart service
//	@Description	Stop then start a service; healthy dependents are not touched
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceRuntime	"Runtime record after the restart was issued"
//	@Failure		404		{object}	models.ErrorResponse	"Unknown service"
//	@Router			/stackwarden/api/v1/services/{name}/restart [post]
func (s *SupervisorController) RestartService(c *gin.Context) {
	s.serviceAction(c, s.sup.RestartService)
}

// ResetService clears a persistent failure on operator request
//
//	@Summary		Reset service
//	@Description	Clear the restart budget of a persistently failed service; no-op otherwise
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceRuntime	"Runtime record after the reset"
//	@Failure		404		{object}	models.ErrorResponse	"Unknown service"
//	@Router			/stackwarden/api/v1/services/{name}/reset [post]
func (s *SupervisorController) ResetService(c *gin.Context) {
	name := c.Param("name")
	if err := s.sup.Reset(name); err != nil {
		s.writeError(c, name, err)
		return
	}
	rt, _ := s.sup.Service(name)
	c.JSON(http.StatusOK, rt)
}

// ListAlerts returns the recent alert history
//
//	@Summary		List alerts
//	@Description	Recent operator alerts after deduplication, newest last
//	@Tags			Alerts
//	@Produce		json
//	@Success		200	{array}	models.Alert	"Alert history"
//	@Router			/stackwarden/api/v1/alerts [get]
func (s *SupervisorController) ListAlerts(c *gin.Context) {
	alerts := s.sup.Alerts()
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *SupervisorController) serviceAction(c *gin.Context,
	action func(context.Context, string) error) {
	name := c.Param("name")
	if err := action(c.Request.Context(), name); err != nil {
		s.writeError(c, name, err)
		return
	}
	rt, _ := s.sup.Service(name)
	c.JSON(http.StatusOK, rt)
}

func (s *SupervisorController) writeError(c *gin.Context, name string, err error) {
	switch {
	case errors.Is(err, models.ErrServiceNotFound):
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "service.notexist",
			Error: fmt.Sprintf("service [%s] does not exist", name),
		})
	case errors.Is(err, models.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, &models.ErrorResponse{
			Code:  "service.running",
			Error: fmt.Sprintf("service [%s] is already running", name),
		})
	case errors.Is(err, models.ErrPersistentFailure):
		c.JSON(http.StatusConflict, &models.ErrorResponse{
			Code:  "service.failed",
			Error: fmt.Sprintf("service [%s] is in persistent failure, reset it before starting", name),
		})
	default:
		c.JSON(http.StatusConflict, &models.ErrorResponse{Error: err.Error()})
	}
}
