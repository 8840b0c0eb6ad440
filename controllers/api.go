package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stackwarden/services"
)

type APIController struct {
	sup     *services.Supervisor
	version string
}

func NewAPIController(sup *services.Supervisor, version string) *APIController {
	return &APIController{sup: sup, version: version}
}

// RegisterRoutes attaches the daemon-level endpoints to the router.
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Healthz is the daemon's readiness probe
//
//	@Summary		Daemon health
//	@Description	Supervisor uptime and a per-state tally of managed services
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	models.HealthResponse
//	@Router			/healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.sup.Healthz(a.version))
}
