package handler

import (
	"net/http"

	"bomtrack/internal/middleware"
	"bomtrack/internal/service"
	"bomtrack/pkg/response"

	"github.com/gin-gonic/gin"
)

type SeedHandler struct {
	seedService service.SeedService
}

func NewSeedHandler(seedService service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

func (h *SeedHandler) RegisterRoutes(router *gin.RouterGroup) {
	seed := router.Group("/api/seed")
	{
		seed.POST("/assemblies", middleware.RequirePermission("seed.run"), h.SeedAssemblies)
		seed.POST("/backfill-classification", middleware.RequirePermission("seed.run"), h.BackfillClassification)
	}
}

// SeedAssemblies creates assemblies for the given product x plant pairs.
// Existing pairs are skipped, so the operation can be re-run safely.
// @Summary      Seed assemblies
// @Tags         seed
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.SeedRequest  true  "Products and plants to seed"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/seed/assemblies [post]
func (h *SeedHandler) SeedAssemblies(c *gin.Context) {
	var req service.SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	summary, err := h.seedService.Seed(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// BackfillClassification copies finished-good flags down from products onto
// assemblies created before the denormalized columns existed
// @Summary      Backfill assembly classification
// @Tags         seed
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/seed/backfill-classification [post]
func (h *SeedHandler) BackfillClassification(c *gin.Context) {
	summary, err := h.seedService.BackfillClassification(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
