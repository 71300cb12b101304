package handler

import (
	"net/http"

	"bomtrack/internal/apperror"
	"bomtrack/internal/middleware"
	"bomtrack/internal/service"
	"bomtrack/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFromError maps the error taxonomy onto HTTP statuses: validation
// failures are 400, missing entities 404, retryable conflicts 409. Anything
// unclassified is a 500.
func statusFromError(err error) int {
	switch {
	case apperror.IsValidation(err):
		return http.StatusBadRequest
	case apperror.IsNotFound(err):
		return http.StatusNotFound
	case apperror.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	c.JSON(status, response.Error(status, err.Error()))
}

type BOMHandler struct {
	bomService service.BOMService
}

func NewBOMHandler(bomService service.BOMService) *BOMHandler {
	return &BOMHandler{bomService: bomService}
}

func (h *BOMHandler) RegisterRoutes(router *gin.RouterGroup) {
	boms := router.Group("/api/boms")
	{
		boms.POST("", middleware.RequirePermission("bom.write"), h.CreateBOM)
		boms.GET("/:id", middleware.RequirePermission("bom.read"), h.GetBOM)
		boms.POST("/:id/lines", middleware.RequirePermission("bom.write"), h.AddLine)
		boms.DELETE("/:id/lines/:lineId", middleware.RequirePermission("bom.write"), h.RemoveLine)
		boms.POST("/:id/approve", middleware.RequirePermission("bom.approve"), h.Approve)
		boms.POST("/:id/activate", middleware.RequirePermission("bom.activate"), h.Activate)
		boms.POST("/:id/duplicate", middleware.RequirePermission("bom.write"), h.Duplicate)
	}
	router.GET("/api/assemblies/:id/boms", middleware.RequirePermission("bom.read"), h.ListByAssembly)
}

// CreateBOM creates a new DRAFT BOM with the next version for its assembly
// @Summary      Create BOM
// @Tags         boms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateBOMRequest  true  "BOM payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/boms [post]
func (h *BOMHandler) CreateBOM(c *gin.Context) {
	var req service.CreateBOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bom, err := h.bomService.CreateBOM(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bom))
}

// GetBOM returns one BOM with its lines
// @Summary      Get BOM
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "BOM ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/boms/{id} [get]
func (h *BOMHandler) GetBOM(c *gin.Context) {
	bom, err := h.bomService.GetBOM(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bom))
}

// ListByAssembly returns all BOM versions of an assembly, newest first
// @Summary      List BOMs for assembly
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Assembly ID"
// @Success      200  {object}  response.Response
// @Router       /api/assemblies/{id}/boms [get]
func (h *BOMHandler) ListByAssembly(c *gin.Context) {
	boms, err := h.bomService.ListByAssembly(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, boms))
}

// AddLine adds a component line to a DRAFT BOM
// @Summary      Add BOM line
// @Tags         boms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "BOM ID"
// @Param        payload  body  service.AddLineRequest  true  "Line payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/boms/{id}/lines [post]
func (h *BOMHandler) AddLine(c *gin.Context) {
	var req service.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bom, err := h.bomService.AddLine(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bom))
}

// RemoveLine removes a component line from a DRAFT BOM
// @Summary      Remove BOM line
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id      path  string  true  "BOM ID"
// @Param        lineId  path  string  true  "Line ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/boms/{id}/lines/{lineId} [delete]
func (h *BOMHandler) RemoveLine(c *gin.Context) {
	if err := h.bomService.RemoveLine(c.Request.Context(), c.GetString("userID"), c.Param("id"), c.Param("lineId")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Line removed"}))
}

// Approve transitions a DRAFT BOM to APPROVED, freezing cost snapshots
// @Summary      Approve BOM
// @Tags         boms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true   "BOM ID"
// @Param        payload  body  service.ApproveBOMRequest  false  "Optional overrides"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/boms/{id}/approve [post]
func (h *BOMHandler) Approve(c *gin.Context) {
	var req service.ApproveBOMRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	bom, err := h.bomService.Approve(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bom))
}

// Activate promotes an APPROVED BOM to ACTIVE and archives the prior ACTIVE one
// @Summary      Activate BOM
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "BOM ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/boms/{id}/activate [post]
func (h *BOMHandler) Activate(c *gin.Context) {
	bom, err := h.bomService.Activate(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bom))
}

// Duplicate copies a BOM's header and lines into a new DRAFT version
// @Summary      Duplicate BOM
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "BOM ID"
// @Success      201  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/boms/{id}/duplicate [post]
func (h *BOMHandler) Duplicate(c *gin.Context) {
	bom, err := h.bomService.Duplicate(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bom))
}
