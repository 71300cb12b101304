package handler

import (
	"net/http"

	"bomtrack/internal/middleware"
	"bomtrack/internal/service"
	"bomtrack/pkg/pagination"
	"bomtrack/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	{
		products.GET("", middleware.RequirePermission("masters.read"), h.ListProducts)
		products.GET("/:id", middleware.RequirePermission("masters.read"), h.GetProduct)
		products.POST("", middleware.RequirePermission("masters.write"), h.CreateProduct)
		products.PUT("/:id", middleware.RequirePermission("masters.write"), h.UpdateProduct)
	}
	plants := router.Group("/api/plants")
	{
		plants.GET("", middleware.RequirePermission("masters.read"), h.ListPlants)
		plants.POST("", middleware.RequirePermission("masters.write"), h.CreatePlant)
		plants.PUT("/:id", middleware.RequirePermission("masters.write"), h.UpdatePlant)
		plants.GET("/:id/lines", middleware.RequirePermission("masters.read"), h.ListProductionLines)
		plants.POST("/:id/lines", middleware.RequirePermission("masters.write"), h.CreateProductionLine)
		plants.GET("/:id/workers", middleware.RequirePermission("masters.read"), h.ListWorkers)
		plants.POST("/:id/workers", middleware.RequirePermission("masters.write"), h.CreateWorker)
	}
	parties := router.Group("/api/parties")
	{
		parties.GET("", middleware.RequirePermission("masters.read"), h.ListParties)
		parties.POST("", middleware.RequirePermission("masters.write"), h.CreateParty)
		parties.PUT("/:id", middleware.RequirePermission("masters.write"), h.UpdateParty)
	}
	router.PUT("/api/assemblies/:id", middleware.RequirePermission("masters.write"), h.UpdateAssembly)
}

// ListProducts returns paginated catalog products with optional search
// @Summary      List products
// @Tags         masters
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        search  query  string  false  "Search by code or name"
// @Success      200  {object}  response.Response
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	page, limit := p.Page, p.Limit
	products, total, err := h.catalogService.ListProducts(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, page, limit, total))
}

// GetProduct returns one catalog product
// @Summary      Get product
// @Tags         masters
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct creates a catalog product
// @Summary      Create product
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.ProductRequest  true  "Product payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	product, err := h.catalogService.CreateProduct(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct updates a catalog product
// @Summary      Update product
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "Product ID"
// @Param        payload  body  service.ProductRequest  true  "Product payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// ListPlants returns paginated plants
// @Summary      List plants
// @Tags         masters
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/plants [get]
func (h *CatalogHandler) ListPlants(c *gin.Context) {
	p := pagination.Parse(c)
	page, limit := p.Page, p.Limit
	plants, total, err := h.catalogService.ListPlants(c.Request.Context(), page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, plants, page, limit, total))
}

// CreatePlant creates a plant
// @Summary      Create plant
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.PlantRequest  true  "Plant payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/plants [post]
func (h *CatalogHandler) CreatePlant(c *gin.Context) {
	var req service.PlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	plant, err := h.catalogService.CreatePlant(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, plant))
}

// UpdatePlant updates a plant
// @Summary      Update plant
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Plant ID"
// @Param        payload  body  service.PlantRequest  true  "Plant payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/plants/{id} [put]
func (h *CatalogHandler) UpdatePlant(c *gin.Context) {
	var req service.PlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	plant, err := h.catalogService.UpdatePlant(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, plant))
}

// ListProductionLines returns the production lines of a plant
// @Summary      List production lines
// @Tags         masters
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Plant ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/plants/{id}/lines [get]
func (h *CatalogHandler) ListProductionLines(c *gin.Context) {
	lines, err := h.catalogService.ListProductionLines(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, lines))
}

// CreateProductionLine adds a production line to a plant
// @Summary      Create production line
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Plant ID"
// @Param        payload  body  service.ProductionLineRequest  true  "Line payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/plants/{id}/lines [post]
func (h *CatalogHandler) CreateProductionLine(c *gin.Context) {
	var req service.ProductionLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	line, err := h.catalogService.CreateProductionLine(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, line))
}

// ListWorkers returns the workers of a plant
// @Summary      List workers
// @Tags         masters
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Plant ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/plants/{id}/workers [get]
func (h *CatalogHandler) ListWorkers(c *gin.Context) {
	workers, err := h.catalogService.ListWorkers(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, workers))
}

// CreateWorker adds a worker to a plant
// @Summary      Create worker
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "Plant ID"
// @Param        payload  body  service.WorkerRequest  true  "Worker payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/plants/{id}/workers [post]
func (h *CatalogHandler) CreateWorker(c *gin.Context) {
	var req service.WorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	worker, err := h.catalogService.CreateWorker(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, worker))
}

// ListParties returns paginated vendor/customer parties
// @Summary      List parties
// @Tags         masters
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        search  query  string  false  "Search by code or name"
// @Success      200  {object}  response.Response
// @Router       /api/parties [get]
func (h *CatalogHandler) ListParties(c *gin.Context) {
	p := pagination.Parse(c)
	page, limit := p.Page, p.Limit
	parties, total, err := h.catalogService.ListParties(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, parties, page, limit, total))
}

// CreateParty creates a vendor/customer party
// @Summary      Create party
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.PartyRequest  true  "Party payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/parties [post]
func (h *CatalogHandler) CreateParty(c *gin.Context) {
	var req service.PartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	party, err := h.catalogService.CreateParty(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, party))
}

// UpdateParty updates a vendor/customer party
// @Summary      Update party
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Party ID"
// @Param        payload  body  service.PartyRequest  true  "Party payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/parties/{id} [put]
func (h *CatalogHandler) UpdateParty(c *gin.Context) {
	var req service.PartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	party, err := h.catalogService.UpdateParty(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, party))
}

// UpdateAssembly edits the plant-scoped fields of one assembly
// @Summary      Update assembly
// @Tags         masters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Assembly ID"
// @Param        payload  body  service.AssemblyUpdateRequest  true  "Assembly payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/assemblies/{id} [put]
func (h *CatalogHandler) UpdateAssembly(c *gin.Context) {
	var req service.AssemblyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	assembly, err := h.catalogService.UpdateAssembly(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, assembly))
}
