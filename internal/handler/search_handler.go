package handler

import (
	"net/http"

	"bomtrack/internal/middleware"
	"bomtrack/internal/service"
	"bomtrack/pkg/pagination"
	"bomtrack/pkg/response"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchService service.SearchService
}

func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (h *SearchHandler) RegisterRoutes(router *gin.RouterGroup) {
	search := router.Group("/api/search")
	{
		search.GET("/finished-goods", middleware.RequirePermission("bom.read"), h.FinishedGoods)
		search.GET("/components", middleware.RequirePermission("bom.read"), h.Components)
	}
}

// FinishedGoods is the autocomplete source for finished-good assemblies
// @Summary      Search finished goods
// @Tags         search
// @Security     BearerAuth
// @Produce      json
// @Param        q         query  string  false  "Search term (code or name)"
// @Param        plant_id  query  string  false  "Restrict to one plant"
// @Param        page      query  int     false  "Page number (default: 1)"
// @Param        limit     query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/search/finished-goods [get]
func (h *SearchHandler) FinishedGoods(c *gin.Context) {
	p := pagination.Parse(c)
	page, limit := p.Page, p.Limit
	res, err := h.searchService.FinishedGoods(c.Request.Context(), c.Query("q"), c.Query("plant_id"), page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Components is the autocomplete source for component-eligible assemblies
// @Summary      Search components
// @Tags         search
// @Security     BearerAuth
// @Produce      json
// @Param        q         query  string  false  "Search term (code or name)"
// @Param        plant_id  query  string  false  "Restrict to one plant"
// @Param        page      query  int     false  "Page number (default: 1)"
// @Param        limit     query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/search/components [get]
func (h *SearchHandler) Components(c *gin.Context) {
	p := pagination.Parse(c)
	page, limit := p.Page, p.Limit
	res, err := h.searchService.Components(c.Request.Context(), c.Query("q"), c.Query("plant_id"), page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
