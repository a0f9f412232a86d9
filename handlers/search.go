package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skewcube/skewcube-backend-go/search"
	"github.com/skewcube/skewcube-backend-go/utils"
)

type SearchHandler struct {
	Search *search.Service
}

// Handle answers substring search over product name and brand.
func (h *SearchHandler) Handle(c echo.Context) error {
	word := c.Param("word")
	if word == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Search word is required",
		})
	}

	page, skip, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"))

	total, products, err := h.Search.Search(c.Request().Context(), word, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"products":    products,
		"totalCount":  total,
		"totalPages":  (total + int64(limit) - 1) / int64(limit),
		"currentPage": page,
		"limit":       limit,
	})
}
