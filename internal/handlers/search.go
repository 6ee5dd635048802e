package handlers

import (
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/electromart/electromart/internal/cache"
	"github.com/electromart/electromart/internal/service/search"
	"github.com/electromart/electromart/internal/util"
)

const searchTTL = 2 * time.Minute

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
	Cache *cache.Cache
}

func (h *SearchHandler) Search(c echo.Context) error {
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is unavailable")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	ctx := c.Request().Context()
	key := cache.SearchKey(q, from, size)

	var cached map[string]any
	if h.Cache != nil && h.Cache.Get(ctx, key, &cached) {
		return c.JSON(http.StatusOK, cached)
	}

	total, products, err := search.Search(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := map[string]any{"total": total, "products": products}
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, key, resp, searchTTL); err != nil {
			c.Logger().Errorf("cache set error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, resp)
}
