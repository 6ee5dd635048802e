package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/cache"
	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/mykafka"
	"github.com/electromart/electromart/internal/repo"
	"github.com/electromart/electromart/internal/service/search"
	"github.com/electromart/electromart/internal/util"
)

const productListTTL = 5 * time.Minute

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Cache    *cache.Cache
	ES       *elasticsearch.Client
	ESIndex  string
}

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Brand       string          `json:"brand"`
	RAM         string          `json:"ram"`
	Processor   string          `json:"processor"`
	Storage     string          `json:"storage"`
	Image       string          `json:"image"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// afterWrite keeps the cache and search index in step with the catalog;
// neither failure blocks the response.
func (h *ProductHandler) afterWrite(c echo.Context, p *models.Product, deleted bool) {
	ctx := c.Request().Context()

	if h.Cache != nil {
		if err := h.Cache.InvalidateProducts(ctx); err != nil {
			c.Logger().Errorf("cache invalidation error: %v", err)
		}
	}

	if h.ES == nil {
		return
	}
	var err error
	if deleted {
		err = search.DeleteProduct(ctx, h.ES, h.ESIndex, p.ID)
	} else {
		err = search.IndexProduct(ctx, h.ES, h.ESIndex, p)
	}
	if err != nil {
		c.Logger().Errorf("search index sync error: %v", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	products := &repo.ProductRepo{DB: h.DB}
	product, err := products.ByID(c.Request().Context(), uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	ctx := c.Request().Context()
	key := cache.ProductsKey(page, limit, "")

	var cached map[string]any
	if h.Cache != nil && h.Cache.Get(ctx, key, &cached) {
		return c.JSON(http.StatusOK, cached)
	}

	products := &repo.ProductRepo{DB: h.DB}
	items, total, err := products.List(ctx, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	}

	if h.Cache != nil {
		if err := h.Cache.Set(ctx, key, resp, productListTTL); err != nil {
			c.Logger().Errorf("cache set error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and category required")
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		Brand:       req.Brand,
		RAM:         req.RAM,
		Processor:   req.Processor,
		Storage:     req.Storage,
		Image:       req.Image,
	}

	products := &repo.ProductRepo{DB: h.DB}
	if err := products.Create(c.Request().Context(), &prod); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.afterWrite(c, &prod, false)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	products := &repo.ProductRepo{DB: h.DB}
	prod, err := products.ByID(c.Request().Context(), uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Price = req.Price
	prod.Category = req.Category
	prod.Stock = req.Stock
	prod.Brand = req.Brand
	prod.RAM = req.RAM
	prod.Processor = req.Processor
	prod.Storage = req.Storage
	prod.Image = req.Image

	if err := products.Save(c.Request().Context(), prod); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.afterWrite(c, prod, false)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	products := &repo.ProductRepo{DB: h.DB}
	if err := products.Delete(c.Request().Context(), uint(id)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.afterWrite(c, &models.Product{ID: uint(id)}, true)
	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": uint(id),
	})

	return c.NoContent(http.StatusNoContent)
}
