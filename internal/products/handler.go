package products

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler exposes the product service over gin.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the product routes on the given router group.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/products", h.ListProducts)
	r.POST("/products", h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.DELETE("/products/:id", h.DeleteProduct)
}

type createProductInput struct {
	URL string `json:"url" binding:"required"`
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var input createProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: url is required"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), input.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, p)
	case errors.Is(err, ErrDuplicateURL):
		c.JSON(http.StatusConflict, gin.H{"error": "product with this url is already being tracked"})
	case errors.Is(err, ErrScrapeFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not scrape data from url; check that the domain is supported and the page is correct"})
	default:
		h.logger.Error("create product", "url", input.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
	}
}

func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products"})
		return
	}
	if list == nil {
		list = []Product{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, p)
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error("get product", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
	}
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	err := h.svc.Delete(c.Request.Context(), id)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error("delete product", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
	}
}

func (h *Handler) productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
