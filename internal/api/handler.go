package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"biblioteca-server/internal/broker"
	"biblioteca-server/internal/models"
	"biblioteca-server/internal/objectstore"
	"biblioteca-server/internal/service"
	"biblioteca-server/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	reconciler *service.Reconciler
	queries    *service.CatalogQueryService
	bookstores *service.BookstoreService
	detector   *service.DetectClient
	images     *objectstore.Client
	publisher  *broker.EventPublisher
	presignTTL time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	reconciler *service.Reconciler,
	queries *service.CatalogQueryService,
	bookstores *service.BookstoreService,
	detector *service.DetectClient,
	images *objectstore.Client,
	publisher *broker.EventPublisher,
	presignTTL time.Duration,
) *Handler {
	return &Handler{
		reconciler: reconciler,
		queries:    queries,
		bookstores: bookstores,
		detector:   detector,
		images:     images,
		publisher:  publisher,
		presignTTL: presignTTL,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/bookstores", h.listBookstores)
		api.POST("/bookstores", h.createBookstore)
		api.GET("/books", h.listBooks)
		api.POST("/books/bulk-add", h.bulkAddBooks)
		api.POST("/upload", h.uploadImage)
		api.GET("/images/:bookstoreSlug", h.listImages)
		api.POST("/detect", h.detectBooks)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// bulkAddBooks reconciles a batch of confirmed detections into inventory
func (h *Handler) bulkAddBooks(c *gin.Context) {
	var req service.BulkAddRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.reconciler.BulkAdd(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrMissingSlug) ||
			errors.Is(err, service.ErrEmptyBatch) ||
			errors.Is(err, service.ErrBookstoreNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add books to inventory",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully processed %d books", len(result.Added)),
		"results": result,
	})
}

// listBooks handles the paginated inventory listing
func (h *Handler) listBooks(c *gin.Context) {
	slug := c.Query("bookstoreId")

	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if errPage != nil || errLimit != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidPagination.Error()})
		return
	}
	search := c.Query("search")

	result, err := h.queries.ListBooks(c.Request.Context(), slug, page, limit, search)
	if err != nil {
		if errors.Is(err, service.ErrMissingBookstoreID) ||
			errors.Is(err, service.ErrInvalidPagination) ||
			errors.Is(err, service.ErrBookstoreNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       result.Data,
		"pagination": result.Pagination,
		"filters":    result.Filters,
	})
}

// listBookstores handles the bookstore listing
func (h *Handler) listBookstores(c *gin.Context) {
	stores, err := h.bookstores.ListBookstores(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookstores"})
		return
	}
	c.JSON(http.StatusOK, stores)
}

// createBookstore registers a new bookstore
func (h *Handler) createBookstore(c *gin.Context) {
	var req service.CreateBookstoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bookstore, err := h.bookstores.CreateBookstore(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrMissingBookstoreName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bookstore"})
		return
	}

	c.JSON(http.StatusOK, bookstore)
}

// uploadImage stores a shelf photo under the bookstore's folder
func (h *Handler) uploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	fileName := c.PostForm("fileName")
	if fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No filename provided"})
		return
	}

	bookstoreSlug := c.PostForm("bookstoreSlug")
	if bookstoreSlug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No bookstore slug provided"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be an image"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}
	defer src.Close()

	// Keys are namespaced by slug so stores cannot collide
	key := bookstoreSlug + "/" + fileName

	if err := h.images.Save(c.Request.Context(), key, src, file.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	util.ImagesUploadedTotal.Inc()

	if h.publisher != nil {
		event := &models.ImageUploadedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeImageUploaded,
				Timestamp: time.Now(),
			},
			BookstoreSlug: bookstoreSlug,
			FileName:      key,
			Size:          file.Size,
			ContentType:   contentType,
		}
		if err := h.publisher.PublishImageUploaded(c.Request.Context(), event); err != nil {
			util.GetLogger().Warn("Failed to publish ImageUploaded event", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"fileName":      key,
		"bucketName":    h.images.Bucket(),
		"size":          file.Size,
		"type":          contentType,
		"bookstoreSlug": bookstoreSlug,
	})
}

// listImages lists a bookstore's shelf photos with presigned download URLs
func (h *Handler) listImages(c *gin.Context) {
	slug := c.Param("bookstoreSlug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bookstore slug is required"})
		return
	}

	images, err := h.images.ListBookstoreImages(c.Request.Context(), slug, h.presignTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    images,
		"count":   len(images),
	})
}

// detectBooks forwards a shelf photo to the inference service and returns
// its detections for confirmation
func (h *Handler) detectBooks(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()

	books, err := h.detector.Detect(c.Request.Context(), file.Filename, src)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to run detection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"books":   books,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
