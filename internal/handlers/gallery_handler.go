package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/services"
)

type GalleryHandler struct {
	galleryService *services.GalleryService
	log            *zap.Logger
}

func NewGalleryHandler(galleryService *services.GalleryService, log *zap.Logger) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
		log:            log,
	}
}

// GetArchive returns the verified archive, optionally for one category.
// GET /api/archive?category=photo
func (h *GalleryHandler) GetArchive(c *gin.Context) {
	category := c.Query("category")

	entries, err := h.galleryService.List(c.Request.Context(), category)
	if err != nil {
		respondError(c, h.log, err, "Failed to fetch archive")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       entries,
		"total":      len(entries),
		"categories": models.Categories,
	})
}
