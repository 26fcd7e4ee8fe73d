// Package server exposes the embedder over a health-checked REST interface.
package server

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Embedder is the slice of the embedding handle the handlers need. The
// handle is shared, read-only and safe for concurrent requests.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

type handlers struct {
	embedder Embedder
}

// NewRouter builds the gin engine with CORS open to all origins.
func NewRouter(embedder Embedder) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	h := &handlers{embedder: embedder}
	router.GET("/health", h.health)
	router.POST("/embed", h.embed)
	router.POST("/embed/batch", h.embedBatch)
	return router
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"model":  h.embedder.Model(),
	})
}

func (h *handlers) embed(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text field"})
		return
	}

	raw, ok := body["text"]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text field"})
		return
	}
	text, ok := raw.(string)
	if !ok || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text must be a non-empty string"})
		return
	}

	vector, err := h.embedder.EmbedOne(c.Request.Context(), text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"embedding": vector,
		"dimension": len(vector),
		"model":     h.embedder.Model(),
	})
}

func (h *handlers) embedBatch(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing texts field"})
		return
	}

	raw, ok := body["texts"]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing texts field"})
		return
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "texts must be a non-empty array"})
		return
	}
	texts := make([]string, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "texts must be an array of strings"})
			return
		}
		texts[i] = s
	}

	vectors, err := h.embedder.EmbedMany(c.Request.Context(), texts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}
	c.JSON(http.StatusOK, gin.H{
		"embeddings": vectors,
		"count":      len(vectors),
		"dimension":  dimension,
		"model":      h.embedder.Model(),
	})
}
