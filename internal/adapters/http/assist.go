package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Noesis/internal/assist"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const searchResults = 3

type AssistHandlers struct {
	Assistant  *assist.Assistant
	Classifier assist.Classifier
	Searcher   assist.Searcher
}

type textRequest struct {
	Message    string `json:"message"`
	Transcript string `json:"transcript"`
}

func (r textRequest) text() string {
	if s := strings.TrimSpace(r.Message); s != "" {
		return s
	}
	return strings.TrimSpace(r.Transcript)
}

// POST /api/suggest-text
func (h *AssistHandlers) suggestText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.text() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text required"})
		return
	}
	c.JSON(http.StatusOK, h.Assistant.Assist(c.Request.Context(), req.text()))
}

// POST /api/analyze-emotion
func (h *AssistHandlers) analyzeEmotion(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.text() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text required"})
		return
	}
	e, err := h.Classifier.Classify(c.Request.Context(), req.text())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("emotion analysis failed")
		c.JSON(http.StatusOK, assist.Emotion{Label: assist.UnknownEmotion, Scores: map[string]float64{}})
		return
	}
	c.JSON(http.StatusOK, e)
}

// POST /api/searchDocs
func (h *AssistHandlers) searchDocs(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	results, err := h.Searcher.Search(c.Request.Context(), req.text(), searchResults)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("search docs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search docs"})
		return
	}
	c.JSON(http.StatusOK, results)
}
