package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"miinplanner-backend/pkg/ai"

	"github.com/gin-gonic/gin"
)

// AISettings holds the AI settings that can change while the server runs.
// The generator reads the Ollama endpoint through its getters on every call.
type AISettings struct {
	mu            sync.RWMutex
	provider      string
	ollamaBaseURL string
	ollamaModel   string
	client        *http.Client
}

func NewAISettings(provider, ollamaBaseURL, ollamaModel string) *AISettings {
	return &AISettings{
		provider:      provider,
		ollamaBaseURL: ollamaBaseURL,
		ollamaModel:   ollamaModel,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *AISettings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaBaseURL
}

func (s *AISettings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaModel
}

// DynamicConfig builds a generator config wired to these settings
func (s *AISettings) DynamicConfig(geminiAPIKey, geminiModel string) ai.DynamicConfig {
	return ai.DynamicConfig{
		Provider:         ai.ProviderType(s.provider),
		GeminiAPIKey:     geminiAPIKey,
		GeminiModel:      geminiModel,
		GetOllamaBaseURL: s.OllamaBaseURL,
		GetOllamaModel:   s.OllamaModel,
	}
}

type updateAISettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required,url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

func (s *AISettings) snapshot() gin.H {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gin.H{
		"provider":        s.provider,
		"ollama_base_url": s.ollamaBaseURL,
		"ollama_model":    s.ollamaModel,
	}
}

// Get returns the current AI configuration
// GET /api/settings/ai
func (s *AISettings) Get(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

// Update changes the Ollama endpoint at runtime
// PUT /api/settings/ai
func (s *AISettings) Update(c *gin.Context) {
	var req updateAISettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.ollamaBaseURL = strings.TrimRight(req.OllamaBaseURL, "/")
	if req.OllamaModel != "" {
		s.ollamaModel = req.OllamaModel
	}
	s.mu.Unlock()

	resp := s.snapshot()
	resp["message"] = "AI settings updated successfully"
	c.JSON(http.StatusOK, resp)
}

// TestConnection checks that the Ollama server answers
// POST /api/settings/ai/test
func (s *AISettings) TestConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = s.OllamaBaseURL()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(req.OllamaBaseURL, "/")+"/api/tags", nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": err.Error()})
		return
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "status_code": resp.StatusCode})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "ollama_base_url": req.OllamaBaseURL})
}
