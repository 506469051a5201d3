package handlers

import (
	"net/http"

	"community-load/internal/api/models"
	"community-load/internal/config"
	"community-load/internal/store"

	"github.com/gin-gonic/gin"
)

// ConfigHandler serves the stored scenario configs
type ConfigHandler struct {
	store store.Store
}

func NewConfigHandler(s store.Store) *ConfigHandler {
	return &ConfigHandler{store: s}
}

// ListConfigs handles GET /api/v1/configs
func (h *ConfigHandler) ListConfigs(c *gin.Context) {
	configs, err := h.store.ListConfigs(c.Request.Context())
	if err != nil {
		respondStoreError(c, err, "configs")
		return
	}
	if configs == nil {
		configs = []*store.Config{}
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs, "count": len(configs)})
}

// CreateConfig handles POST /api/v1/configs
func (h *ConfigHandler) CreateConfig(c *gin.Context) {
	var req models.ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !validYAML(c, req.YAMLText) {
		return
	}
	cfg, err := h.store.CreateConfig(c.Request.Context(), req.Name, req.YAMLText)
	if err != nil {
		respondStoreError(c, err, "config")
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// GetConfig handles GET /api/v1/configs/:id
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	cfg, err := h.store.GetConfig(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, err, "config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateConfig handles PUT /api/v1/configs/:id
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	var req models.ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Name != nil && *req.Name == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name must not be empty")
		return
	}
	if req.YAMLText != nil && !validYAML(c, *req.YAMLText) {
		return
	}
	cfg, err := h.store.UpdateConfig(c.Request.Context(), id, store.ConfigUpdate{Name: req.Name, YAMLText: req.YAMLText})
	if err != nil {
		respondStoreError(c, err, "config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// validYAML writes a 400 and returns false when text is not a valid scenario.
func validYAML(c *gin.Context, text string) bool {
	if _, err := config.Parse([]byte(text)); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
		return false
	}
	return true
}
