package models

// ConfigRequest is the body of POST /api/v1/configs
type ConfigRequest struct {
	Name     string `json:"name" binding:"required"`
	YAMLText string `json:"yaml_text" binding:"required"` // scenario document, validated on write
}

// ConfigUpdateRequest is the body of PUT /api/v1/configs/:id. Omitted fields are unchanged.
type ConfigUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	YAMLText *string `json:"yaml_text,omitempty"`
}

// RunRequest is the body of POST /api/v1/runs
type RunRequest struct {
	ConfigID int64 `json:"config_id" binding:"required"`
}

// RunListQuery binds the query of GET /api/v1/runs
type RunListQuery struct {
	Active bool `form:"active"` // only queued and running runs
}
