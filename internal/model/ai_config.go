package model

import "time"

const DefaultModelID = "doubao-1-5-pro-32k-250115"

// AIModel is one model entry of an enterprise AI configuration
type AIModel struct {
	ModelID  string `json:"modelId"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
	BaseURL  string `json:"baseURL"`
	APIKey   string `json:"apiKey"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}

// AIModelView is an AI model without connection secrets
type AIModelView struct {
	ModelID  string `json:"modelId"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}

// AIConfig is the per-enterprise AI model configuration
type AIConfig struct {
	ID             string      `json:"id,omitempty" gorm:"primaryKey;type:varchar(36)"`
	EnterpriseID   string      `json:"enterpriseId" gorm:"type:varchar(36);uniqueIndex"`
	DefaultModelID string      `json:"defaultModelId" gorm:"type:varchar(200)"`
	Models         AIModelList `json:"models" gorm:"type:text"`
	Enabled        bool        `json:"enabled"`
	CreatedAt      time.Time   `json:"createdAt,omitempty" gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time   `json:"updatedAt,omitempty" gorm:"autoUpdateTime:false"`
}

// AIConfigView is the redacted representation of an AI configuration
type AIConfigView struct {
	ID             string        `json:"id,omitempty"`
	EnterpriseID   string        `json:"enterpriseId"`
	DefaultModelID string        `json:"defaultModelId"`
	Models         []AIModelView `json:"models"`
	Enabled        bool          `json:"enabled"`
}

// DefaultAIConfig is the unsaved configuration reported for enterprises without one
func DefaultAIConfig(enterpriseID string) *AIConfig {
	return &AIConfig{
		EnterpriseID:   enterpriseID,
		DefaultModelID: DefaultModelID,
		Models:         AIModelList{},
		Enabled:        true,
	}
}

// Clone returns a deep copy
func (c *AIConfig) Clone() *AIConfig {
	out := *c
	out.Models = append(AIModelList{}, c.Models...)
	return &out
}

// HasModel reports whether a model id is already configured
func (c *AIConfig) HasModel(modelID string) bool {
	for _, m := range c.Models {
		if m.ModelID == modelID {
			return true
		}
	}
	return false
}

// UsableModel returns the model AI actions should run on.
// The default model wins when usable, otherwise the enabled keyed model with the lowest priority.
func (c *AIConfig) UsableModel() (AIModel, bool) {
	if c == nil || !c.Enabled {
		return AIModel{}, false
	}
	var best AIModel
	found := false
	for _, m := range c.Models {
		if !m.Enabled || m.APIKey == "" {
			continue
		}
		if m.ModelID == c.DefaultModelID {
			return m, true
		}
		if !found || m.Priority < best.Priority {
			best, found = m, true
		}
	}
	return best, found
}

// Redacted returns the configuration without api keys or base URLs
func (c *AIConfig) Redacted() AIConfigView {
	models := make([]AIModelView, 0, len(c.Models))
	for _, m := range c.Models {
		models = append(models, AIModelView{
			ModelID:  m.ModelID,
			Provider: m.Provider,
			Name:     m.Name,
			Enabled:  m.Enabled,
			Priority: m.Priority,
		})
	}
	return AIConfigView{
		ID:             c.ID,
		EnterpriseID:   c.EnterpriseID,
		DefaultModelID: c.DefaultModelID,
		Models:         models,
		Enabled:        c.Enabled,
	}
}

// DuplicateModelID returns the first model id that appears more than once
func DuplicateModelID(models []AIModel) (string, bool) {
	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		if _, ok := seen[m.ModelID]; ok {
			return m.ModelID, true
		}
		seen[m.ModelID] = struct{}{}
	}
	return "", false
}
