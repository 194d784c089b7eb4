package model

import "time"

const (
	PromptPolish  = "POLISH"
	PromptExtract = "EXTRACT"
)

// PromptConfig is a named, versioned instruction template of an enterprise
type PromptConfig struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EnterpriseID string    `json:"enterpriseId" gorm:"type:varchar(36);index"`
	Type         string    `json:"type" gorm:"type:varchar(50)"`
	Name         string    `json:"name" gorm:"type:varchar(200)"`
	Content      string    `json:"content" gorm:"type:text"`
	IsDefault    bool      `json:"isDefault"`
	IsActive     bool      `json:"isActive"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// DefaultPrompt returns the active default prompt of a type, falling back to the first active one
func DefaultPrompt(prompts []PromptConfig, promptType string) (PromptConfig, bool) {
	var fallback *PromptConfig
	for i := range prompts {
		p := &prompts[i]
		if p.Type != promptType || !p.IsActive {
			continue
		}
		if p.IsDefault {
			return *p, true
		}
		if fallback == nil {
			fallback = p
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return PromptConfig{}, false
}
