package model

// FieldConfig describes one disclosure content section's label, required-ness and length constraints
type FieldConfig struct {
	ID           string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EnterpriseID string `json:"enterpriseId" gorm:"type:varchar(36);index"`
	FieldKey     string `json:"fieldKey" gorm:"type:varchar(100)"`
	FieldLabel   string `json:"fieldLabel" gorm:"type:varchar(200)"`
	IsRequired   bool   `json:"isRequired"`
	MinLength    int    `json:"minLength"`
	MaxLength    int    `json:"maxLength"`
	OrderIndex   int    `json:"orderIndex"`
	IsActive     bool   `json:"isActive"`
}

// Satisfies reports whether a section of the given rune length meets the field constraints.
// An empty optional section is satisfied; MaxLength 0 means unbounded.
func (f FieldConfig) Satisfies(length int) bool {
	if !f.IsRequired && length == 0 {
		return true
	}
	if f.IsRequired && length == 0 {
		return false
	}
	if length < f.MinLength {
		return false
	}
	return f.MaxLength == 0 || length <= f.MaxLength
}
