package model

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DisclosureDraft      = "draft"
	DisclosureProcessing = "processing"
	DisclosureReview     = "review"
	DisclosureApproved   = "approved"

	DefaultDisclosureType = "发明专利"
)

// SectionKeys lists the named content sections of a disclosure in display order
var SectionKeys = []string{
	"title",
	"technicalField",
	"backgroundArt",
	"inventionContent",
	"technicalSolution",
	"beneficialEffects",
	"figureDescription",
	"implementation",
	"claimsSuggestion",
}

// Disclosure is a structured draft patent-disclosure document
type Disclosure struct {
	ID           string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EnterpriseID string           `json:"enterpriseId" gorm:"type:varchar(36);index"`
	Type         string           `json:"type" gorm:"type:varchar(100)"`
	Status       string           `json:"status" gorm:"type:varchar(50);index"`
	AuthorID     string           `json:"authorId" gorm:"type:varchar(36);index"`
	AuthorName   string           `json:"authorName" gorm:"type:varchar(200)"`
	Content      SectionMap       `json:"content" gorm:"type:text"`
	Attachments  JSONArray        `json:"attachments" gorm:"type:text"`
	QualityScore float64          `json:"qualityScore"`
	Completeness CompletenessList `json:"completeness" gorm:"type:text"`
	CreatedAt    time.Time        `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time        `json:"updatedAt" gorm:"autoUpdateTime:false;index"`
}

// Completeness is the evaluation of one configured field against a disclosure
type Completeness struct {
	FieldKey   string `json:"fieldKey"`
	FieldLabel string `json:"fieldLabel"`
	Required   bool   `json:"required"`
	Length     int    `json:"length"`
	Satisfied  bool   `json:"satisfied"`
}

// EmptySections returns a content map with every section present and empty
func EmptySections() SectionMap {
	out := make(SectionMap, len(SectionKeys))
	for _, key := range SectionKeys {
		out[key] = ""
	}
	return out
}

// Clone returns a deep copy
func (d *Disclosure) Clone() *Disclosure {
	out := *d
	out.Content = d.Content.Clone()
	out.Attachments = d.Attachments.Clone()
	if d.Completeness != nil {
		out.Completeness = append(CompletenessList(nil), d.Completeness...)
	}
	return &out
}

// Evaluate recomputes completeness and quality score from the active field configs
func (d *Disclosure) Evaluate(fields []FieldConfig) {
	d.Completeness, d.QualityScore = Evaluate(d.Content, fields)
}

// Evaluate scores content against the active field configs.
// The score is the satisfied share of active fields in percent, one decimal; 100 with no active fields.
func Evaluate(content SectionMap, fields []FieldConfig) (CompletenessList, float64) {
	list := CompletenessList{}
	satisfied := 0
	for _, f := range fields {
		if !f.IsActive {
			continue
		}
		length := utf8.RuneCountInString(strings.TrimSpace(content[f.FieldKey]))
		ok := f.Satisfies(length)
		if ok {
			satisfied++
		}
		list = append(list, Completeness{
			FieldKey:   f.FieldKey,
			FieldLabel: f.FieldLabel,
			Required:   f.IsRequired,
			Length:     length,
			Satisfied:  ok,
		})
	}
	if len(list) == 0 {
		return list, 100
	}
	score := 100 * float64(satisfied) / float64(len(list))
	return list, math.Round(score*10) / 10
}
