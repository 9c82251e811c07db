package models

import "time"

// ResourceType identifies the media kind of a learning resource.
type ResourceType string

const (
	ResourceText  ResourceType = "text"
	ResourcePDF   ResourceType = "pdf"
	ResourceVideo ResourceType = "video"
	ResourceLink  ResourceType = "link"
)

// ResourceCategory groups resources by study topic.
type ResourceCategory string

const (
	CategoryGrammar    ResourceCategory = "grammar"
	CategoryVocabulary ResourceCategory = "vocabulary"
	CategoryKanji      ResourceCategory = "kanji"
	CategoryCulture    ResourceCategory = "culture"
	CategoryGeneral    ResourceCategory = "general"
)

// Resource is a learning material record. Mutated only by admins; read-only
// for students.
type Resource struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        ResourceType     `json:"type"`
	URL         string           `json:"url,omitempty"`
	Content     string           `json:"content,omitempty"`
	Category    ResourceCategory `json:"category"`
	Level       ProficiencyLevel `json:"level"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	CreatedBy   string           `json:"createdBy"`
}
