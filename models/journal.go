package models

import (
	"time"
)

// Mögliche Journal-Status im Freigabe-Workflow.
const (
	JournalStatusReceived  = "received"
	JournalStatusPending   = "pending"
	JournalStatusApproved  = "approved"
	JournalStatusSuspended = "suspended"
)

// Journal repräsentiert eine indexierte Zeitschrift. Der JournalKey ist der
// stabile externe Schlüssel und wird nach der Anlage nie verändert.
type Journal struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JournalKey string `json:"journal_key" gorm:"uniqueIndex;not null"`
	Name       string `json:"name,omitempty"`
	Website    string `json:"website,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
	Status     string `json:"status" gorm:"index;default:'received'"`
	Country    string `json:"country,omitempty"`

	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	EISSN         string `json:"eissn,omitempty"`
	Keywords      string `json:"keywords,omitempty" gorm:"type:text"`

	// Steuert, ob Artikel dieser Zeitschrift importiert werden dürfen.
	ArticleIndex bool `json:"article_index" gorm:"default:false"`

	// OAI-Repository-Daten aus der Identify-Antwort.
	RepositoryName   string     `json:"repository_name,omitempty"`
	OAIScheme        string     `json:"oai_scheme,omitempty"`
	RepositoryScheme string     `json:"repository_scheme,omitempty"`
	Delimiter        string     `json:"delimiter,omitempty"`
	SampleIdentifier string     `json:"sample_identifier,omitempty"`
	IntegratedAt     *time.Time `json:"integrated_at,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Journal) TableName() string {
	return "journals"
}
