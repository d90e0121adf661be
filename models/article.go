package models

import (
	"time"
)

// Article repräsentiert einen indexierten Zeitschriftenartikel.
//
// RecordKey ist der gewählte natürliche Schlüssel: PublisherRecordID bei
// OAI-Quellen, die Seiten-URL bei JSON-Quellen, sonst ein generierter
// Surrogatschlüssel (nur bei der Anlage). Der Unique-Index macht den
// Re-Import derselben Seite idempotent.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JournalID uint  `json:"journal_id" gorm:"index;not null"`
	VolumeID  *uint `json:"volume_id,omitempty" gorm:"index"`

	RecordKey         string `json:"record_key" gorm:"uniqueIndex;not null"`
	PublisherRecordID string `json:"publisher_record_id,omitempty" gorm:"index"`

	Title        string     `json:"title"`
	AbstractText string     `json:"abstract_text,omitempty" gorm:"type:text"`
	Keywords     string     `json:"keywords,omitempty" gorm:"type:text"`
	Pages        string     `json:"pages,omitempty"`
	PageURL      string     `json:"page_url,omitempty"`
	DOI          string     `json:"doi,omitempty" gorm:"index"`
	ArticleType  string     `json:"article_type,omitempty"`
	Language     string     `json:"language,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Article) TableName() string {
	return "articles"
}

// Author gehört zu genau einem Artikel. Die Autorenliste eines Artikels wird
// bei jedem Re-Import vollständig ersetzt, nie zusammengeführt.
type Author struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ArticleID uint   `json:"article_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`

	// Von den hier abgedeckten Formaten nicht befüllt, reserviert für
	// reichhaltigere Feeds.
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Author) TableName() string {
	return "authors"
}
