package models

import (
	"time"
)

// Volume repräsentiert einen Jahrgang/Band einer Zeitschrift.
//
// (JournalID, VolNumber) ist bewusst KEIN Unique-Constraint: leere oder
// wiederverwendete Bandnummern kommen in den Quelldaten vor. Lookups müssen
// bei Mehrfachtreffern deterministisch die Zeile mit der kleinsten ID wählen.
type Volume struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JournalID   uint       `json:"journal_id" gorm:"index;not null"`
	VolNumber   string     `json:"vol_number" gorm:"index"`
	IssueNumber string     `json:"issue_number,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Volume) TableName() string {
	return "volumes"
}
