package models

import (
	"time"
)

// SystemType kennzeichnet die Quelle eines Staging-Eintrags. Ein geschlossener
// Typ statt freier Strings, damit neue Quellsysteme beim Dispatch nicht
// stillschweigend durchrutschen.
type SystemType string

const (
	SystemOJSIdentify   SystemType = "ojs-identify"
	SystemOJSRecordList SystemType = "ojs-record-list"
	SystemDOAJ          SystemType = "doaj"
	SystemTeckiz        SystemType = "teckiz"
)

// Format kennzeichnet das Rohdatenformat eines Staging-Eintrags.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ImportQueueEntry ist ein roher Harvest-Payload in der Staging-Queue.
//
// Lebenszyklus: angelegt vom Harvester mit indexed=false, error=false;
// genau einmal vom Import-Prozessor konsumiert; Endzustand entweder
// indexed=true (Erfolg) oder error=true mit Message (Fehler). Danach nur noch
// durch den expliziten Reset-für-Retry veränderbar.
type ImportQueueEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	JournalKey string     `json:"journal_key" gorm:"index;not null"`
	SystemType SystemType `json:"system_type" gorm:"index;not null"`
	Format     Format     `json:"format" gorm:"not null"`
	Data       string     `json:"data" gorm:"type:text"`

	Indexed bool   `json:"indexed" gorm:"index;default:false"`
	Error   bool   `json:"error" gorm:"index;default:false"`
	Message string `json:"message,omitempty" gorm:"type:text"`

	TotalRecords   int `json:"total_records"`
	IndexedRecords int `json:"indexed_records"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ImportQueueEntry) TableName() string {
	return "import_queue"
}

// QueueStats fasst den Zustand der Staging-Queue zusammen.
type QueueStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
