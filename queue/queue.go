package queue

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journal-index/models"
	"journal-index/parser"
)

// Queue ist die Postgres-gestützte Staging-Queue für rohe Harvest-Payloads.
type Queue struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// New erzeugt eine Queue auf der gegebenen Datenbank.
func New(db *gorm.DB, logger *zap.Logger) *Queue {
	return &Queue{DB: db, Logger: logger}
}

// Stage legt einen neuen Eintrag an. TotalRecords wird beim Einstellen
// gezählt, damit die Statistik nicht vom späteren Import abhängt.
func (q *Queue) Stage(ctx context.Context, journalKey string, system models.SystemType, format models.Format, data string) error {
	entry := models.ImportQueueEntry{
		JournalKey:   journalKey,
		SystemType:   system,
		Format:       format,
		Data:         data,
		TotalRecords: countRecords(system, data),
	}
	return q.DB.WithContext(ctx).Create(&entry).Error
}

// countRecords zählt die Datensätze im Payload, best effort. Ein unlesbarer
// Payload zählt 0; der eigentliche Fehler fällt beim Import an.
func countRecords(system models.SystemType, data string) int {
	switch system {
	case models.SystemOJSRecordList:
		records, err := parser.ParseListRecords([]byte(data))
		if err != nil {
			return 0
		}
		return len(records)
	case models.SystemTeckiz:
		msg, err := parser.ParseArticleMessage([]byte(data))
		if err != nil {
			return 0
		}
		return len(msg.Records())
	default:
		return 0
	}
}

// ProcessNext beansprucht den ältesten offenen Eintrag exklusiv und führt fn
// darauf aus. Claim, Verarbeitung und Endzustand liegen in EINER Transaktion;
// SKIP LOCKED verhindert, dass parallele Prozessoren denselben Eintrag ziehen.
// fn bekommt das Transaktions-Handle und schreibt alle Importdaten darüber.
//
// Rückgabe false bedeutet: Queue leer, nichts verarbeitet. Ein Fehler aus fn
// markiert den Eintrag als error und zählt nicht als Prozessfehler.
func (q *Queue) ProcessNext(ctx context.Context, fn func(tx *gorm.DB, entry *models.ImportQueueEntry) error) (bool, error) {
	processed := false
	err := q.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ImportQueueEntry
		query := tx.Where("indexed = ? AND error = ?", false, false).Order("id asc")
		// Zeilensperren mit SKIP LOCKED gibt es nur auf Postgres; SQLite
		// serialisiert Schreiber ohnehin.
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		err := query.First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		processed = true

		// fn läuft in einer geschachtelten Transaktion (SAVEPOINT). Scheitert
		// in fn eine SQL-Anweisung, wird nur bis zum Savepoint zurückgerollt;
		// die äußere Transaktion bleibt intakt und die Fehlermarkierung
		// committet zusammen mit dem Claim.
		recordsBefore := entry.IndexedRecords
		perr := tx.Transaction(func(inner *gorm.DB) error {
			return fn(inner, &entry)
		})
		if perr != nil {
			entry.IndexedRecords = recordsBefore
			entry.Error = true
			entry.Message = perr.Error()
			q.Logger.Warn("queue entry failed",
				zap.Uint("id", entry.ID),
				zap.String("journalKey", entry.JournalKey),
				zap.Error(perr))
		} else {
			// fn darf eine informative Message hinterlassen, sie bleibt stehen.
			entry.Indexed = true
		}
		return tx.Save(&entry).Error
	})
	return processed, err
}

// ResetErrors setzt alle Fehler-Einträge auf "offen" zurück, damit der
// nächste Import-Lauf sie erneut versucht.
func (q *Queue) ResetErrors(ctx context.Context) (int64, error) {
	res := q.DB.WithContext(ctx).
		Model(&models.ImportQueueEntry{}).
		Where("error = ?", true).
		Updates(map[string]interface{}{"error": false, "message": ""})
	return res.RowsAffected, res.Error
}

// Stats liefert die aktuelle Queue-Statistik.
func (q *Queue) Stats(ctx context.Context) (*models.QueueStats, error) {
	var s models.QueueStats
	db := q.DB.WithContext(ctx).Model(&models.ImportQueueEntry{})

	if err := db.Session(&gorm.Session{}).Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("indexed = ? AND error = ?", false, false).Count(&s.Pending).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("indexed = ?", true).Count(&s.Completed).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("error = ?", true).Count(&s.Failed).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
