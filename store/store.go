package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"journal-index/models"
)

// Alle Funktionen arbeiten auf dem übergebenen Handle und laufen damit in
// der Transaktion des Aufrufers mit.

// FindJournalByKey lädt ein Journal über seinen externen Schlüssel.
func FindJournalByKey(db *gorm.DB, journalKey string) (*models.Journal, error) {
	var j models.Journal
	if err := db.Where("journal_key = ?", journalKey).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// FindOrCreateJournal lädt das Journal zum Schlüssel oder legt es als
// Platzhalter im Status "received" an. Der Unique-Index auf journal_key plus
// DoNothing-Insert und Nachlesen macht das unter parallelen Importern sicher.
func FindOrCreateJournal(db *gorm.DB, journalKey string) (*models.Journal, error) {
	j := models.Journal{
		JournalKey: journalKey,
		Status:     models.JournalStatusReceived,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "journal_key"}},
		DoNothing: true,
	}).Create(&j).Error; err != nil {
		return nil, err
	}
	return FindJournalByKey(db, journalKey)
}

// FindOrCreateVolume lädt den Band (journalID, volNumber) oder legt ihn an.
// Bei historischen Duplikaten gewinnt deterministisch die kleinste ID.
func FindOrCreateVolume(db *gorm.DB, journalID uint, volNumber string) (*models.Volume, error) {
	var v models.Volume
	err := db.Where("journal_id = ? AND vol_number = ?", journalID, volNumber).
		Order("id asc").
		First(&v).Error
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	v = models.Volume{JournalID: journalID, VolNumber: volNumber}
	if cerr := db.Create(&v).Error; cerr != nil {
		return nil, cerr
	}
	return &v, nil
}

// UpsertArticle schreibt einen Artikel über seinen record_key. Existiert die
// Zeile, werden ID und CreatedAt übernommen und die Zeile überschrieben;
// sonst wird eingefügt. Verliert der Insert das Rennen gegen einen parallelen
// Importer, wird nachgelesen und überschrieben.
func UpsertArticle(db *gorm.DB, article *models.Article) error {
	var existing models.Article
	err := db.Where("record_key = ?", article.RecordKey).First(&existing).Error
	switch {
	case err == nil:
		article.ID = existing.ID
		article.CreatedAt = existing.CreatedAt
		return db.Save(article).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		if cerr := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoNothing: true,
		}).Create(article).Error; cerr != nil {
			return cerr
		}
		if article.ID != 0 {
			return nil
		}
		if ferr := db.Where("record_key = ?", article.RecordKey).First(&existing).Error; ferr != nil {
			return ferr
		}
		article.ID = existing.ID
		article.CreatedAt = existing.CreatedAt
		return db.Save(article).Error
	default:
		return err
	}
}

// ReplaceAuthors ersetzt die Autorenliste eines Artikels vollständig.
// Leere Namen werden verworfen.
func ReplaceAuthors(db *gorm.DB, articleID uint, names []string) error {
	if err := db.Where("article_id = ?", articleID).Delete(&models.Author{}).Error; err != nil {
		return err
	}
	for _, name := range names {
		n := strings.TrimSpace(name)
		if n == "" {
			continue
		}
		author := models.Author{ArticleID: articleID, Name: n}
		if err := db.Create(&author).Error; err != nil {
			return err
		}
	}
	return nil
}
