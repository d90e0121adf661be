package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"journal-index/config"
	"journal-index/models"
	"journal-index/parser"
	"journal-index/queue"
	"journal-index/store"
)

// Importer konsumiert die Staging-Queue und überführt rohe Payloads in das
// relationale Modell Journal -> Volume -> Article -> Author.
type Importer struct {
	Config *config.Config
	Logger *zap.Logger
	Queue  *queue.Queue
}

// NewImporter erzeugt einen Importer auf der gegebenen Queue.
func NewImporter(cfg *config.Config, logger *zap.Logger, q *queue.Queue) *Importer {
	return &Importer{Config: cfg, Logger: logger, Queue: q}
}

// RunStats fasst einen Drain-Lauf zusammen.
type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ProcessPending arbeitet offene Queue-Einträge ab, bis die Queue leer ist
// oder das Batch-Limit erreicht wird. Das Limit hält einen Cron-Lauf endlich,
// auch wenn der Harvester schneller staged als der Import verarbeitet.
func (im *Importer) ProcessPending(ctx context.Context) (*RunStats, error) {
	limit := im.Config.ImportBatchLimit
	if limit <= 0 {
		limit = 100
	}

	stats := &RunStats{}
	for i := 0; i < limit; i++ {
		processed, failed, err := im.ProcessOne(ctx)
		if err != nil {
			return stats, err
		}
		if !processed {
			break
		}
		stats.Processed++
		if failed {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
	}
	im.Logger.Info("import run finished",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// ProcessOne verarbeitet genau einen Queue-Eintrag. processed=false heißt:
// Queue leer. failed=true heißt: der Eintrag wurde als Fehler markiert.
func (im *Importer) ProcessOne(ctx context.Context) (processed bool, failed bool, err error) {
	processed, err = im.Queue.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		ierr := im.importEntry(tx, entry)
		if ierr != nil {
			failed = true
		}
		return ierr
	})
	return processed, failed, err
}

// importEntry verzweigt nach Quellsystem des Eintrags.
func (im *Importer) importEntry(tx *gorm.DB, entry *models.ImportQueueEntry) error {
	switch entry.SystemType {
	case models.SystemOJSIdentify:
		return im.importIdentify(tx, entry)
	case models.SystemOJSRecordList:
		return im.importRecordList(tx, entry)
	case models.SystemTeckiz:
		return im.importTeckiz(tx, entry)
	case models.SystemDOAJ:
		return im.importDOAJ(tx, entry)
	default:
		return fmt.Errorf("unknown system type %q", entry.SystemType)
	}
}

// importIdentify übernimmt die Repository-Selbstbeschreibung in das Journal.
// Nur freigegebene Journale mit aktiviertem Artikel-Index werden integriert;
// alle anderen werden still übersprungen und der Eintrag gilt als erledigt.
func (im *Importer) importIdentify(tx *gorm.DB, entry *models.ImportQueueEntry) error {
	identify, err := parser.ParseIdentify([]byte(entry.Data))
	if err != nil {
		return err
	}

	journal, err := store.FindOrCreateJournal(tx, entry.JournalKey)
	if err != nil {
		return err
	}
	if journal.Status != models.JournalStatusApproved || !journal.ArticleIndex {
		im.Logger.Info("identify skipped, journal not approved for indexing",
			zap.String("journalKey", journal.JournalKey),
			zap.String("status", journal.Status),
			zap.Bool("articleIndex", journal.ArticleIndex))
		entry.Message = "skipped: journal not approved for indexing"
		return nil
	}

	now := time.Now()
	journal.RepositoryName = identify.RepositoryName
	journal.OAIScheme = identify.Description.OAIIdentifier.Scheme
	journal.RepositoryScheme = identify.Description.OAIIdentifier.RepositoryIdentifier
	journal.Delimiter = identify.Description.OAIIdentifier.Delimiter
	journal.SampleIdentifier = identify.Description.OAIIdentifier.SampleIdentifier
	journal.IntegratedAt = &now
	return tx.Save(journal).Error
}

// importRecordList importiert eine ListRecords-Seite. Gelöschte Datensätze
// werden übersprungen; ein unlesbares Datum bricht den Datensatz nie ab.
func (im *Importer) importRecordList(tx *gorm.DB, entry *models.ImportQueueEntry) error {
	records, err := parser.ParseListRecords([]byte(entry.Data))
	if err != nil {
		return err
	}

	journal, err := store.FindOrCreateJournal(tx, entry.JournalKey)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.Header.Deleted() {
			continue
		}
		if err := im.importOAIRecord(tx, journal, rec); err != nil {
			return fmt.Errorf("record %s: %w", rec.Header.Identifier, err)
		}
		entry.IndexedRecords++
	}
	return nil
}

// importOAIRecord überführt einen Dublin-Core-Datensatz in Article + Authors.
func (im *Importer) importOAIRecord(tx *gorm.DB, journal *models.Journal, rec parser.Record) error {
	dc := rec.Metadata.DC

	pageURL := parser.First(dc.Identifiers)
	recordKey := parser.PublisherRecordID(rec.Header.Identifier)
	if recordKey == "" {
		recordKey = pageURL
	}
	if recordKey == "" {
		recordKey = uuid.NewString()
	}

	source := parser.First(dc.Sources)
	article := &models.Article{
		JournalID:         journal.ID,
		RecordKey:         recordKey,
		PublisherRecordID: parser.PublisherRecordID(rec.Header.Identifier),
		Title:             parser.First(dc.Titles),
		AbstractText:      parser.First(dc.Descriptions),
		Keywords:          strings.Join(dc.Subjects, ", "),
		Pages:             parser.ExtractPagesFromSource(source),
		PageURL:           pageURL,
		ArticleType:       parser.First(dc.Types),
		Language:          parser.First(dc.Languages),
		PublishedAt:       parser.ParseDate(parser.First(dc.Dates)),
	}
	for _, rel := range dc.Relations {
		if doi := parser.ExtractDOI(rel); doi != "" {
			article.DOI = doi
			break
		}
	}

	if label := parser.ExtractVolumeFromSource(source); label != "" {
		volume, err := store.FindOrCreateVolume(tx, journal.ID, label)
		if err != nil {
			return err
		}
		article.VolumeID = &volume.ID
	}

	if err := store.UpsertArticle(tx, article); err != nil {
		return err
	}
	return store.ReplaceAuthors(tx, article.ID, dc.Creators)
}

// importTeckiz importiert eine JSON-Zustellung (Einzelartikel oder Batch).
func (im *Importer) importTeckiz(tx *gorm.DB, entry *models.ImportQueueEntry) error {
	msg, err := parser.ParseArticleMessage([]byte(entry.Data))
	if err != nil {
		return err
	}

	for _, rec := range msg.Records() {
		journalKey := rec.JournalKey
		if journalKey == "" {
			journalKey = entry.JournalKey
		}
		journal, err := store.FindOrCreateJournal(tx, journalKey)
		if err != nil {
			return err
		}
		if err := im.importJSONRecord(tx, journal, rec); err != nil {
			return fmt.Errorf("article %s: %w", rec.Identifier, err)
		}
		entry.IndexedRecords++
	}
	return nil
}

// importJSONRecord überführt einen JSON-Artikel in Article + Authors. Der
// record_key ist hier die Seiten-URL, da JSON-Quellen keine OAI-Identifier
// tragen.
func (im *Importer) importJSONRecord(tx *gorm.DB, journal *models.Journal, rec parser.ArticleData) error {
	recordKey := strings.TrimSpace(rec.Identifier)
	if recordKey == "" {
		recordKey = uuid.NewString()
	}

	// Der DOI steckt bei JSON-Quellen im Identifier, wenn er eine
	// doi.org-URL ist; die Relation ist nur der Fallback.
	doi := parser.ExtractDOI(rec.Identifier)
	if doi == "" {
		doi = parser.ExtractDOI(rec.Relation)
	}

	article := &models.Article{
		JournalID:    journal.ID,
		RecordKey:    recordKey,
		Title:        rec.Title,
		AbstractText: rec.Description,
		Keywords:     strings.Join(rec.Subjects, ", "),
		PageURL:      rec.Identifier,
		DOI:          doi,
		Language:     rec.Language,
		PublishedAt:  parser.ParseDate(rec.Date),
	}
	if len(rec.Types) > 0 {
		article.ArticleType = strings.TrimSpace(rec.Types[0])
	}

	for _, src := range rec.Sources {
		if article.Pages == "" {
			article.Pages = parser.ExtractPageRange(src)
		}
		if article.VolumeID == nil {
			if num := parser.ExtractVolumeNumber(src); num != "" {
				volume, err := store.FindOrCreateVolume(tx, journal.ID, num)
				if err != nil {
					return err
				}
				article.VolumeID = &volume.ID
			}
		}
	}

	if err := store.UpsertArticle(tx, article); err != nil {
		return err
	}
	return store.ReplaceAuthors(tx, article.ID, parser.SplitCreators(rec.Creator))
}

// importDOAJ ist bewusst zurückgestellt: DOAJ-Payloads werden gestaged und
// als erledigt markiert, bis das DOAJ-Antwortformat angebunden ist.
// TODO: DOAJ-Artikelformat (search API v3) auf ArticleData abbilden.
func (im *Importer) importDOAJ(tx *gorm.DB, entry *models.ImportQueueEntry) error {
	im.Logger.Info("doaj import deferred",
		zap.Uint("id", entry.ID),
		zap.String("journalKey", entry.JournalKey))
	entry.Message = "doaj import deferred"
	return nil
}
