package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"journal-index/models"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "queue.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Journal{}, &models.ImportQueueEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, zap.NewNop())
}

const recordListXML = `<?xml version="1.0"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <ListRecords>
    <record><header><identifier>oai:example.org:article/1</identifier></header></record>
    <record><header><identifier>oai:example.org:article/2</identifier></header></record>
    <record><header status="deleted"><identifier>oai:example.org:article/3</identifier></header></record>
  </ListRecords>
</OAI-PMH>`

const batchMessageJSON = `{
  "journalKey": "jt-2021",
  "messageType": "ArticleBatch",
  "articles": [{"title": "First"}, {"title": "Second"}]
}`

func TestCountRecords(t *testing.T) {
	tests := []struct {
		name   string
		system models.SystemType
		data   string
		want   int
	}{
		{name: "record list counts all records", system: models.SystemOJSRecordList, data: recordListXML, want: 3},
		{name: "record list unreadable", system: models.SystemOJSRecordList, data: "not xml", want: 0},
		{name: "teckiz batch", system: models.SystemTeckiz, data: batchMessageJSON, want: 2},
		{name: "teckiz unreadable", system: models.SystemTeckiz, data: "{", want: 0},
		{name: "identify counts nothing", system: models.SystemOJSIdentify, data: "<OAI-PMH/>", want: 0},
		{name: "doaj counts nothing", system: models.SystemDOAJ, data: "{}", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countRecords(tt.system, tt.data); got != tt.want {
				t.Errorf("countRecords(%q) = %d, want %d", tt.system, got, tt.want)
			}
		})
	}
}

func TestProcessNextSuccess(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Stage(ctx, "jt-2021", models.SystemOJSRecordList, models.FormatXML, recordListXML); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	processed, err := q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		entry.IndexedRecords = 2
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if !processed {
		t.Fatal("processed = false, want true")
	}

	var entry models.ImportQueueEntry
	if err := q.DB.First(&entry).Error; err != nil {
		t.Fatalf("reload entry: %v", err)
	}
	if !entry.Indexed || entry.Error {
		t.Errorf("entry state indexed=%t error=%t, want indexed=true error=false", entry.Indexed, entry.Error)
	}
	if entry.IndexedRecords != 2 {
		t.Errorf("IndexedRecords = %d, want 2", entry.IndexedRecords)
	}
	if entry.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", entry.TotalRecords)
	}

	// Queue ist leer, zweiter Aufruf darf nichts beanspruchen.
	processed, err = q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		t.Fatal("callback invoked on empty queue")
		return nil
	})
	if err != nil || processed {
		t.Errorf("second ProcessNext = (%t, %v), want (false, nil)", processed, err)
	}
}

func TestProcessNextFailureReachesTerminalState(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Stage(ctx, "jt-2021", models.SystemOJSRecordList, models.FormatXML, "payload"); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	// fn schreibt erst erfolgreich und scheitert dann. Die Teilschreibung
	// muss mit dem Savepoint verschwinden, die Fehlermarkierung trotzdem
	// committen, und der Batch-Lauf darf keinen Fehler sehen.
	processed, err := q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		if cerr := tx.Create(&models.Journal{JournalKey: "partial", Status: models.JournalStatusReceived}).Error; cerr != nil {
			return cerr
		}
		entry.IndexedRecords = 5
		return errors.New("record 42: boom")
	})
	if err != nil {
		t.Fatalf("ProcessNext returned error, want failure converted to error mark: %v", err)
	}
	if !processed {
		t.Fatal("processed = false, want true")
	}

	var entry models.ImportQueueEntry
	if err := q.DB.First(&entry).Error; err != nil {
		t.Fatalf("reload entry: %v", err)
	}
	if !entry.Error || entry.Indexed {
		t.Errorf("entry state error=%t indexed=%t, want error=true indexed=false", entry.Error, entry.Indexed)
	}
	if entry.Message != "record 42: boom" {
		t.Errorf("Message = %q", entry.Message)
	}
	if entry.IndexedRecords != 0 {
		t.Errorf("IndexedRecords = %d, want 0 after rollback", entry.IndexedRecords)
	}

	var journals int64
	if err := q.DB.Model(&models.Journal{}).Where("journal_key = ?", "partial").Count(&journals).Error; err != nil {
		t.Fatalf("count journals: %v", err)
	}
	if journals != 0 {
		t.Errorf("partial write survived: %d journals, want 0", journals)
	}

	// Der Fehler-Eintrag darf nicht erneut beansprucht werden.
	processed, err = q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		t.Fatal("failed entry was claimed again")
		return nil
	})
	if err != nil || processed {
		t.Errorf("reclaim ProcessNext = (%t, %v), want (false, nil)", processed, err)
	}
}

func TestResetErrorsReopensFailedEntries(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Stage(ctx, "jt-2021", models.SystemOJSRecordList, models.FormatXML, "payload"); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if _, err := q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}

	n, err := q.ResetErrors(ctx)
	if err != nil {
		t.Fatalf("ResetErrors: %v", err)
	}
	if n != 1 {
		t.Errorf("reset count = %d, want 1", n)
	}

	var claimed bool
	if _, err := q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		claimed = true
		if entry.Message != "" {
			t.Errorf("Message = %q, want cleared after reset", entry.Message)
		}
		return nil
	}); err != nil {
		t.Fatalf("ProcessNext after reset: %v", err)
	}
	if !claimed {
		t.Error("reset entry was not claimed again")
	}
}

func TestStats(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Stage(ctx, "jt-2021", models.SystemOJSRecordList, models.FormatXML, "payload"); err != nil {
			t.Fatalf("Stage: %v", err)
		}
	}
	if _, err := q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		return nil
	}); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if _, err := q.ProcessNext(ctx, func(tx *gorm.DB, entry *models.ImportQueueEntry) error {
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Completed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want total=3 pending=1 completed=1 failed=1", stats)
	}
}
