package services

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"journal-index/config"
	"journal-index/models"
	"journal-index/queue"
)

func newTestImporter(t *testing.T) (*Importer, *gorm.DB, *queue.Queue) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "import.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Journal{},
		&models.Volume{},
		&models.Article{},
		&models.Author{},
		&models.ImportQueueEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	q := queue.New(db, zap.NewNop())
	im := NewImporter(&config.Config{ImportBatchLimit: 10}, zap.NewNop(), q)
	return im, db, q
}

func TestImportJSONArticleDOIFromIdentifier(t *testing.T) {
	im, db, q := newTestImporter(t)
	ctx := context.Background()

	msg := `{
	  "journalKey": "jt-2021",
	  "messageType": "Article",
	  "article": {
	    "journal_key": "jt-2021",
	    "title": "On Testing",
	    "creator": "Jane Doe",
	    "identifier": "https://doi.org/10.1234/jt.2021.042",
	    "relation": ""
	  }
	}`
	if err := q.Stage(ctx, "jt-2021", models.SystemTeckiz, models.FormatJSON, msg); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	processed, failed, err := im.ProcessOne(ctx)
	if err != nil || !processed || failed {
		t.Fatalf("ProcessOne = (%t, %t, %v), want (true, false, nil)", processed, failed, err)
	}

	var article models.Article
	if err := db.First(&article).Error; err != nil {
		t.Fatalf("load article: %v", err)
	}
	if article.DOI != "10.1234/jt.2021.042" {
		t.Errorf("DOI = %q, want extracted from identifier", article.DOI)
	}
	if article.RecordKey != "https://doi.org/10.1234/jt.2021.042" {
		t.Errorf("RecordKey = %q, want identifier url", article.RecordKey)
	}
}

func TestImportJSONArticleDOIFallbackToRelation(t *testing.T) {
	im, db, q := newTestImporter(t)
	ctx := context.Background()

	msg := `{
	  "journalKey": "jt-2021",
	  "messageType": "Article",
	  "article": {
	    "journal_key": "jt-2021",
	    "title": "On Testing",
	    "creator": "Jane Doe",
	    "identifier": "https://example.org/index.php/jt/article/view/42",
	    "relation": "https://doi.org/10.1234/jt.2021.042"
	  }
	}`
	if err := q.Stage(ctx, "jt-2021", models.SystemTeckiz, models.FormatJSON, msg); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if processed, failed, err := im.ProcessOne(ctx); err != nil || !processed || failed {
		t.Fatalf("ProcessOne = (%t, %t, %v), want (true, false, nil)", processed, failed, err)
	}

	var article models.Article
	if err := db.First(&article).Error; err != nil {
		t.Fatalf("load article: %v", err)
	}
	if article.DOI != "10.1234/jt.2021.042" {
		t.Errorf("DOI = %q, want extracted from relation", article.DOI)
	}
	if article.PageURL != "https://example.org/index.php/jt/article/view/42" {
		t.Errorf("PageURL = %q", article.PageURL)
	}
}

const recordListPage = `<?xml version="1.0"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/"
         xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <ListRecords>
    <record>
      <header>
        <identifier>oai:example.org:article/42</identifier>
        <datestamp>2021-03-15</datestamp>
      </header>
      <metadata>
        <oai_dc:dc>
          <dc:title>On Testing</dc:title>
          <dc:creator>Doe, Jane</dc:creator>
          <dc:creator>Roe, Richard</dc:creator>
          <dc:date>2021-03-15</dc:date>
          <dc:identifier>https://example.org/index.php/jt/article/view/42</dc:identifier>
          <dc:source>Journal of Testing; Vol. 12 No. 3 (2021); 45-67</dc:source>
        </oai_dc:dc>
      </metadata>
    </record>
    <record>
      <header status="deleted">
        <identifier>oai:example.org:article/43</identifier>
        <datestamp>2021-03-16</datestamp>
      </header>
    </record>
  </ListRecords>
</OAI-PMH>`

func TestImportRecordListIdempotent(t *testing.T) {
	im, db, q := newTestImporter(t)
	ctx := context.Background()

	// Dieselbe Seite zweimal gestaged: der Artikel darf nur einmal
	// entstehen und die Autorenliste wird ersetzt, nicht angehängt.
	for i := 0; i < 2; i++ {
		if err := q.Stage(ctx, "jt-2021", models.SystemOJSRecordList, models.FormatXML, recordListPage); err != nil {
			t.Fatalf("Stage: %v", err)
		}
	}

	stats, err := im.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if stats.Processed != 2 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want processed=2 failed=0", stats)
	}

	var articles []models.Article
	if err := db.Where("record_key = ?", "42").Find(&articles).Error; err != nil {
		t.Fatalf("load articles: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("len(articles) = %d, want 1 per record key", len(articles))
	}
	article := articles[0]
	if article.PublisherRecordID != "42" {
		t.Errorf("PublisherRecordID = %q", article.PublisherRecordID)
	}
	if article.Pages != "45-67" {
		t.Errorf("Pages = %q", article.Pages)
	}
	if article.VolumeID == nil {
		t.Error("VolumeID = nil, want volume from source field")
	}

	var authors []models.Author
	if err := db.Where("article_id = ?", article.ID).Find(&authors).Error; err != nil {
		t.Fatalf("load authors: %v", err)
	}
	if len(authors) != 2 {
		t.Errorf("len(authors) = %d, want 2 (replaced, not appended)", len(authors))
	}

	var volumes int64
	if err := db.Model(&models.Volume{}).Count(&volumes).Error; err != nil {
		t.Fatalf("count volumes: %v", err)
	}
	if volumes != 1 {
		t.Errorf("volumes = %d, want 1", volumes)
	}

	// Der gelöschte Datensatz erzeugt keine Zeile.
	var total int64
	if err := db.Model(&models.Article{}).Count(&total).Error; err != nil {
		t.Fatalf("count articles: %v", err)
	}
	if total != 1 {
		t.Errorf("total articles = %d, want 1", total)
	}
}

func TestImportIdentifySkipsUnapprovedJournal(t *testing.T) {
	im, db, q := newTestImporter(t)
	ctx := context.Background()

	identify := `<?xml version="1.0"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <Identify>
    <repositoryName>Journal of Testing</repositoryName>
  </Identify>
</OAI-PMH>`
	if err := q.Stage(ctx, "jt-2021", models.SystemOJSIdentify, models.FormatXML, identify); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	processed, failed, err := im.ProcessOne(ctx)
	if err != nil || !processed || failed {
		t.Fatalf("ProcessOne = (%t, %t, %v), want silent skip as success", processed, failed, err)
	}

	var journal models.Journal
	if err := db.Where("journal_key = ?", "jt-2021").First(&journal).Error; err != nil {
		t.Fatalf("load journal: %v", err)
	}
	if journal.RepositoryName != "" {
		t.Errorf("RepositoryName = %q, want empty for unapproved journal", journal.RepositoryName)
	}
	if journal.IntegratedAt != nil {
		t.Error("IntegratedAt set for unapproved journal")
	}
}
