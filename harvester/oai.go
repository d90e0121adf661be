package harvester

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"journal-index/config"
	"journal-index/models"
	"journal-index/parser"
)

// ErrInvalidRequest kennzeichnet Harvest-Aufrufe, die vor jedem Netz- oder
// Datenbankzugriff abgelehnt werden (leerer Schlüssel, leere URL).
var ErrInvalidRequest = errors.New("invalid harvest request")

// Stager nimmt rohe Harvest-Payloads in die Staging-Queue auf.
type Stager interface {
	Stage(ctx context.Context, journalKey string, system models.SystemType, format models.Format, data string) error
}

// Archiver legt rohe Harvest-Seiten zusätzlich extern ab (optional).
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte) error
}

// Harvester holt OAI-Seiten von Journal-Endpunkten und staged sie
// unverändert. Interpretiert wird erst beim Import.
type Harvester struct {
	Config   *config.Config
	Logger   *zap.Logger
	Fetcher  Fetcher
	Stager   Stager
	Archiver Archiver // nil, wenn kein Archiv konfiguriert ist
}

// NewHarvester erzeugt einen Harvester mit dem produktiven HTTP-Fetcher.
func NewHarvester(cfg *config.Config, logger *zap.Logger, stager Stager) *Harvester {
	return &Harvester{
		Config:  cfg,
		Logger:  logger,
		Fetcher: NewHTTPFetcher(cfg),
		Stager:  stager,
	}
}

// HarvestResult fasst einen Harvest-Lauf für ein Journal zusammen.
type HarvestResult struct {
	JournalKey string       `json:"journal_key"`
	System     SourceSystem `json:"system"`
	Pages      int          `json:"pages"`
	Skipped    bool         `json:"skipped"`
}

// HarvestJournal erkennt das Quellsystem der Website und führt den
// passenden Harvest aus. Teckiz-Journale liefern ihre Artikel selbst per
// JSON an und werden hier übersprungen.
func (h *Harvester) HarvestJournal(ctx context.Context, journalKey, websiteURL string) (*HarvestResult, error) {
	if strings.TrimSpace(journalKey) == "" {
		return nil, fmt.Errorf("%w: empty journal key", ErrInvalidRequest)
	}
	system := DetectSystemType(websiteURL)
	log := h.Logger.With(zap.String("journalKey", journalKey), zap.String("system", string(system)))

	switch system {
	case SourceUnknown:
		return nil, fmt.Errorf("%w: journal %s has no website url", ErrInvalidRequest, journalKey)
	case SourceTeckiz:
		log.Info("skipping harvest, articles arrive via push")
		return &HarvestResult{JournalKey: journalKey, System: system, Skipped: true}, nil
	case SourceDOAJ:
		return h.harvestDOAJ(ctx, log, journalKey, websiteURL)
	default:
		return h.harvestOJS(ctx, log, journalKey, websiteURL)
	}
}

// harvestOJS führt Identify und die ListRecords-Paginierung gegen einen
// OJS-OAI-Endpunkt aus. Ein fehlgeschlagenes Identify bricht den Lauf ab,
// bevor irgendetwas gestaged wird.
func (h *Harvester) harvestOJS(ctx context.Context, log *zap.Logger, journalKey, websiteURL string) (*HarvestResult, error) {
	base := CleanWebsiteURL(EnsureScheme(websiteURL)) + "/oai"

	body, status, err := h.Fetcher.Get(ctx, base+"?verb=Identify")
	if err != nil {
		return nil, fmt.Errorf("identify %s: %w", journalKey, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("identify %s: unexpected status %d", journalKey, status)
	}
	h.archive(ctx, log, journalKey+"/identify.xml", body)
	if err := h.Stager.Stage(ctx, journalKey, models.SystemOJSIdentify, models.FormatXML, string(body)); err != nil {
		return nil, fmt.Errorf("stage identify %s: %w", journalKey, err)
	}
	log.Info("identify staged")

	h.checkMetadataFormats(ctx, log, base)

	result := &HarvestResult{JournalKey: journalKey, System: SourceOJS}
	pageURL := base + "?verb=ListRecords&metadataPrefix=oai_dc"
	for page := 1; page <= h.Config.HarvestMaxPages; page++ {
		body, status, err := h.Fetcher.Get(ctx, pageURL)
		if err != nil {
			// Ein Seitenabbruch ist kein Fehlschlag des Laufs; bereits
			// gestagete Seiten bleiben erhalten.
			log.Warn("page fetch failed, stopping pagination",
				zap.Int("page", page), zap.Error(err))
			break
		}
		if status != 200 {
			log.Warn("page fetch returned unexpected status, stopping pagination",
				zap.Int("page", page), zap.Int("status", status))
			break
		}

		h.archive(ctx, log, fmt.Sprintf("%s/records-%04d.xml", journalKey, page), body)
		if err := h.Stager.Stage(ctx, journalKey, models.SystemOJSRecordList, models.FormatXML, string(body)); err != nil {
			return result, fmt.Errorf("stage page %d for %s: %w", page, journalKey, err)
		}
		result.Pages = page

		token, ok := ExtractResumptionToken(string(body))
		if !ok {
			break
		}
		// Folgeanfragen tragen nur den Token, kein metadataPrefix.
		pageURL = base + "?verb=ListRecords&resumptionToken=" + url.QueryEscape(token)
	}

	log.Info("harvest finished", zap.Int("pages", result.Pages))
	return result, nil
}

// harvestDOAJ staged die DOAJ-Artikelantwort als einzelnen JSON-Eintrag.
func (h *Harvester) harvestDOAJ(ctx context.Context, log *zap.Logger, journalKey, websiteURL string) (*HarvestResult, error) {
	u := EnsureScheme(websiteURL)
	body, status, err := h.Fetcher.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("doaj fetch %s: %w", journalKey, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("doaj fetch %s: unexpected status %d", journalKey, status)
	}
	h.archive(ctx, log, journalKey+"/doaj.json", body)
	if err := h.Stager.Stage(ctx, journalKey, models.SystemDOAJ, models.FormatJSON, string(body)); err != nil {
		return nil, fmt.Errorf("stage doaj %s: %w", journalKey, err)
	}
	log.Info("doaj page staged")
	return &HarvestResult{JournalKey: journalKey, System: SourceDOAJ, Pages: 1}, nil
}

// checkMetadataFormats fragt die angebotenen Metadatenformate ab und warnt,
// wenn der Endpunkt oai_dc nicht bewirbt. Reine Diagnose; ein fehlender oder
// kaputter Formats-Endpunkt stoppt den Harvest nie.
func (h *Harvester) checkMetadataFormats(ctx context.Context, log *zap.Logger, base string) {
	body, status, err := h.Fetcher.Get(ctx, base+"?verb=ListMetadataFormats")
	if err != nil || status != 200 {
		return
	}
	formats, err := parser.ParseMetadataFormats(body)
	if err != nil {
		return
	}

	prefixes := make([]string, 0, len(formats))
	supported := false
	for _, f := range formats {
		prefixes = append(prefixes, f.MetadataPrefix)
		if f.MetadataPrefix == "oai_dc" {
			supported = true
		}
	}
	if !supported {
		log.Warn("endpoint does not advertise oai_dc", zap.Strings("formats", prefixes))
		return
	}
	log.Debug("metadata formats", zap.Strings("formats", prefixes))
}

func (h *Harvester) archive(ctx context.Context, log *zap.Logger, key string, data []byte) {
	if h.Archiver == nil {
		return
	}
	if err := h.Archiver.Archive(ctx, key, data); err != nil {
		// Das Archiv ist Komfort, nicht Teil des Harvest-Vertrags.
		log.Warn("archive failed", zap.String("key", key), zap.Error(err))
	}
}

// ExtractResumptionToken sucht den Resumption-Token per String-Scan in der
// rohen Seite. Ein fehlendes, leeres oder kaputtes Token-Element bedeutet:
// keine weitere Seite.
func ExtractResumptionToken(page string) (string, bool) {
	start := strings.Index(page, "<resumptionToken")
	if start < 0 {
		return "", false
	}
	rest := page[start:]
	open := strings.Index(rest, ">")
	if open < 0 {
		return "", false
	}
	rest = rest[open+1:]
	end := strings.Index(rest, "</resumptionToken>")
	if end < 0 {
		return "", false
	}
	token := strings.TrimSpace(rest[:end])
	if token == "" {
		return "", false
	}
	return token, true
}
