package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"journal-index/harvester"
	"journal-index/models"
)

// HarvestService orchestriert Harvest-Läufe über die registrierten Journale.
type HarvestService struct {
	DB        *gorm.DB
	Logger    *zap.Logger
	Harvester *harvester.Harvester
}

// NewHarvestService erzeugt einen HarvestService.
func NewHarvestService(db *gorm.DB, logger *zap.Logger, h *harvester.Harvester) *HarvestService {
	return &HarvestService{DB: db, Logger: logger, Harvester: h}
}

// HarvestOne harvestet ein einzelnes Journal über seinen Schlüssel.
// websiteURL überschreibt, falls gesetzt, die hinterlegte Website.
func (s *HarvestService) HarvestOne(ctx context.Context, journalKey, websiteURL string) (*harvester.HarvestResult, error) {
	if websiteURL == "" {
		var journal models.Journal
		if err := s.DB.WithContext(ctx).Where("journal_key = ?", journalKey).First(&journal).Error; err != nil {
			return nil, fmt.Errorf("journal %s: %w", journalKey, err)
		}
		websiteURL = journal.Website
	}
	return s.Harvester.HarvestJournal(ctx, journalKey, websiteURL)
}

// HarvestAll harvestet alle freigegebenen Journale mit aktiviertem
// Artikel-Index. Ein Fehler bei einem Journal stoppt die anderen nicht.
func (s *HarvestService) HarvestAll(ctx context.Context) (int, error) {
	var journals []models.Journal
	err := s.DB.WithContext(ctx).
		Where("status = ? AND article_index = ?", models.JournalStatusApproved, true).
		Find(&journals).Error
	if err != nil {
		return 0, err
	}

	harvested := 0
	for _, journal := range journals {
		if _, herr := s.Harvester.HarvestJournal(ctx, journal.JournalKey, journal.Website); herr != nil {
			s.Logger.Error("harvest failed",
				zap.String("journalKey", journal.JournalKey),
				zap.Error(herr))
			continue
		}
		harvested++
	}
	s.Logger.Info("harvest sweep finished",
		zap.Int("journals", len(journals)),
		zap.Int("harvested", harvested))
	return harvested, nil
}
