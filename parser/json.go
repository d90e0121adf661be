package parser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Nachrichtentypen der JSON-Artikel-Zustellung.
const (
	MessageTypeArticle      = "Article"
	MessageTypeArticleBatch = "ArticleBatch"
)

// ArticleMessage ist der Umschlag einer JSON-Artikel-Zustellung. Je nach
// MessageType ist entweder Article (Einzelartikel) oder Articles (Batch)
// befüllt.
type ArticleMessage struct {
	JournalKey      string        `json:"journalKey"`
	OAIURL          string        `json:"oaiUrl"`
	MessageType     string        `json:"messageType"`
	ArticlesInBatch int           `json:"articlesInBatch"`
	Article         *ArticleData  `json:"article,omitempty"`
	Articles        []ArticleData `json:"articles,omitempty"`
}

// ArticleData ist ein Artikel im JSON-Zustellformat. Die Feldnamen folgen
// dem Dublin-Core-Schema der XML-Quelle, hier aber als Einzelwerte.
type ArticleData struct {
	JournalKey  string   `json:"journal_key"`
	Title       string   `json:"title"`
	Creator     string   `json:"creator"`
	Subjects    []string `json:"subjects"`
	Description string   `json:"description"`
	Publisher   string   `json:"publisher"`
	Date        string   `json:"date"`
	Types       []string `json:"types"`
	Identifier  string   `json:"identifier"`
	Sources     []string `json:"sources"`
	Language    string   `json:"language"`
	Relation    string   `json:"relation"`
	Datestamp   string   `json:"datestamp"`
	SetSpec     string   `json:"setSpec"`
}

// ParseArticleMessage entpackt einen JSON-Umschlag und prüft den
// Nachrichtentyp.
func ParseArticleMessage(data []byte) (*ArticleMessage, error) {
	var msg ArticleMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("article message: %w", err)
	}
	switch msg.MessageType {
	case MessageTypeArticle, MessageTypeArticleBatch:
	default:
		return nil, fmt.Errorf("article message: unknown messageType %q", msg.MessageType)
	}
	return &msg, nil
}

// SplitCreators zerlegt das freie Creator-Feld an "," und ";" in einzelne
// Autorennamen. Leere Segmente werden verworfen. Die Trennung an "," ist
// historisch und zerlegt "Nachname, Vorname" fälschlich in zwei Namen;
// Quellen, die das Format kontrollieren, liefern "Vorname Nachname".
func SplitCreators(creator string) []string {
	var names []string
	for _, part := range strings.FieldsFunc(creator, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		if n := strings.TrimSpace(part); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Records gibt die enthaltenen Artikel unabhängig vom Nachrichtentyp als
// Liste zurück.
func (m *ArticleMessage) Records() []ArticleData {
	if m.MessageType == MessageTypeArticle {
		if m.Article == nil {
			return nil
		}
		return []ArticleData{*m.Article}
	}
	return m.Articles
}
