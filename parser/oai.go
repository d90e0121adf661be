package parser

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// OAIError ist die Fehlerstruktur aus einer OAI-PMH-Antwort
// (z.B. badVerb, noRecordsMatch).
type OAIError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// IdentifyResponse ist die entpackte Antwort auf den Identify-Verb.
type IdentifyResponse struct {
	XMLName  xml.Name `xml:"OAI-PMH"`
	Identify Identify `xml:"Identify"`
	Error    OAIError `xml:"error"`
}

// Identify trägt die Repository-Selbstbeschreibung eines OAI-Endpunkts.
type Identify struct {
	RepositoryName    string `xml:"repositoryName"`
	BaseURL           string `xml:"baseURL"`
	ProtocolVersion   string `xml:"protocolVersion"`
	EarliestDatestamp string `xml:"earliestDatestamp"`
	DeletedRecord     string `xml:"deletedRecord"`
	Granularity       string `xml:"granularity"`
	AdminEmail        string `xml:"adminEmail"`

	Description struct {
		OAIIdentifier struct {
			Scheme               string `xml:"scheme"`
			RepositoryIdentifier string `xml:"repositoryIdentifier"`
			Delimiter            string `xml:"delimiter"`
			SampleIdentifier     string `xml:"sampleIdentifier"`
		} `xml:"oai-identifier"`
	} `xml:"description"`
}

// MetadataFormat ist ein vom Repository unterstütztes Metadatenformat.
type MetadataFormat struct {
	MetadataPrefix    string `xml:"metadataPrefix"`
	Schema            string `xml:"schema"`
	MetadataNamespace string `xml:"metadataNamespace"`
}

// MetadataFormatsResponse ist die entpackte Antwort auf ListMetadataFormats.
type MetadataFormatsResponse struct {
	XMLName             xml.Name `xml:"OAI-PMH"`
	ListMetadataFormats struct {
		Formats []MetadataFormat `xml:"metadataFormat"`
	} `xml:"ListMetadataFormats"`
	Error OAIError `xml:"error"`
}

// ListRecordsResponse ist die entpackte Antwort auf ListRecords mit
// Dublin-Core-Metadaten.
type ListRecordsResponse struct {
	XMLName     xml.Name `xml:"OAI-PMH"`
	ListRecords struct {
		Records         []Record `xml:"record"`
		ResumptionToken string   `xml:"resumptionToken"`
	} `xml:"ListRecords"`
	Error OAIError `xml:"error"`
}

// Record ist ein einzelner OAI-Datensatz aus einer ListRecords-Seite.
type Record struct {
	Header   RecordHeader `xml:"header"`
	Metadata struct {
		DC DublinCore `xml:"dc"`
	} `xml:"metadata"`
}

// RecordHeader trägt Identifier, Datestamp und Status eines Datensatzes.
// status="deleted" markiert Löschungen im Quell-Repository.
type RecordHeader struct {
	Status     string   `xml:"status,attr"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpec    []string `xml:"setSpec"`
}

// Deleted meldet, ob der Datensatz im Repository gelöscht wurde.
func (h RecordHeader) Deleted() bool {
	return h.Status == "deleted"
}

// DublinCore sind die wiederholbaren oai_dc-Felder eines Datensatzes.
type DublinCore struct {
	Titles       []string `xml:"title"`
	Creators     []string `xml:"creator"`
	Subjects     []string `xml:"subject"`
	Descriptions []string `xml:"description"`
	Publishers   []string `xml:"publisher"`
	Dates        []string `xml:"date"`
	Types        []string `xml:"type"`
	Identifiers  []string `xml:"identifier"`
	Sources      []string `xml:"source"`
	Languages    []string `xml:"language"`
	Relations    []string `xml:"relation"`
}

// ParseIdentify entpackt eine Identify-Antwort. Eine OAI-Fehlerantwort wird
// als Fehler gemeldet, nicht als leeres Identify.
func ParseIdentify(data []byte) (*Identify, error) {
	var resp IdentifyResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("identify response: %w", err)
	}
	if resp.Error.Code != "" {
		return nil, fmt.Errorf("oai error %s: %s", resp.Error.Code, strings.TrimSpace(resp.Error.Message))
	}
	return &resp.Identify, nil
}

// ParseMetadataFormats entpackt eine ListMetadataFormats-Antwort.
func ParseMetadataFormats(data []byte) ([]MetadataFormat, error) {
	var resp MetadataFormatsResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("metadata formats response: %w", err)
	}
	if resp.Error.Code != "" {
		return nil, fmt.Errorf("oai error %s: %s", resp.Error.Code, strings.TrimSpace(resp.Error.Message))
	}
	return resp.ListMetadataFormats.Formats, nil
}

// ParseListRecords entpackt eine ListRecords-Seite. noRecordsMatch ist kein
// Fehler, sondern eine leere Seite.
func ParseListRecords(data []byte) ([]Record, error) {
	var resp ListRecordsResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("list records response: %w", err)
	}
	if resp.Error.Code != "" && resp.Error.Code != "noRecordsMatch" {
		return nil, fmt.Errorf("oai error %s: %s", resp.Error.Code, strings.TrimSpace(resp.Error.Message))
	}
	return resp.ListRecords.Records, nil
}

// PublisherRecordID leitet die quellseitige Datensatz-ID aus dem
// OAI-Identifier ab: der Teil nach dem letzten "/". Identifier ohne "/"
// werden unverändert übernommen.
func PublisherRecordID(identifier string) string {
	s := strings.TrimSpace(identifier)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// First gibt das erste Element einer DC-Wertliste zurück, getrimmt, oder "".
func First(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
