/*
Package factory provides document to Go conversion for ladders and rosters.

PURPOSE:
  Converts JSON or YAML rank-ladder and roster documents into promotion.Ladder
  and []promotion.Member. Ladders and rosters can then be maintained as files
  or pasted into the admin API without code changes.

LADDER SCHEMA (JSON):
  {
    "ranks": [
      {"name": "ADG", "capacity": 1},
      {"name": "IG", "capacity": 27},
      {"name": "AC", "capacity": 2300}
    ]
  }

LADDER SCHEMA (YAML):
  ranks:
    - name: ADG
      capacity: 1
    - name: IG
      capacity: 27

  Ranks are listed highest first. The last entry is the entry rank.

ROSTER SCHEMA:
  {
    "members": [
      {"id": "IRLA-001", "name": "A. Sharma", "dob": "15-03-1965",
       "rank": "ADG", "order_index": 1, "frozen": false}
    ]
  }

  dob is DD-MM-YYYY and is passed through unparsed; a malformed value
  becomes a per-record error at run time, not a document error.
  order_index may be omitted, in which case document order is the
  seniority order.

KEY FEATURES:
  - Format detection from file extension (.json, .yaml, .yml)
  - Ladder validation on parse (empty, duplicate rank, capacity <= 0)
  - Default ladder preset
  - Round trip back to documents for GET endpoints and exports

USAGE:
  f := factory.NewLadderFactory()

  ladder, err := f.ParseLadder(data, factory.FormatYAML)
  ladder, err := f.LoadLadderFile("ladder.yaml")

  // Preset
  ladder := factory.DefaultLadder()

SEE ALSO:
  - promotion/types.go: Ladder and Member types
  - config/config.go: ladder file location
*/
package factory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/warp/promotion-engine/promotion"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for files whose extension maps to no format.
var ErrUnknownFormat = errors.New("unknown document format")

// ErrInvalidDocument is returned when a document parses but is unusable.
var ErrInvalidDocument = errors.New("invalid document")

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// FormatFromContentType picks the format of an HTTP body. Anything that is
// not a YAML media type is read as JSON.
func FormatFromContentType(contentType string) Format {
	if strings.Contains(strings.ToLower(contentType), "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

// ContentType is the media type of a document in this format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// LadderDoc is the document representation of a rank ladder.
type LadderDoc struct {
	Ranks []RankDoc `json:"ranks" yaml:"ranks"`
}

// RankDoc is one tier of a ladder document.
type RankDoc struct {
	Name     string `json:"name" yaml:"name"`
	Capacity int    `json:"capacity" yaml:"capacity"`
}

// =============================================================================
// LADDER FACTORY
// =============================================================================

// LadderFactory converts ladder and roster documents to promotion types.
type LadderFactory struct{}

// NewLadderFactory creates a new ladder factory.
func NewLadderFactory() *LadderFactory {
	return &LadderFactory{}
}

// ParseLadder decodes and validates a ladder document.
func (f *LadderFactory) ParseLadder(data []byte, format Format) (promotion.Ladder, error) {
	var doc LadderDoc
	if err := decode(data, format, &doc); err != nil {
		return promotion.Ladder{}, fmt.Errorf("failed to parse ladder: %w", err)
	}
	return f.FromDoc(doc)
}

// LoadLadderFile reads a ladder document from disk.
func (f *LadderFactory) LoadLadderFile(path string) (promotion.Ladder, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return promotion.Ladder{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return promotion.Ladder{}, fmt.Errorf("failed to read ladder file: %w", err)
	}
	return f.ParseLadder(data, format)
}

// FromDoc converts a LadderDoc to a validated promotion.Ladder.
func (f *LadderFactory) FromDoc(doc LadderDoc) (promotion.Ladder, error) {
	tiers := make([]promotion.Tier, 0, len(doc.Ranks))
	for i, r := range doc.Ranks {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return promotion.Ladder{}, fmt.Errorf("%w: rank %d has no name", ErrInvalidDocument, i+1)
		}
		tiers = append(tiers, promotion.Tier{Rank: promotion.Rank(name), Capacity: r.Capacity})
	}

	ladder := promotion.NewLadder(tiers...)
	if err := ladder.Validate(); err != nil {
		return promotion.Ladder{}, err
	}
	return ladder, nil
}

// ToDoc converts a ladder back to its document form.
func (f *LadderFactory) ToDoc(ladder promotion.Ladder) LadderDoc {
	doc := LadderDoc{Ranks: make([]RankDoc, 0, len(ladder.Tiers))}
	for _, t := range ladder.Tiers {
		doc.Ranks = append(doc.Ranks, RankDoc{Name: string(t.Rank), Capacity: t.Capacity})
	}
	return doc
}

// MarshalLadder encodes a ladder in the given format.
func (f *LadderFactory) MarshalLadder(ladder promotion.Ladder, format Format) ([]byte, error) {
	return encode(f.ToDoc(ladder), format)
}

// =============================================================================
// PRESET LADDER
// =============================================================================

// DefaultLadder is the seven-tier force structure used when no ladder file
// or stored ladder exists.
func DefaultLadder() promotion.Ladder {
	return promotion.NewLadder(
		promotion.Tier{Rank: "ADG", Capacity: 1},
		promotion.Tier{Rank: "IG", Capacity: 27},
		promotion.Tier{Rank: "DIG", Capacity: 202},
		promotion.Tier{Rank: "Commandant", Capacity: 398},
		promotion.Tier{Rank: "2IC", Capacity: 586},
		promotion.Tier{Rank: "DC", Capacity: 935},
		promotion.Tier{Rank: "AC", Capacity: 2300},
	)
}

// =============================================================================
// CODEC HELPERS
// =============================================================================

func decode(data []byte, format Format, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func encode(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
