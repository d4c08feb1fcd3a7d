package factory

import (
	"fmt"
	"os"
	"strings"

	"github.com/warp/promotion-engine/promotion"
)

// RosterDoc is the document representation of a roster.
type RosterDoc struct {
	Members []MemberDoc `json:"members" yaml:"members"`
}

// MemberDoc is one roster entry. DOB stays a string so the engine can
// report bad values per record.
type MemberDoc struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	DOB        string `json:"dob" yaml:"dob"`
	Rank       string `json:"rank" yaml:"rank"`
	OrderIndex int    `json:"order_index,omitempty" yaml:"order_index,omitempty"`
	Frozen     bool   `json:"frozen,omitempty" yaml:"frozen,omitempty"`
}

// ParseRoster decodes a roster document.
func (f *LadderFactory) ParseRoster(data []byte, format Format) ([]promotion.Member, error) {
	var doc RosterDoc
	if err := decode(data, format, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return f.RosterFromDoc(doc)
}

// LoadRosterFile reads a roster document from disk.
func (f *LadderFactory) LoadRosterFile(path string) ([]promotion.Member, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return f.ParseRoster(data, format)
}

// RosterFromDoc converts a RosterDoc. An entry without order_index takes its
// 1-based position in the document.
func (f *LadderFactory) RosterFromDoc(doc RosterDoc) ([]promotion.Member, error) {
	members := make([]promotion.Member, 0, len(doc.Members))
	for i, md := range doc.Members {
		m, err := MemberFromDoc(md)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if m.OrderIndex == 0 {
			m.OrderIndex = i + 1
		}
		members = append(members, m)
	}
	return members, nil
}

// MemberFromDoc converts a single entry. Only id and rank are required here;
// rank membership in the ladder is checked by the engine.
func MemberFromDoc(md MemberDoc) (promotion.Member, error) {
	id := strings.TrimSpace(md.ID)
	if id == "" {
		return promotion.Member{}, fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	rank := strings.TrimSpace(md.Rank)
	if rank == "" {
		return promotion.Member{}, fmt.Errorf("%w: member %s has no rank", ErrInvalidDocument, id)
	}
	if md.OrderIndex < 0 {
		return promotion.Member{}, fmt.Errorf("%w: member %s has negative order_index", ErrInvalidDocument, id)
	}
	return promotion.Member{
		ID:          promotion.MemberID(id),
		Name:        strings.TrimSpace(md.Name),
		DateOfBirth: strings.TrimSpace(md.DOB),
		Rank:        promotion.Rank(rank),
		OrderIndex:  md.OrderIndex,
		Frozen:      md.Frozen,
	}, nil
}

// MemberToDoc is the inverse of MemberFromDoc.
func MemberToDoc(m promotion.Member) MemberDoc {
	return MemberDoc{
		ID:         string(m.ID),
		Name:       m.Name,
		DOB:        m.DateOfBirth,
		Rank:       string(m.Rank),
		OrderIndex: m.OrderIndex,
		Frozen:     m.Frozen,
	}
}

// MarshalRoster encodes members in the given format.
func (f *LadderFactory) MarshalRoster(members []promotion.Member, format Format) ([]byte, error) {
	doc := RosterDoc{Members: make([]MemberDoc, 0, len(members))}
	for _, m := range members {
		doc.Members = append(doc.Members, MemberToDoc(m))
	}
	return encode(doc, format)
}
