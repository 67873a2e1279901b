package model

import "strings"

// SponsorTiers are the tiers a sponsor document may carry.
var SponsorTiers = []string{"principal", "main", "partner", "supporter", "player", "match"}

// Sponsor is the typed view of a row in the sponsors table.
type Sponsor struct {
	ID          string
	Name        string
	Website     string
	Tier        string
	Featured    bool
	LogoURL     string
	LogoDarkURL string
	SanityID    string
}

// SponsorFromRow decodes a sponsors row.
func SponsorFromRow(r Row) Sponsor {
	return Sponsor{
		ID:          r.ID(),
		Name:        strings.TrimSpace(r.String("name")),
		Website:     r.String("website"),
		Tier:        strings.ToLower(r.String("tier")),
		Featured:    ToBool(r["featured"]),
		LogoURL:     r.String("logo_url"),
		LogoDarkURL: r.String("logo_dark_url"),
		SanityID:    r.LinkedDocumentID(),
	}
}

// SponsorDocument is the typed view of a sponsor document.
type SponsorDocument struct {
	ID          string
	SupabaseID  string
	Name        string
	Website     string
	Tier        string
	Featured    *bool
	LogoURL     string
	LogoDarkURL string
}

// DecodeSponsorDocument validates a sponsor document and returns its typed view.
func DecodeSponsorDocument(doc Document) (*SponsorDocument, error) {
	s := &SponsorDocument{
		ID:          doc.ID(),
		SupabaseID:  doc.LinkedRecordID(),
		Name:        strings.TrimSpace(doc.String("name")),
		Website:     doc.String("website"),
		Tier:        strings.ToLower(doc.String("tier")),
		LogoURL:     doc.Nested("logo.asset.url"),
		LogoDarkURL: doc.Nested("logoDark.asset.url"),
	}

	if s.ID == "" {
		return nil, &ValidationError{Kind: KindSponsor, Field: "_id", Message: "document id is required"}
	}
	if s.Name == "" {
		return nil, &ValidationError{Kind: KindSponsor, Field: "name", Message: "name is required"}
	}
	if s.Tier != "" && !contains(SponsorTiers, s.Tier) {
		return nil, &ValidationError{Kind: KindSponsor, Field: "tier", Message: "unknown tier " + s.Tier}
	}
	if v, present := doc["featured"]; present && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, &ValidationError{Kind: KindSponsor, Field: "featured", Message: "must be a boolean"}
		}
		s.Featured = &b
	}

	return s, nil
}
