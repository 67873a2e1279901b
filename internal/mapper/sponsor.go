package mapper

import "github.com/banksodee/clubsync/internal/model"

// SponsorToDocument maps a sponsors row to a new sponsor document.
func SponsorToDocument(s model.Sponsor) (model.Document, error) {
	if s.Name == "" {
		return nil, &model.MappingError{Kind: model.KindSponsor, Field: "name", Message: "Sponsor name is required"}
	}
	if s.Tier != "" && !containsString(model.SponsorTiers, s.Tier) {
		return nil, &model.MappingError{Kind: model.KindSponsor, Field: "tier", Message: "unknown sponsor tier " + s.Tier}
	}

	doc := model.Document{
		"_type":                 model.DocTypeSponsor,
		"name":                  s.Name,
		"featured":              s.Featured,
		model.DocumentLinkField: s.ID,
		"slug":                  slugField(s.Name),
	}
	setIfPresent(doc, "website", s.Website)
	setIfPresent(doc, "tier", s.Tier)
	return doc, nil
}

// SponsorToPatch maps a sponsors row to a patch for an existing sponsor document.
func SponsorToPatch(s model.Sponsor) (model.Document, error) {
	doc, err := SponsorToDocument(s)
	if err != nil {
		return nil, err
	}
	return toPatch(doc, "slug"), nil
}

// SponsorDocumentToRow maps a validated sponsor document to sponsors columns.
func SponsorDocumentToRow(sd *model.SponsorDocument) model.Row {
	row := model.Row{
		"name":             sd.Name,
		model.RowLinkField: model.NormalizeDocumentID(sd.ID),
	}
	if sd.Website != "" {
		row["website"] = sd.Website
	}
	if sd.LogoURL != "" {
		row["logo_url"] = sd.LogoURL
	}
	if sd.LogoDarkURL != "" {
		row["logo_dark_url"] = sd.LogoDarkURL
	}
	if sd.Tier != "" {
		row["tier"] = sd.Tier
	}
	if sd.Featured != nil {
		row["featured"] = *sd.Featured
	}
	return row
}
