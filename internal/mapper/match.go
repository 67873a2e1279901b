package mapper

import "github.com/banksodee/clubsync/internal/model"

const defaultMatchStatus = "scheduled"

// MatchToDocument maps a match row to a new match document.
func MatchToDocument(m model.Match) (model.Document, error) {
	if m.Status != "" && !containsString(model.MatchStatuses, m.Status) {
		return nil, &model.MappingError{Kind: model.KindMatch, Field: "status", Message: "unknown match status " + m.Status}
	}
	status := m.Status
	if status == "" {
		status = defaultMatchStatus
	}

	doc := model.Document{
		"_type":                 model.DocTypeMatch,
		"status":                status,
		model.DocumentLinkField: m.ID,
	}
	setIfPresent(doc, "date", m.MatchDate)
	setIfPresent(doc, "time", m.MatchTime)
	setIfPresent(doc, "venue", m.Venue)
	setIfPresent(doc, "homeScore", m.HomeScore)
	setIfPresent(doc, "awayScore", m.AwayScore)
	setIfPresent(doc, "ticketLink", m.TicketLink)
	setIfPresent(doc, "homeTeamId", knownID(m.HomeTeamID))
	setIfPresent(doc, "awayTeamId", knownID(m.AwayTeamID))
	setIfPresent(doc, "competitionId", knownID(m.CompetitionID))
	return doc, nil
}

// MatchToPatch maps a match row to a patch for an existing match document.
func MatchToPatch(m model.Match) (model.Document, error) {
	doc, err := MatchToDocument(m)
	if err != nil {
		return nil, err
	}
	return toPatch(doc), nil
}

// MatchDocumentToRow maps a validated match document to match columns.
// Only fields present on the document are set; see InsertDefaults for the
// columns a new row needs.
func MatchDocumentToRow(md *model.MatchDocument) model.Row {
	row := model.Row{
		model.RowLinkField: model.NormalizeDocumentID(md.ID),
	}
	if md.Date != "" {
		row["match_date"] = md.Date
	}
	if md.Status != "" {
		row["status"] = md.Status
	}
	if md.HomeTeamID != "" {
		row["home_team_id"] = md.HomeTeamID
	}
	if md.AwayTeamID != "" {
		row["away_team_id"] = md.AwayTeamID
	}
	if md.CompetitionID != "" {
		row["competition_id"] = md.CompetitionID
	}
	if md.Time != "" {
		row["match_time"] = md.Time
	}
	if md.Venue != "" {
		row["venue"] = md.Venue
	}
	if md.HomeScore != nil {
		row["home_score"] = *md.HomeScore
	}
	if md.AwayScore != nil {
		row["away_score"] = *md.AwayScore
	}
	if md.TicketLink != "" {
		row["ticket_link"] = md.TicketLink
	}
	if md.MatchReportURL != "" {
		row["match_report_link"] = md.MatchReportURL
	}
	return row
}

// knownID hides the sentinel so it never leaks into content documents.
func knownID(id string) string {
	if id == model.SentinelID {
		return ""
	}
	return id
}
