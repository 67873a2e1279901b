package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format shared by both stores.
const DateLayout = "2006-01-02"

// MatchStatuses are the lifecycle states of a fixture.
var MatchStatuses = []string{"scheduled", "live", "completed", "postponed", "cancelled"}

// Match is the typed view of a row in the match table.
type Match struct {
	ID              string
	MatchDate       string
	MatchTime       string
	Venue           string
	Status          string
	HomeScore       *int64
	AwayScore       *int64
	TicketLink      string
	MatchReportLink string
	HomeTeamID      string
	AwayTeamID      string
	CompetitionID   string
	SanityID        string
}

// MatchFromRow decodes a match row.
func MatchFromRow(r Row) Match {
	return Match{
		ID:              r.ID(),
		MatchDate:       r.String("match_date"),
		MatchTime:       r.String("match_time"),
		Venue:           r.String("venue"),
		Status:          strings.ToLower(r.String("status")),
		HomeScore:       OptionalInt64(r["home_score"]),
		AwayScore:       OptionalInt64(r["away_score"]),
		TicketLink:      r.String("ticket_link"),
		MatchReportLink: r.String("match_report_link"),
		HomeTeamID:      r.String("home_team_id"),
		AwayTeamID:      r.String("away_team_id"),
		CompetitionID:   r.String("competition_id"),
		SanityID:        r.LinkedDocumentID(),
	}
}

// MatchDocument is the typed view of a match document.
type MatchDocument struct {
	ID             string
	SupabaseID     string
	Date           string
	Time           string
	Venue          string
	Status         string
	HomeScore      *int64
	AwayScore      *int64
	TicketLink     string
	MatchReportURL string
	HomeTeamID     string
	AwayTeamID     string
	CompetitionID  string
	HomeTeamRef    string
	AwayTeamRef    string
	CompetitionRef string
}

// DecodeMatchDocument validates a match document and returns its typed view.
func DecodeMatchDocument(doc Document) (*MatchDocument, error) {
	m := &MatchDocument{
		ID:             doc.ID(),
		SupabaseID:     doc.LinkedRecordID(),
		Date:           doc.String("date"),
		Time:           doc.String("time"),
		Venue:          doc.String("venue"),
		Status:         strings.ToLower(doc.String("status")),
		HomeScore:      OptionalInt64(doc["homeScore"]),
		AwayScore:      OptionalInt64(doc["awayScore"]),
		TicketLink:     doc.String("ticketLink"),
		MatchReportURL: doc.Nested("matchReport.asset.url"),
		HomeTeamID:     doc.String("homeTeamId"),
		AwayTeamID:     doc.String("awayTeamId"),
		CompetitionID:  doc.String("competitionId"),
		HomeTeamRef:    doc.Nested("homeTeam._ref"),
		AwayTeamRef:    doc.Nested("awayTeam._ref"),
		CompetitionRef: doc.Nested("competition._ref"),
	}

	if m.ID == "" {
		return nil, &ValidationError{Kind: KindMatch, Field: "_id", Message: "document id is required"}
	}
	if m.Date != "" {
		if _, err := time.Parse(DateLayout, m.Date); err != nil {
			return nil, &ValidationError{Kind: KindMatch, Field: "date", Message: "must be YYYY-MM-DD"}
		}
	}
	if m.Status != "" && !contains(MatchStatuses, m.Status) {
		return nil, &ValidationError{Kind: KindMatch, Field: "status", Message: "unknown status " + m.Status}
	}
	for field, score := range map[string]*int64{"homeScore": m.HomeScore, "awayScore": m.AwayScore} {
		if v, present := doc[field]; present && v != nil && score == nil {
			return nil, &ValidationError{Kind: KindMatch, Field: field, Message: "must be a number"}
		}
	}

	return m, nil
}
