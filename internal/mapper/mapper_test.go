package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banksodee/clubsync/internal/model"
)

func TestToDocument_Person(t *testing.T) {
	row := model.Row{
		"id":              "p-1",
		"first_name":      "Jane",
		"last_name":       "Doe",
		"player_position": "FORWARD",
		"jersey_number":   int64(9),
	}

	doc, err := ToDocument(model.KindPerson, row)
	require.NoError(t, err)

	assert.Equal(t, model.DocTypePlayerProfile, doc["_type"])
	assert.Equal(t, "Jane Doe", doc["playerName"])
	assert.Equal(t, "Jane", doc["firstName"])
	assert.Equal(t, "Doe", doc["lastName"])
	assert.Equal(t, "forward", doc["position"])
	assert.Equal(t, int64(9), doc["jerseyNumber"])
	assert.Equal(t, "Scotland", doc["nationality"])
	assert.Equal(t, "p-1", doc[model.DocumentLinkField])
	assert.Equal(t, map[string]interface{}{"_type": "slug", "current": "jane-doe"}, doc["slug"])
	assert.Equal(t, []interface{}{}, doc["accolades"])
	assert.Equal(t, []interface{}{}, doc["personalFacts"])
	assert.NotContains(t, doc, "staffRole")
}

func TestPersonToDocument_StoredNameAndTrivia(t *testing.T) {
	doc, err := PersonToDocument(model.Person{
		ID:          "p-2",
		Name:        "Big Tam",
		FirstName:   "Thomas",
		LastName:    "Reid",
		Nationality: "Wales",
		DidYouKnow:  "Played in goal once",
	})
	require.NoError(t, err)

	assert.Equal(t, "Big Tam", doc["playerName"])
	assert.Equal(t, "Wales", doc["nationality"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"question": "Did you know?", "answer": "Played in goal once"},
	}, doc["personalFacts"])
	assert.NotContains(t, doc, "position")
}

func TestPersonToDocument_StaffRoles(t *testing.T) {
	tests := []struct {
		name         string
		staffRole    string
		wantPosition string
		wantRole     string
	}{
		{"manager keeps its position", "Manager", "manager", "manager"},
		{"coach keeps its position", "coach", "coach", "coach"},
		{"multi-word role", "Assistant Manager", "staff", "assistant_manager"},
		{"unknown role", "Groundskeeper", "staff", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := PersonToDocument(model.Person{ID: "s", FirstName: "A", LastName: "B", StaffRole: tt.staffRole})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPosition, doc["position"])
			assert.Equal(t, tt.wantRole, doc["staffRole"])
		})
	}
}

func TestPersonToDocument_Errors(t *testing.T) {
	_, err := PersonToDocument(model.Person{ID: "p", LastName: "Doe"})
	require.Error(t, err)
	assert.True(t, model.IsMappingError(err))
	assert.Equal(t, "person first_name is required", err.Error())

	_, err = PersonToDocument(model.Person{ID: "p", FirstName: "Jane", LastName: "Doe", PlayerPosition: "striker"})
	require.Error(t, err)
	var mErr *model.MappingError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "player_position", mErr.Field)
}

func TestToPatch_PersonLeavesEditorFields(t *testing.T) {
	row := model.Row{"id": "p-1", "first_name": "Jane", "last_name": "Doe", "player_position": "defender"}

	patch, err := ToPatch(model.KindPerson, row)
	require.NoError(t, err)

	assert.NotContains(t, patch, "_type")
	assert.NotContains(t, patch, "accolades")
	assert.NotContains(t, patch, "slug")
	assert.NotContains(t, patch, "personalFacts")
	assert.Equal(t, "defender", patch["position"])

	row["did_you_know"] = "Left-footed"
	patch, err = ToPatch(model.KindPerson, row)
	require.NoError(t, err)
	assert.Contains(t, patch, "personalFacts")
}

func TestPersonProfileToRow(t *testing.T) {
	jersey := int64(4)
	row := PersonProfileToRow(&model.PersonProfile{
		ID:           "drafts.doc-1",
		FirstName:    "Jane",
		LastName:     "Doe",
		Position:     "defender",
		JerseyNumber: &jersey,
		Bio:          []interface{}{map[string]interface{}{"_type": "block"}},
		ImageURL:     "https://cdn.example/jane.png",
	})

	assert.Equal(t, "Jane Doe", row["name"])
	assert.Equal(t, "player", row["position"])
	assert.Equal(t, "defender", row["player_position"])
	assert.Equal(t, int64(4), row["jersey_number"])
	assert.Equal(t, `[{"_type":"block"}]`, row["bio"])
	assert.Equal(t, "https://cdn.example/jane.png", row["image_url"])
	assert.NotContains(t, row, "nationality", "absent fields are left to the stored row")
	assert.Equal(t, "doc-1", row[model.RowLinkField])
}

func TestPersonProfileToRow_Staff(t *testing.T) {
	row := PersonProfileToRow(&model.PersonProfile{
		ID:         "doc-2",
		PlayerName: "Alex Ferguson",
		FirstName:  "Alex",
		LastName:   "Ferguson",
		Position:   "manager",
		StaffRole:  "manager",
	})

	assert.Equal(t, "Alex Ferguson", row["name"])
	assert.Equal(t, "staff", row["position"])
	assert.Equal(t, "manager", row["staff_role"])
	assert.NotContains(t, row, "player_position")
}

func TestSponsorMapping(t *testing.T) {
	row := model.Row{"id": "s-1", "name": "Café Nero", "website": "https://example.com", "tier": "Main", "featured": int64(1)}

	doc, err := ToDocument(model.KindSponsor, row)
	require.NoError(t, err)
	assert.Equal(t, model.DocTypeSponsor, doc["_type"])
	assert.Equal(t, "Café Nero", doc["name"])
	assert.Equal(t, "main", doc["tier"])
	assert.Equal(t, true, doc["featured"])
	assert.Equal(t, "s-1", doc[model.DocumentLinkField])
	assert.Equal(t, map[string]interface{}{"_type": "slug", "current": "cafe-nero"}, doc["slug"])

	patch, err := ToPatch(model.KindSponsor, row)
	require.NoError(t, err)
	assert.NotContains(t, patch, "slug")
	assert.NotContains(t, patch, "_type")

	_, err = ToDocument(model.KindSponsor, model.Row{"id": "s-2"})
	require.Error(t, err)
	assert.Equal(t, "Sponsor name is required", err.Error())
}

func TestSponsorDocumentToRow(t *testing.T) {
	featured := false
	row := SponsorDocumentToRow(&model.SponsorDocument{
		ID:       "drafts.sp-1",
		Name:     "Acme",
		Tier:     "partner",
		Featured: &featured,
		LogoURL:  "https://cdn.example/acme.svg",
	})

	assert.Equal(t, model.Row{
		"name":      "Acme",
		"tier":      "partner",
		"featured":  false,
		"logo_url":  "https://cdn.example/acme.svg",
		"sanity_id": "sp-1",
	}, row)
}

func TestMatchMapping(t *testing.T) {
	row := model.Row{
		"id":           "m-1",
		"match_date":   "2024-08-10",
		"venue":        "Firhill",
		"home_score":   int64(2),
		"away_score":   int64(0),
		"home_team_id": "team-1",
		"away_team_id": model.SentinelID,
	}

	doc, err := ToDocument(model.KindMatch, row)
	require.NoError(t, err)
	assert.Equal(t, "2024-08-10", doc["date"])
	assert.Equal(t, "scheduled", doc["status"])
	assert.Equal(t, int64(2), doc["homeScore"])
	assert.Equal(t, int64(0), doc["awayScore"])
	assert.Equal(t, "team-1", doc["homeTeamId"])
	assert.NotContains(t, doc, "awayTeamId")

	_, err = ToDocument(model.KindMatch, model.Row{"id": "m-2", "status": "abandoned"})
	assert.True(t, model.IsMappingError(err))
}

func TestMatchDocumentToRow_OnlyPresentFields(t *testing.T) {
	row := MatchDocumentToRow(&model.MatchDocument{ID: "drafts.m-9", Venue: "Hampden", AwayTeamID: "team-2"})

	assert.Equal(t, model.Row{
		"venue":        "Hampden",
		"away_team_id": "team-2",
		"sanity_id":    "m-9",
	}, row)
}

func TestInsertDefaults(t *testing.T) {
	today := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	row := InsertDefaults(model.KindMatch, model.Row{"venue": "Hampden", "away_team_id": "team-2"}, today)
	assert.Equal(t, "2024-03-01", row["match_date"])
	assert.Equal(t, "scheduled", row["status"])
	assert.Equal(t, model.SentinelID, row["home_team_id"])
	assert.Equal(t, "team-2", row["away_team_id"])
	assert.Equal(t, model.SentinelID, row["competition_id"])
	assert.NotContains(t, row, "home_score")

	row = InsertDefaults(model.KindMatch, model.Row{"match_date": "2024-05-05", "status": "live"}, today)
	assert.Equal(t, "2024-05-05", row["match_date"])
	assert.Equal(t, "live", row["status"])

	assert.Equal(t, "Scotland", InsertDefaults(model.KindPerson, model.Row{}, today)["nationality"])
	assert.Equal(t, "England", InsertDefaults(model.KindPerson, model.Row{"nationality": "England"}, today)["nationality"])
	assert.Equal(t, model.Row{"name": "Acme"}, InsertDefaults(model.KindSponsor, model.Row{"name": "Acme"}, today))
}

func TestUnknownKind(t *testing.T) {
	_, err := ToDocument(model.Kind(99), model.Row{})
	assert.ErrorIs(t, err, model.ErrUnknownKind)
	_, err = ToPatch(model.Kind(99), model.Row{})
	assert.ErrorIs(t, err, model.ErrUnknownKind)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Jane Doe", Label(model.KindPerson, model.Row{"id": "1", "first_name": "Jane", "last_name": "Doe"}))
	assert.Equal(t, "Acme", Label(model.KindSponsor, model.Row{"id": "2", "name": "Acme"}))
	assert.Equal(t, "match on 2024-01-01", Label(model.KindMatch, model.Row{"id": "3", "match_date": "2024-01-01"}))
	assert.Equal(t, "4", Label(model.KindSponsor, model.Row{"id": "4"}))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Jane Doe":         "jane-doe",
		"  Müller, Thomas": "muller-thomas",
		"O'Neill":          "o-neill",
		"Team #1!":         "team-1",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}
