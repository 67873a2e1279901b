package mapper

import (
	"encoding/json"
	"strings"

	"github.com/banksodee/clubsync/internal/model"
)

const factQuestion = "Did you know?"

// PersonToDocument maps a people row to a new playerProfile document.
func PersonToDocument(p model.Person) (model.Document, error) {
	if p.FirstName == "" {
		return nil, &model.MappingError{Kind: model.KindPerson, Field: "first_name"}
	}
	if p.LastName == "" {
		return nil, &model.MappingError{Kind: model.KindPerson, Field: "last_name"}
	}

	position, staffRole, err := personPosition(p)
	if err != nil {
		return nil, err
	}

	name := p.DisplayName()
	nationality := p.Nationality
	if nationality == "" {
		nationality = model.DefaultNationality
	}

	doc := model.Document{
		"_type":                 model.DocTypePlayerProfile,
		"playerName":            name,
		"firstName":             p.FirstName,
		"lastName":              p.LastName,
		"nationality":           nationality,
		model.DocumentLinkField: p.ID,
		"slug":                  slugField(name),
		"accolades":             []interface{}{},
		"personalFacts":         personalFacts(p.DidYouKnow),
	}
	setIfPresent(doc, "position", position)
	setIfPresent(doc, "staffRole", staffRole)
	setIfPresent(doc, "jerseyNumber", p.JerseyNumber)
	return doc, nil
}

// PersonToPatch maps a people row to a patch for an existing playerProfile.
// Accolades and the slug belong to editors and are left alone; facts are
// only replaced when the row carries trivia.
func PersonToPatch(p model.Person) (model.Document, error) {
	doc, err := PersonToDocument(p)
	if err != nil {
		return nil, err
	}
	if p.DidYouKnow == "" {
		delete(doc, "personalFacts")
	}
	return toPatch(doc, "accolades", "slug"), nil
}

// PersonProfileToRow maps a validated playerProfile to people columns.
func PersonProfileToRow(pp *model.PersonProfile) model.Row {
	name := pp.PlayerName
	if name == "" {
		name = strings.TrimSpace(pp.FirstName + " " + pp.LastName)
	}
	row := model.Row{
		"name":             name,
		"first_name":       pp.FirstName,
		"last_name":        pp.LastName,
		model.RowLinkField: model.NormalizeDocumentID(pp.ID),
	}

	switch {
	case pp.IsPlayer():
		row["position"] = "player"
		row["player_position"] = pp.Position
	case pp.StaffRole != "" || pp.Position != "":
		row["position"] = "staff"
	}
	if pp.StaffRole != "" {
		row["staff_role"] = pp.StaffRole
	}
	if pp.Nationality != "" {
		row["nationality"] = pp.Nationality
	}
	if pp.Bio != nil {
		if encoded, err := json.Marshal(pp.Bio); err == nil {
			row["bio"] = string(encoded)
		}
	}
	if pp.ImageURL != "" {
		row["image_url"] = pp.ImageURL
	}
	if pp.JerseyNumber != nil {
		row["jersey_number"] = *pp.JerseyNumber
	}
	if pp.JoinedDate != "" {
		row["joined_date"] = pp.JoinedDate
	}
	return row
}

// personPosition derives the enumerated position and staff role of a row.
// A playing position outside the enumeration is a mapping error; staff roles
// outside theirs fold into "other".
func personPosition(p model.Person) (string, string, error) {
	var staffRole string
	if p.StaffRole != "" {
		staffRole = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(p.StaffRole)), " ", "_")
		if !containsString(model.StaffRoles, staffRole) {
			staffRole = "other"
		}
	}

	if p.PlayerPosition != "" {
		position := strings.ToLower(strings.TrimSpace(p.PlayerPosition))
		if !containsString(model.PlayingPositions, position) && !containsString(model.StaffPositions, position) {
			return "", "", &model.MappingError{
				Kind:    model.KindPerson,
				Field:   "player_position",
				Message: "unknown player position " + p.PlayerPosition,
			}
		}
		return position, staffRole, nil
	}

	switch staffRole {
	case "":
		return "", "", nil
	case "manager", "coach":
		return staffRole, staffRole, nil
	default:
		return "staff", staffRole, nil
	}
}

func personalFacts(trivia string) []interface{} {
	if trivia == "" {
		return []interface{}{}
	}
	return []interface{}{
		map[string]interface{}{"question": factQuestion, "answer": trivia},
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
