package model

import "strings"

// Playing positions and staff positions accepted on a player profile.
var (
	PlayingPositions = []string{"goalkeeper", "defender", "midfielder", "forward"}
	StaffPositions   = []string{"manager", "coach", "staff"}
	StaffRoles       = []string{
		"manager", "assistant_manager", "coach", "gk_coach", "physio", "fitness_coach",
		"doctor", "kit_manager", "director", "chairman", "secretary", "other",
	}
)

// Person is the typed view of a row in the people table.
type Person struct {
	ID             string
	Name           string
	FirstName      string
	LastName       string
	PlayerPosition string
	StaffRole      string
	JerseyNumber   *int64
	Nationality    string
	DidYouKnow     string
	SanityID       string
}

// PersonFromRow decodes a people row.
func PersonFromRow(r Row) Person {
	return Person{
		ID:             r.ID(),
		Name:           strings.TrimSpace(r.String("name")),
		FirstName:      strings.TrimSpace(r.String("first_name")),
		LastName:       strings.TrimSpace(r.String("last_name")),
		PlayerPosition: r.String("player_position"),
		StaffRole:      r.String("staff_role"),
		JerseyNumber:   OptionalInt64(r["jersey_number"]),
		Nationality:    r.String("nationality"),
		DidYouKnow:     strings.TrimSpace(r.String("did_you_know")),
		SanityID:       r.LinkedDocumentID(),
	}
}

// HasIdentity reports whether the person carries both name parts.
func (p Person) HasIdentity() bool {
	return p.FirstName != "" && p.LastName != ""
}

// DisplayName is the stored name, or first and last name joined.
func (p Person) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PersonProfile is the typed view of a playerProfile document.
type PersonProfile struct {
	ID           string
	SupabaseID   string
	PlayerName   string
	FirstName    string
	LastName     string
	Position     string
	StaffRole    string
	Nationality  string
	JerseyNumber *int64
	JoinedDate   string
	Bio          interface{}
	ImageURL     string
	ImageRef     string
}

// DecodePersonProfile validates a playerProfile document and returns its typed view.
func DecodePersonProfile(doc Document) (*PersonProfile, error) {
	p := &PersonProfile{
		ID:           doc.ID(),
		SupabaseID:   doc.LinkedRecordID(),
		PlayerName:   strings.TrimSpace(doc.String("playerName")),
		FirstName:    strings.TrimSpace(doc.String("firstName")),
		LastName:     strings.TrimSpace(doc.String("lastName")),
		Position:     strings.ToLower(doc.String("position")),
		StaffRole:    strings.ToLower(doc.String("staffRole")),
		Nationality:  doc.String("nationality"),
		JerseyNumber: OptionalInt64(doc["jerseyNumber"]),
		JoinedDate:   doc.String("joinedDate"),
		Bio:          doc["bio"],
		ImageURL:     doc.Nested("profileImage.asset.url"),
		ImageRef:     doc.Nested("profileImage.asset._ref"),
	}

	if p.ID == "" {
		return nil, &ValidationError{Kind: KindPerson, Field: "_id", Message: "document id is required"}
	}

	if p.FirstName == "" || p.LastName == "" {
		first, last, ok := splitName(p.PlayerName)
		if !ok {
			return nil, &ValidationError{Kind: KindPerson, Field: "firstName", Message: "firstName and lastName (or a full playerName) are required"}
		}
		if p.FirstName == "" {
			p.FirstName = first
		}
		if p.LastName == "" {
			p.LastName = last
		}
	}

	if p.Position != "" && !contains(PlayingPositions, p.Position) && !contains(StaffPositions, p.Position) {
		return nil, &ValidationError{Kind: KindPerson, Field: "position", Message: "unknown position " + p.Position}
	}
	if p.StaffRole != "" && !contains(StaffRoles, p.StaffRole) {
		return nil, &ValidationError{Kind: KindPerson, Field: "staffRole", Message: "unknown staff role " + p.StaffRole}
	}
	if v, present := doc["jerseyNumber"]; present && v != nil && p.JerseyNumber == nil {
		return nil, &ValidationError{Kind: KindPerson, Field: "jerseyNumber", Message: "must be a number"}
	}

	return p, nil
}

// IsPlayer reports whether the profile's position is a playing position.
func (p *PersonProfile) IsPlayer() bool {
	return contains(PlayingPositions, p.Position)
}

func splitName(full string) (string, string, bool) {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], " "), true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
