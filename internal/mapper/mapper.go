// Package mapper converts entities between the relational schema and the
// content schema. Every function is pure: it takes a snapshot and returns a
// new payload without I/O.
package mapper

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/banksodee/clubsync/internal/model"
)

// ToDocument builds the create payload for a relational row of the given kind.
func ToDocument(kind model.Kind, row model.Row) (model.Document, error) {
	switch kind {
	case model.KindPerson:
		return PersonToDocument(model.PersonFromRow(row))
	case model.KindSponsor:
		return SponsorToDocument(model.SponsorFromRow(row))
	case model.KindMatch:
		return MatchToDocument(model.MatchFromRow(row))
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}
}

// InsertDefaults fills the columns a new row of kind requires but the
// document left empty. It is applied to inserts only: an update keeps
// whatever the stored row already holds for absent fields.
func InsertDefaults(kind model.Kind, row model.Row, today time.Time) model.Row {
	switch kind {
	case model.KindPerson:
		setDefault(row, "nationality", model.DefaultNationality)
	case model.KindMatch:
		setDefault(row, "match_date", today.Format(model.DateLayout))
		setDefault(row, "status", defaultMatchStatus)
		setDefault(row, "home_team_id", model.SentinelID)
		setDefault(row, "away_team_id", model.SentinelID)
		setDefault(row, "competition_id", model.SentinelID)
	}
	return row
}

func setDefault(row model.Row, column string, value interface{}) {
	if model.ToString(row[column]) == "" {
		row[column] = value
	}
}

// ToPatch builds the patch payload for a relational row of the given kind.
func ToPatch(kind model.Kind, row model.Row) (model.Document, error) {
	switch kind {
	case model.KindPerson:
		return PersonToPatch(model.PersonFromRow(row))
	case model.KindSponsor:
		return SponsorToPatch(model.SponsorFromRow(row))
	case model.KindMatch:
		return MatchToPatch(model.MatchFromRow(row))
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}
}

// Label returns the human name of a row used in progress logs and error messages.
func Label(kind model.Kind, row model.Row) string {
	switch kind {
	case model.KindPerson:
		p := model.PersonFromRow(row)
		if name := p.DisplayName(); name != "" {
			return name
		}
	case model.KindSponsor:
		if name := model.SponsorFromRow(row).Name; name != "" {
			return name
		}
	case model.KindMatch:
		m := model.MatchFromRow(row)
		if m.MatchDate != "" {
			return "match on " + m.MatchDate
		}
	}
	return row.ID()
}

// toPatch strips the fields a patch must leave untouched.
func toPatch(doc model.Document, editorOwned ...string) model.Document {
	delete(doc, "_type")
	for _, field := range editorOwned {
		delete(doc, field)
	}
	return doc
}

// setIfPresent copies non-empty strings and non-nil values.
func setIfPresent(doc model.Document, field string, value interface{}) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	case *int64:
		if v == nil {
			return
		}
		doc[field] = *v
		return
	}
	doc[field] = value
}

// Slugify turns a display name into a URL slug. Accents are folded, so
// "Müller" becomes "muller".
func Slugify(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func slugField(name string) map[string]interface{} {
	return map[string]interface{}{"_type": "slug", "current": Slugify(name)}
}
