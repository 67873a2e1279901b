// Package model defines the entity kinds synchronised between the relational
// store and the content store, their typed schemas and the sync error kinds.
package model

import "fmt"

// Kind is the closed set of entity kinds kept in sync between both stores.
type Kind int

const (
	KindPerson Kind = iota + 1
	KindSponsor
	KindMatch
)

// Kinds lists every supported kind in dispatch order.
var Kinds = []Kind{KindPerson, KindSponsor, KindMatch}

// Content document types.
const (
	DocTypePlayerProfile = "playerProfile"
	DocTypeSponsor       = "sponsor"
	DocTypeMatch         = "match"
)

// Relational tables.
const (
	TablePeople   = "people"
	TableSponsors = "sponsors"
	TableMatch    = "match"
)

// Link fields. The document carries the relational id, the row carries the document id.
const (
	DocumentLinkField = "supabaseId"
	RowLinkField      = "sanity_id"
)

// String returns the short name used on the command line and in config.
func (k Kind) String() string {
	switch k {
	case KindPerson:
		return "person"
	case KindSponsor:
		return "sponsor"
	case KindMatch:
		return "match"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DocumentType returns the content store document type for the kind.
func (k Kind) DocumentType() string {
	switch k {
	case KindPerson:
		return DocTypePlayerProfile
	case KindSponsor:
		return DocTypeSponsor
	case KindMatch:
		return DocTypeMatch
	default:
		return ""
	}
}

// Table returns the relational table for the kind.
func (k Kind) Table() string {
	switch k {
	case KindPerson:
		return TablePeople
	case KindSponsor:
		return TableSponsors
	case KindMatch:
		return TableMatch
	default:
		return ""
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k >= KindPerson && k <= KindMatch
}

// ParseKind maps a short name ("person", "sponsor", "match") to a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// ParseDocumentType maps a content document type to a Kind.
// The boolean is false for document types this module does not sync.
func ParseDocumentType(docType string) (Kind, bool) {
	switch docType {
	case DocTypePlayerProfile:
		return KindPerson, true
	case DocTypeSponsor:
		return KindSponsor, true
	case DocTypeMatch:
		return KindMatch, true
	default:
		return 0, false
	}
}
