package model

import "strings"

// SentinelID is written into required relational id columns whose source value is unknown.
// It equals uuid.Nil and is never a real row id.
const SentinelID = "00000000-0000-0000-0000-000000000000"

// DefaultNationality is assumed for people whose nationality is not recorded.
const DefaultNationality = "Scotland"

const draftPrefix = "drafts."

// Row is a relational record: column name to value.
type Row map[string]interface{}

// ID returns the row's primary key as a string.
func (r Row) ID() string { return ToString(r["id"]) }

// String returns a column as a string, "" when absent or NULL.
func (r Row) String(column string) string { return ToString(r[column]) }

// LinkedDocumentID returns the normalised content document id stored on the row.
func (r Row) LinkedDocumentID() string { return NormalizeDocumentID(r.String(RowLinkField)) }

// Document is a content store document: field name to value.
type Document map[string]interface{}

// ID returns the document _id.
func (d Document) ID() string { return ToString(d["_id"]) }

// Type returns the document _type.
func (d Document) Type() string { return ToString(d["_type"]) }

// String returns a field as a string, "" when absent.
func (d Document) String(field string) string { return ToString(d[field]) }

// LinkedRecordID returns the relational id stored on the document.
func (d Document) LinkedRecordID() string { return d.String(DocumentLinkField) }

// Nested returns the string at a dotted path such as "profileImage.asset.url".
func (d Document) Nested(path string) string {
	var cur interface{} = map[string]interface{}(d)
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]interface{}:
			cur = m[part]
		case Document:
			cur = m[part]
		default:
			return ""
		}
	}
	if cur == nil {
		return ""
	}
	if _, isMap := cur.(map[string]interface{}); isMap {
		return ""
	}
	return ToString(cur)
}

// NormalizeDocumentID strips the draft prefix so drafts and published
// documents link to the same row.
func NormalizeDocumentID(id string) string {
	return strings.TrimPrefix(id, draftPrefix)
}
