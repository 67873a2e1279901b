package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Operation is the change applied to a document.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// WebhookPayload is a change notification delivered by the content store.
type WebhookPayload struct {
	ID           string
	Revision     string
	DocumentType string
	Operation    Operation
	SupabaseID   string
	Fields       Document
}

// headerAliases maps each header to the spellings accepted on the wire.
var headerAliases = map[string][]string{
	"id":           {"_id", "id", "documentId"},
	"revision":     {"_rev", "revision"},
	"documentType": {"_type", "documentType"},
}

// DecodeWebhookPayload parses a raw JSON body into a WebhookPayload.
// When no explicit operation is sent, a revision implies an update and its absence a create.
func DecodeWebhookPayload(raw []byte) (*WebhookPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if fields == nil {
		return nil, errors.New("decode webhook payload: empty body")
	}

	p := &WebhookPayload{
		ID:           firstString(fields, headerAliases["id"]),
		Revision:     firstString(fields, headerAliases["revision"]),
		DocumentType: firstString(fields, headerAliases["documentType"]),
		Operation:    Operation(ToString(fields["operation"])),
		SupabaseID:   ToString(fields[DocumentLinkField]),
		Fields:       Document(fields),
	}

	// Handlers read the canonical keys regardless of the spelling received.
	p.Fields["_id"] = p.ID
	p.Fields["_type"] = p.DocumentType

	if p.ID == "" {
		return nil, errors.New("decode webhook payload: document id is required")
	}
	if p.DocumentType == "" {
		return nil, errors.New("decode webhook payload: document type is required")
	}

	switch p.Operation {
	case OperationCreate, OperationUpdate, OperationDelete:
	case "":
		if p.Revision != "" {
			p.Operation = OperationUpdate
		} else {
			p.Operation = OperationCreate
		}
	default:
		return nil, fmt.Errorf("decode webhook payload: unknown operation %q", p.Operation)
	}

	return p, nil
}

func firstString(fields map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s := ToString(fields[k]); s != "" {
			return s
		}
	}
	return ""
}
