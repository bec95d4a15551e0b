package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// IDField is the field every document carries its id in.
const IDField = "id"

// Document is a record as stored by a backend: a JSON object decoded with
// json.Number so integers survive the round trip.
type Document map[string]any

// Where is a conjunction of field = value predicates. An empty Where
// matches every document.
type Where map[string]any

// Patch maps fields to their new values.
type Patch map[string]any

// ByID selects the document with the given id.
func ByID(id uint64) Where {
	return Where{IDField: id}
}

// PatchOf converts a patch struct into a Patch. Only fields that survive
// JSON encoding (non-nil pointers with omitempty) are included.
func PatchOf(v any) (Patch, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return Patch(doc), nil
}

// EncodeDocument renders doc as stored bytes.
func EncodeDocument(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeDocument parses stored bytes.
func DecodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// ToDocument converts a record struct into a document.
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return DecodeDocument(raw)
}

// FromDocument fills out from doc.
func FromDocument(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// DocumentID returns the id stored in doc.
func DocumentID(doc Document) (uint64, bool) {
	var id uint64
	raw, err := json.Marshal(doc[IDField])
	if err != nil {
		return 0, false
	}
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, false
	}
	return id, true
}

// Matches reports whether doc satisfies every predicate of w. Values are
// compared by their JSON encoding, so 3, uint64(3) and json.Number("3")
// are equal.
func (w Where) Matches(doc Document) bool {
	for field, want := range w {
		got, ok := doc[field]
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

// Apply returns a copy of doc with the patch applied. The id is never
// patched.
func (p Patch) Apply(doc Document) (Document, error) {
	out := make(Document, len(doc)+len(p))
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range p {
		if k == IDField {
			continue
		}
		norm, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = norm
	}
	return out, nil
}

// CheckUnique fails with ErrConflict when candidate repeats a unique field
// value of any document in existing other than the one with skipID.
func CheckUnique(schema TableSchema, existing []Document, candidate Document, skipID uint64) error {
	for _, field := range schema.Unique {
		value, ok := candidate[field]
		if !ok || value == nil {
			continue
		}
		for _, doc := range existing {
			if id, _ := DocumentID(doc); id == skipID && skipID != 0 {
				continue
			}
			if other, ok := doc[field]; ok && sameValue(other, value) {
				return conflictError(schema.Name, field, value)
			}
		}
	}
	return nil
}

func sameValue(a, b any) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrepareInsert returns doc stamped with id after checking it against the
// unique fields of the existing documents.
func PrepareInsert(schema TableSchema, existing []Document, doc Document, id uint64) (Document, error) {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[IDField] = json.Number(strconv.FormatUint(id, 10))
	if err := CheckUnique(schema, existing, out, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// PlanUpdate computes the replacement of every document in all matching
// where and validates the unique fields over the resulting table.
func PlanUpdate(schema TableSchema, all []Document, where Where, patch Patch) ([]Document, error) {
	final := make([]Document, len(all))
	var changed []Document
	for i, doc := range all {
		final[i] = doc
		if !where.Matches(doc) {
			continue
		}
		next, err := patch.Apply(doc)
		if err != nil {
			return nil, err
		}
		final[i] = next
		changed = append(changed, next)
	}
	for _, doc := range changed {
		id, _ := DocumentID(doc)
		if err := CheckUnique(schema, final, doc, id); err != nil {
			return nil, err
		}
	}
	return changed, nil
}

// FilterDocuments keeps the documents matching where.
func FilterDocuments(all []Document, where Where) []Document {
	out := make([]Document, 0, len(all))
	for _, doc := range all {
		if where.Matches(doc) {
			out = append(out, doc)
		}
	}
	return out
}
