package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCustomerName labels invoices without a usable customer reference.
const DefaultCustomerName = "General Customer"

// legacySurnames mark records migrated from the plain-name era; the marker
// must never reach a report.
var legacySurnames = map[string]struct{}{
	"(legacy data)":  {},
	"(Dato antiguo)": {},
}

// IsLegacySurname reports whether surname is a migration marker.
func IsLegacySurname(surname string) bool {
	_, ok := legacySurnames[strings.TrimSpace(surname)]
	return ok
}

// CustomerKind enumerates the shapes an embedded customer can take.
type CustomerKind uint8

const (
	CustomerAbsent CustomerKind = iota
	CustomerRecord
	CustomerPartial
	CustomerLegacyName
)

func (k CustomerKind) String() string {
	switch k {
	case CustomerRecord:
		return "record"
	case CustomerPartial:
		return "partial"
	case CustomerLegacyName:
		return "legacy_name"
	default:
		return "absent"
	}
}

// CustomerDetails is the structured form of a customer snapshot.
type CustomerDetails struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Surname string `json:"surname,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomerRef is the customer snapshot embedded in an invoice. Use the
// constructors; the zero value is an absent customer.
type CustomerRef struct {
	kind    CustomerKind
	details CustomerDetails
	legacy  string
	raw     []byte
}

// RecordCustomer builds a reference to a stored customer. Without an id it
// degrades to a partial reference.
func RecordCustomer(details CustomerDetails) CustomerRef {
	details.ID = strings.TrimSpace(details.ID)
	if details.ID == "" {
		return PartialCustomer(details.Name, details.Surname)
	}
	return CustomerRef{kind: CustomerRecord, details: details}
}

// PartialCustomer builds an unlinked name-only reference.
func PartialCustomer(name, surname string) CustomerRef {
	return CustomerRef{kind: CustomerPartial, details: CustomerDetails{Name: name, Surname: surname}}
}

// LegacyCustomer wraps a bare customer name, kept verbatim.
func LegacyCustomer(name string) CustomerRef {
	return CustomerRef{kind: CustomerLegacyName, legacy: name}
}

// NoCustomer is the absent reference.
func NoCustomer() CustomerRef {
	return CustomerRef{}
}

// Normalize maps a blank legacy name to the absent reference. Applied on
// write; stored values are reported as they are.
func (c CustomerRef) Normalize() CustomerRef {
	if c.kind == CustomerLegacyName && strings.TrimSpace(c.legacy) == "" {
		return NoCustomer()
	}
	return c
}

// Kind returns the variant tag.
func (c CustomerRef) Kind() CustomerKind { return c.kind }

// Details returns the structured snapshot for record and partial references.
func (c CustomerRef) Details() (CustomerDetails, bool) {
	if c.kind == CustomerRecord || c.kind == CustomerPartial {
		return c.details, true
	}
	return CustomerDetails{}, false
}

// DisplayName resolves a printable customer name. It never fails.
func (c CustomerRef) DisplayName() string {
	switch c.kind {
	case CustomerLegacyName:
		return c.legacy
	case CustomerRecord, CustomerPartial:
		parts := make([]string, 0, 2)
		if name := strings.TrimSpace(c.details.Name); name != "" {
			parts = append(parts, name)
		}
		if surname := strings.TrimSpace(c.details.Surname); surname != "" && !IsLegacySurname(surname) {
			parts = append(parts, surname)
		}
		if len(parts) == 0 {
			return DefaultCustomerName
		}
		return strings.Join(parts, " ")
	default:
		return DefaultCustomerName
	}
}

// Key identifies the reference for grouping. Records group by id; anything
// else groups by its stored value, independent of how the JSON was written.
func (c CustomerRef) Key() string {
	switch c.kind {
	case CustomerRecord:
		return "id:" + c.details.ID
	case CustomerLegacyName:
		return "name:" + c.legacy
	case CustomerPartial:
		payload, err := json.Marshal(c.details)
		if err != nil {
			return "raw:" + c.details.Name + "\x00" + c.details.Surname
		}
		return "raw:" + string(payload)
	default:
		if len(c.raw) > 0 {
			return "raw:" + string(c.raw)
		}
		return "none"
	}
}

// canonicalJSON re-encodes data with object keys sorted and insignificant
// whitespace removed.
func canonicalJSON(data []byte) []byte {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return out
}

// MarshalJSON encodes records as objects, legacy names as strings and absent
// references as null.
func (c CustomerRef) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CustomerRecord, CustomerPartial:
		return json.Marshal(c.details)
	case CustomerLegacyName:
		return json.Marshal(c.legacy)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON value. Unexpected shapes decode as an absent
// customer that keeps its raw bytes for grouping.
func (c *CustomerRef) UnmarshalJSON(data []byte) error {
	*c = parseCustomer(data)
	return nil
}

func parseCustomer(data []byte) CustomerRef {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return NoCustomer()
	}
	raw := canonicalJSON(append([]byte(nil), trimmed...))
	switch trimmed[0] {
	case '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return CustomerRef{raw: raw}
		}
		return LegacyCustomer(name)
	case '{':
		var doc map[string]any
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return CustomerRef{raw: raw}
		}
		details := CustomerDetails{
			ID:      firstString(doc, "id", "_id", "cliente_id"),
			Name:    firstString(doc, "name", "nombre"),
			Surname: firstString(doc, "surname", "apellido"),
			Email:   firstString(doc, "email"),
			Phone:   firstString(doc, "phone", "telefono"),
			TaxID:   firstString(doc, "tax_id", "rnc", "cedula"),
			Address: firstString(doc, "address", "direccion"),
		}
		ref := RecordCustomer(details)
		if ref.kind == CustomerPartial {
			ref.details = details
		}
		return ref
	default:
		return CustomerRef{raw: raw}
	}
}

func firstString(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := doc[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%v", v)
		case map[string]any:
			// {"$oid": "..."} exports
			if oid, ok := v["$oid"].(string); ok {
				return oid
			}
		}
	}
	return ""
}
