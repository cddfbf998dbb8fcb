// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Names of the fields promoted to the top level of a Record.
const (
	FieldType       = "type"
	FieldVerb       = "verb"
	FieldKey        = "key"
	FieldEventTime  = "event_time"
	FieldCustomerID = "customer_id"

	// FieldTotalAmount is the ORDER detail carrying the order total.
	FieldTotalAmount = "total_amount"
)

// IsKnownField reports whether name is promoted to the top level on normalization.
func IsKnownField(name string) bool {
	switch name {
	case FieldType, FieldVerb, FieldKey, FieldEventTime, FieldCustomerID:
		return true
	}
	return false
}

// Event is a raw customer lifecycle event as decoded from the input batch.
// Numeric values are json.Number so their literal text survives.
type Event map[string]any

// EventType discriminates records. The set is open: unknown values are carried
// through untouched and ignored by aggregation.
type EventType string

// Event types that drive aggregation.
const (
	TypeCustomer  EventType = "CUSTOMER"
	TypeOrder     EventType = "ORDER"
	TypeSiteVisit EventType = "SITE_VISIT"
)

// Known reports whether t is one of the types aggregation understands.
func (t EventType) Known() bool {
	switch t {
	case TypeCustomer, TypeOrder, TypeSiteVisit:
		return true
	}
	return false
}

// Field is an optional top-level record value. Raw holds the decoded value as
// is; Value holds its text when Raw is a string or number.
type Field struct {
	Value string
	Raw   any
	Set   bool
}

// Present returns a set Field holding v.
func Present(v string) Field { return Field{Value: v, Raw: v, Set: true} }

// PresentRaw returns a set Field holding any decoded JSON value.
func PresentRaw(v any) Field {
	text, _ := ScalarText(v)
	return Field{Value: text, Raw: v, Set: true}
}

// Text returns the textual value. It reports false when the field is unset or
// holds null, a boolean, an object or an array.
func (f Field) Text() (string, bool) {
	if !f.Set {
		return "", false
	}
	return ScalarText(f.Raw)
}

// Require returns the text of f, which is the record's field name. Unset and
// null fields fail with missing; other non-text values with ErrInvalidField.
func (r Record) Require(name string, f Field, missing error) (string, error) {
	if !f.Set || f.Raw == nil {
		return "", NewRecordError(r, name, missing, nil)
	}
	text, ok := f.Text()
	if !ok {
		return "", NewRecordError(r, name, ErrInvalidField, nil)
	}
	return text, nil
}

func (f Field) ptr() *any {
	if !f.Set {
		return nil
	}
	v := f.Raw
	return &v
}

// Record is the normalized form of an Event.
type Record struct {
	Seq        int // position of the source event in the batch
	Type       EventType
	Verb       Field
	Key        Field
	EventTime  Field
	CustomerID Field
	Details    map[string]any
}

// Flatten turns the record back into an event: known fields at the top level and
// details merged beside them. Normalizing the result yields an equal record.
func (r Record) Flatten() Event {
	ev := make(Event, len(r.Details)+5)
	for k, v := range r.Details {
		ev[k] = v
	}
	ev[FieldType] = string(r.Type)
	for name, f := range map[string]Field{
		FieldVerb:       r.Verb,
		FieldKey:        r.Key,
		FieldEventTime:  r.EventTime,
		FieldCustomerID: r.CustomerID,
	} {
		if f.Set {
			ev[name] = f.Raw
		}
	}
	return ev
}

type recordView struct {
	Type       string         `json:"type" yaml:"type"`
	Verb       *any           `json:"verb,omitempty" yaml:"verb,omitempty"`
	Key        *any           `json:"key,omitempty" yaml:"key,omitempty"`
	EventTime  *any           `json:"event_time,omitempty" yaml:"event_time,omitempty"`
	CustomerID *any           `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	Details    map[string]any `json:"details" yaml:"details"`
}

func (r Record) view() recordView {
	details := r.Details
	if details == nil {
		details = map[string]any{}
	}
	return recordView{
		Type:       string(r.Type),
		Verb:       r.Verb.ptr(),
		Key:        r.Key.ptr(),
		EventTime:  r.EventTime.ptr(),
		CustomerID: r.CustomerID.ptr(),
		Details:    details,
	}
}

// MarshalJSON encodes the record with unset fields omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

// MarshalYAML gives YAML encoders the same shape as MarshalJSON.
func (r Record) MarshalYAML() (any, error) {
	return r.view(), nil
}

// Score is an LTV value. It encodes with at least one fractional digit
// (1125 -> 1125.0) so consumers always see a float.
type Score float64

// MarshalJSON implements json.Marshaler.
func (s Score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("ltv %v is not a finite number", f)
	}
	b := strconv.AppendFloat(nil, f, 'f', -1, 64)
	if !bytes.ContainsRune(b, '.') {
		b = append(b, ".0"...)
	}
	return b, nil
}

// LTVEntry is one row of the ranking output.
type LTVEntry struct {
	CustomerID string `json:"customer_id" yaml:"customer_id"`
	LTV        Score  `json:"ltv" yaml:"ltv"`
}

// ScalarText returns the textual form of a JSON scalar. Strings are returned as is,
// numbers by their literal. Other values report false.
func ScalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}
