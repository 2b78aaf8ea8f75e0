package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrLegacyPayload reports an inline document copy that cannot be read.
var ErrLegacyPayload = errors.New("domain: malformed legacy document")

// DecodeLegacyDocument reads a client-held copy of a document. Older clients
// wrote snake_case keys and newer ones camelCase; both fold to the same
// field, so callers only ever see a canonical Document.
func DecodeLegacyDocument(raw []byte) (Document, error) {
	fields, err := foldObject(raw)
	if err != nil {
		return Document{}, err
	}

	var d Document
	var errs []error
	str := func(key string) string {
		s, err := asString(fields[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return s
	}
	num := func(key string) float64 {
		f, err := asNumber(fields[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return f
	}
	date := func(key string) *time.Time {
		t, err := asDate(fields[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return t
	}

	d.ID = str("id")
	if t, ok := ParseDocumentType(str("type")); ok {
		d.Type = t
	}
	d.Number = str("number")
	d.ClientID = str("clientid")
	d.TaxRate = num("taxrate")
	d.Currency = str("currency")
	d.Notes = str("notes")
	d.Status = NormalizeStatus(str("status"))
	d.IssueDate = date("issuedate")
	d.DueDate = date("duedate")
	d.ValidUntil = date("validuntil")

	if rawItems, ok := fields["lineitems"]; ok && !isNull(rawItems) {
		var items []json.RawMessage
		if err := json.Unmarshal(rawItems, &items); err != nil {
			errs = append(errs, fmt.Errorf("lineitems: %w", err))
		}
		for i, item := range items {
			li, err := decodeLegacyLineItem(item)
			if err != nil {
				errs = append(errs, fmt.Errorf("lineitems[%d]: %w", i, err))
				continue
			}
			d.LineItems = append(d.LineItems, li)
		}
	}

	if len(errs) > 0 {
		return Document{}, fmt.Errorf("%w: %w", ErrLegacyPayload, errors.Join(errs...))
	}
	return d, nil
}

func decodeLegacyLineItem(raw json.RawMessage) (LineItem, error) {
	fields, err := foldObject(raw)
	if err != nil {
		return LineItem{}, err
	}
	desc, err1 := asString(fields["description"])
	qty, err2 := asNumber(fields["quantity"])
	price, err3 := asNumber(fields["unitprice"])
	unit, err4 := asString(fields["unit"])
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return LineItem{}, err
	}
	return LineItem{Description: desc, Quantity: qty, UnitPrice: price, Unit: unit}, nil
}

// foldObject decodes a JSON object keyed by lower-cased names with
// underscores removed, so client_id and clientId land on the same key.
func foldObject(raw []byte) (map[string]json.RawMessage, error) {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLegacyPayload, err)
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.ReplaceAll(k, "_", ""))] = v
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func asString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("not a string")
	}
	return n.String(), nil
}

// asNumber accepts numbers and numeric strings.
func asNumber(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("not a number")
	}
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func asDate(raw json.RawMessage) (*time.Time, error) {
	s, err := asString(raw)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}
