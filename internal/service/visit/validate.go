// internal/service/visit/validate.go
package visit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fieldcrm-service/internal/domain/visit"
)

const MsgInvalidBody = "Invalid request body."

// Payload is a decoded JSON request body. Keeping raw values lets us tell an
// absent field from an explicit null and report every bad field at once.
type Payload map[string]json.RawMessage

func (p Payload) has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p Payload) isNull(key string) bool {
	raw, ok := p[key]
	return ok && isJSONNull(raw)
}

// Optional is a nullable field that may also be absent from the payload.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }
func null[T any]() Optional[T]    { return Optional[T]{Set: true} }

// Changes is the validated field set of a create or update payload.
type Changes struct {
	VisitDate       *time.Time
	Status          *visit.Status
	DurationMinutes *int
	RepID           *int64
	TerritoryID     *int64

	AccountType Optional[visit.AccountType]
	HcpID       Optional[int64]
	PharmacyID  Optional[int64]

	Notes          Optional[string]
	CommitmentText Optional[string]
	Purpose        Optional[visit.Purpose]
	Channel        Optional[visit.Channel]
	Products       Optional[[]visit.ProductLine]
	NextVisitDate  Optional[time.Time]
	OrderValueJOD  Optional[float64]
	Rating         Optional[int]
	StartLocation  Optional[visit.Location]
	EndLocation    Optional[visit.Location]

	hasUpdates bool
}

func (ch *Changes) touchesAccount() bool {
	return ch.AccountType.Set || ch.HcpID.Set || ch.PharmacyID.Set
}

type validateOptions struct {
	partial      bool
	requireRepID bool
}

// normalizePayload maps the aliases the field app sends onto canonical fields.
func normalizePayload(p Payload) {
	if s, ok := stringValue(p["status"]); ok && s == "pending" {
		p["status"] = json.RawMessage(`"scheduled"`)
	}

	if !p.has("durationMinutes") && p.has("elapsedSeconds") {
		if secs, ok := numberValue(p["elapsedSeconds"]); ok && secs >= 0 {
			p["durationMinutes"] = json.RawMessage(strconv.Itoa(int(math.Round(secs / 60))))
		}
	}

	if t, ok := stringValue(p["accountType"]); ok && p.has("accountId") && !p.isNull("accountId") {
		switch visit.AccountType(t) {
		case visit.AccountHcp:
			p["hcpId"] = p["accountId"]
			delete(p, "pharmacyId")
		case visit.AccountPharmacy:
			p["pharmacyId"] = p["accountId"]
			delete(p, "hcpId")
		}
	}

	if raw, ok := p["location"]; ok {
		var loc struct {
			Start json.RawMessage `json:"start"`
			End   json.RawMessage `json:"end"`
		}
		if err := json.Unmarshal(raw, &loc); err == nil {
			if !p.has("startLocation") && len(loc.Start) > 0 && !isJSONNull(loc.Start) {
				p["startLocation"] = loc.Start
			}
			if !p.has("endLocation") && len(loc.End) > 0 && !isJSONNull(loc.End) {
				p["endLocation"] = loc.End
			}
		}
	}
}

// validatePayload checks every field independently and returns all problems.
func validatePayload(p Payload, opts validateOptions) (Changes, []string) {
	var ch Changes
	var errs []string
	fail := func(msg string) { errs = append(errs, msg) }
	required := !opts.partial

	if required || p.has("visitDate") {
		switch {
		case !p.has("visitDate") || p.isNull("visitDate"):
			fail("visitDate is required.")
		default:
			d, ok := dateValue(p["visitDate"])
			if !ok {
				fail("visitDate must be a valid ISO-8601 date string.")
			} else {
				ch.VisitDate = &d
			}
		}
	}

	if required || p.has("status") {
		s, ok := stringValue(p["status"])
		switch {
		case !ok || strings.TrimSpace(s) == "":
			fail("status is required.")
		case !visit.Status(s).IsValid():
			fail(statusError())
		default:
			st := visit.Status(s)
			ch.Status = &st
		}
	}

	if required || p.has("durationMinutes") {
		if !p.has("durationMinutes") || p.isNull("durationMinutes") {
			fail("durationMinutes is required.")
		} else if n, ok := intValue(p["durationMinutes"]); !ok || n < 0 {
			fail("durationMinutes must be a non-negative integer.")
		} else {
			d := int(n)
			ch.DurationMinutes = &d
		}
	}

	if p.has("repId") || (required && opts.requireRepID) {
		ch.RepID = positiveID(p, "repId", required && opts.requireRepID, fail)
	}

	if required || p.has("territoryId") {
		ch.TerritoryID = positiveID(p, "territoryId", required, fail)
	}

	ch.HcpID = nullableID(p, "hcpId", fail)
	ch.PharmacyID = nullableID(p, "pharmacyId", fail)
	if ch.HcpID.Value != nil && ch.PharmacyID.Value != nil {
		fail("Only one of hcpId or pharmacyId may be provided.")
	}

	ch.AccountType = enumField(p, "accountType", required, func(s string) (visit.AccountType, bool) {
		t := visit.AccountType(s)
		return t, t.IsValid()
	}, "accountType must be one of: hcp, pharmacy", fail)

	ch.Purpose = enumField(p, "visitPurpose", required, func(s string) (visit.Purpose, bool) {
		for _, v := range visit.Purposes {
			if string(v) == s {
				return v, true
			}
		}
		return "", false
	}, "visitPurpose must be one of: "+joinEnum(visit.Purposes), fail)

	ch.Channel = enumField(p, "visitChannel", required, func(s string) (visit.Channel, bool) {
		for _, v := range visit.Channels {
			if string(v) == s {
				return v, true
			}
		}
		return "", false
	}, "visitChannel must be one of: "+joinEnum(visit.Channels), fail)

	ch.Notes = textField(p, "notes", fail)
	ch.CommitmentText = textField(p, "commitmentText", fail)

	if raw, ok := p["products"]; ok {
		if isJSONNull(raw) {
			ch.Products = null[[]visit.ProductLine]()
		} else if b := bytes.TrimSpace(raw); len(b) == 0 || b[0] != '[' {
			fail("products must be an array when provided.")
		} else {
			var lines []visit.ProductLine
			if err := json.Unmarshal(b, &lines); err != nil {
				fail("products must be an array of product objects.")
			} else {
				ch.Products = some(lines)
			}
		}
	}

	if raw, ok := p["nextVisitDate"]; ok {
		if s, isStr := stringValue(raw); isJSONNull(raw) || (isStr && s == "") {
			ch.NextVisitDate = null[time.Time]()
		} else if d, ok := dateValue(raw); ok {
			ch.NextVisitDate = some(d)
		} else {
			fail("nextVisitDate must be a valid ISO-8601 date string.")
		}
	}

	if raw, ok := p["orderValueJOD"]; ok {
		if s, isStr := stringValue(raw); isJSONNull(raw) || (isStr && s == "") {
			ch.OrderValueJOD = null[float64]()
		} else if f, ok := numberValue(raw); ok && f >= 0 {
			ch.OrderValueJOD = some(math.Round(f*100) / 100)
		} else {
			fail("orderValueJOD must be a non-negative number.")
		}
	}

	if raw, ok := p["rating"]; ok {
		if s, isStr := stringValue(raw); isJSONNull(raw) || (isStr && s == "") {
			ch.Rating = null[int]()
		} else if n, ok := intValue(raw); ok && n >= 1 && n <= 5 {
			ch.Rating = some(int(n))
		} else {
			fail("rating must be an integer between 1 and 5.")
		}
	}

	ch.StartLocation = locationField(p, "startLocation")
	ch.EndLocation = locationField(p, "endLocation")

	ch.hasUpdates = ch.VisitDate != nil || ch.Status != nil || ch.DurationMinutes != nil ||
		ch.RepID != nil || ch.TerritoryID != nil || ch.touchesAccount() ||
		ch.Notes.Set || ch.CommitmentText.Set || ch.Purpose.Set || ch.Channel.Set ||
		ch.Products.Set || ch.NextVisitDate.Set || ch.OrderValueJOD.Set || ch.Rating.Set ||
		ch.StartLocation.Set || ch.EndLocation.Set

	return ch, errs
}

// apply merges the changes into v and keeps exactly one account foreign key
// in line with the account type.
func (ch *Changes) apply(v *visit.Visit) error {
	if ch.VisitDate != nil {
		v.VisitDate = *ch.VisitDate
	}
	if ch.Status != nil {
		v.Status = *ch.Status
	}
	if ch.DurationMinutes != nil {
		v.DurationMinutes = *ch.DurationMinutes
	}
	if ch.RepID != nil {
		v.RepID = *ch.RepID
	}
	if ch.TerritoryID != nil {
		v.TerritoryID = *ch.TerritoryID
	}

	if ch.HcpID.Set {
		v.HcpID = ch.HcpID.Value
	}
	if ch.PharmacyID.Set {
		v.PharmacyID = ch.PharmacyID.Value
	}
	switch {
	case ch.AccountType.Value != nil:
		v.AccountType = ch.AccountType.Value
	case ch.HcpID.Value != nil:
		t := visit.AccountHcp
		v.AccountType = &t
	case ch.PharmacyID.Value != nil:
		t := visit.AccountPharmacy
		v.AccountType = &t
	case ch.AccountType.Set:
		v.AccountType = nil
	}
	if v.AccountType != nil {
		if acc, ok := v.Account(); ok {
			v.SetAccount(acc)
		} else {
			v.HcpID, v.PharmacyID = nil, nil
		}
	}

	if ch.Notes.Set {
		v.Notes = ch.Notes.Value
	}
	if ch.CommitmentText.Set {
		v.CommitmentText = ch.CommitmentText.Value
	}
	if ch.Purpose.Set {
		v.Purpose = ch.Purpose.Value
	}
	if ch.Channel.Set {
		v.Channel = ch.Channel.Value
	}
	if ch.Products.Set {
		var lines []visit.ProductLine
		if ch.Products.Value != nil {
			lines = *ch.Products.Value
			if lines == nil {
				lines = []visit.ProductLine{}
			}
		}
		encoded, err := visit.EncodeProducts(lines)
		if err != nil {
			return fmt.Errorf("failed to encode products: %w", err)
		}
		v.ProductsJSON = encoded
	}
	if ch.NextVisitDate.Set {
		v.NextVisitDate = ch.NextVisitDate.Value
	}
	if ch.OrderValueJOD.Set {
		v.OrderValueJOD = ch.OrderValueJOD.Value
	}
	if ch.Rating.Set {
		v.Rating = ch.Rating.Value
	}
	if ch.StartLocation.Set {
		v.StartLocation = ch.StartLocation.Value
	}
	if ch.EndLocation.Set {
		v.EndLocation = ch.EndLocation.Value
	}
	return nil
}

// accountErrors reports a discriminant without its matching foreign key.
func accountErrors(v *visit.Visit) []string {
	if v.AccountType == nil {
		return nil
	}
	switch *v.AccountType {
	case visit.AccountHcp:
		if v.HcpID == nil {
			return []string{"hcpId is required when accountType is hcp."}
		}
	case visit.AccountPharmacy:
		if v.PharmacyID == nil {
			return []string{"pharmacyId is required when accountType is pharmacy."}
		}
	}
	return nil
}

func positiveID(p Payload, key string, required bool, fail func(string)) *int64 {
	raw, ok := p[key]
	if !ok {
		if required {
			fail(key + " is required.")
		}
		return nil
	}
	n, valid := intValue(raw)
	if !valid || n < 1 {
		fail(key + " must be a positive integer.")
		return nil
	}
	return &n
}

func nullableID(p Payload, key string, fail func(string)) Optional[int64] {
	raw, ok := p[key]
	if !ok {
		return Optional[int64]{}
	}
	if isJSONNull(raw) {
		return null[int64]()
	}
	n, valid := intValue(raw)
	if !valid || n < 1 {
		fail(key + " must be a positive integer.")
		return Optional[int64]{}
	}
	return some(n)
}

// enumField treats blank and null as clearing the value. On create an absent
// field is stored as null.
func enumField[T any](p Payload, key string, required bool, parse func(string) (T, bool), msg string, fail func(string)) Optional[T] {
	raw, ok := p[key]
	if !ok {
		if required {
			return null[T]()
		}
		return Optional[T]{}
	}
	s, isStr := stringValue(raw)
	if isJSONNull(raw) || (isStr && strings.TrimSpace(s) == "") {
		return null[T]()
	}
	if !isStr {
		fail(msg)
		return Optional[T]{}
	}
	v, valid := parse(s)
	if !valid {
		fail(msg)
		return Optional[T]{}
	}
	return some(v)
}

// textField trims free text; blank becomes null.
func textField(p Payload, key string, fail func(string)) Optional[string] {
	raw, ok := p[key]
	if !ok {
		return Optional[string]{}
	}
	if isJSONNull(raw) {
		return null[string]()
	}
	s, isStr := stringValue(raw)
	if !isStr {
		fail(key + " must be a string.")
		return Optional[string]{}
	}
	if s = strings.TrimSpace(s); s == "" {
		return null[string]()
	}
	return some(s)
}

// locationField accepts only fixes with numeric lat and lng; anything else is
// ignored so a bad GPS reading never blocks saving a visit.
func locationField(p Payload, key string) Optional[visit.Location] {
	raw, ok := p[key]
	if !ok {
		return Optional[visit.Location]{}
	}
	if isJSONNull(raw) {
		return null[visit.Location]()
	}
	var loc struct {
		Lat      *float64 `json:"lat"`
		Lng      *float64 `json:"lng"`
		Accuracy *float64 `json:"accuracy"`
	}
	if err := json.Unmarshal(raw, &loc); err != nil || loc.Lat == nil || loc.Lng == nil {
		return Optional[visit.Location]{}
	}
	return some(visit.Location{Lat: *loc.Lat, Lng: *loc.Lng, Accuracy: loc.Accuracy})
}

func joinEnum[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// numberValue accepts JSON numbers and numeric strings.
func numberValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	if s, ok := stringValue(raw); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

// intValue accepts whole numbers, as JSON numbers or numeric strings.
func intValue(raw json.RawMessage) (int64, bool) {
	f, ok := numberValue(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func dateValue(raw json.RawMessage) (time.Time, bool) {
	s, ok := stringValue(raw)
	if !ok {
		return time.Time{}, false
	}
	return visit.ParseDate(strings.TrimSpace(s))
}
