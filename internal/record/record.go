package record

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one candidate assessment entry.
//
// ID is assigned by the candidate store; an empty ID marks a record that only
// exists locally (cache-only).
type Record struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	Qualification    string `json:"qualification"`
	DateAssessed     string `json:"dateAssessed"`
	AssessmentCenter string `json:"assessmentCenter"`
	AssessmentStatus string `json:"assessmentStatus"`
	Result           string `json:"result"`
	NCNo             string `json:"ncNo"`
	School           string `json:"school"`
	SourceFile       string `json:"sourceFile,omitempty"`
}

// Key returns the composite fallback identity used when no store ID exists.
func Key(name, dateAssessed, ncNo string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.TrimSpace(dateAssessed) + "|" + strings.TrimSpace(ncNo)
}

// Key returns the record's composite fallback key.
func (r Record) Key() string {
	return Key(r.Name, r.DateAssessed, r.NCNo)
}

// HasID reports whether the record is store-confirmed.
func (r Record) HasID() bool {
	return strings.TrimSpace(r.ID) != ""
}

// Identity is the id when present, otherwise the fallback key. The prefixes
// keep the two namespaces from colliding.
func (r Record) Identity() string {
	if r.HasID() {
		return "id:" + strings.TrimSpace(r.ID)
	}
	return "key:" + r.Key()
}

// MergeFrom overlays the non-empty fields of other onto r.
func (r *Record) MergeFrom(other Record) {
	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overlay(&r.ID, other.ID)
	overlay(&r.Name, other.Name)
	overlay(&r.Gender, other.Gender)
	overlay(&r.Qualification, other.Qualification)
	overlay(&r.DateAssessed, other.DateAssessed)
	overlay(&r.AssessmentCenter, other.AssessmentCenter)
	overlay(&r.AssessmentStatus, other.AssessmentStatus)
	overlay(&r.Result, other.Result)
	overlay(&r.NCNo, other.NCNo)
	overlay(&r.School, other.School)
	overlay(&r.SourceFile, other.SourceFile)
}

// SameFields reports whether r and other carry the same candidate data,
// ignoring the store id and the provenance filename.
func (r Record) SameFields(other Record) bool {
	r.ID, other.ID = "", ""
	r.SourceFile, other.SourceFile = "", ""
	return r == other
}

var certifiedResults = map[string]struct{}{
	"pass":                    {},
	"passed":                  {},
	"qualified":               {},
	"certified":               {},
	"passed with distinction": {},
}

// IsCertified reports whether a result value counts as certified.
func IsCertified(result string) bool {
	_, ok := certifiedResults[strings.ToLower(strings.TrimSpace(result))]
	return ok
}

// IsAssessed reports whether an assessment status marks the candidate as assessed ("A").
func IsAssessed(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "A")
}

// Update carries an edit. Nil fields are left untouched; a non-nil empty
// string clears the field.
type Update struct {
	Name             *string `json:"name,omitempty"`
	Gender           *string `json:"gender,omitempty"`
	Qualification    *string `json:"qualification,omitempty"`
	DateAssessed     *string `json:"dateAssessed,omitempty"`
	AssessmentCenter *string `json:"assessmentCenter,omitempty"`
	AssessmentStatus *string `json:"assessmentStatus,omitempty"`
	Result           *string `json:"result,omitempty"`
	NCNo             *string `json:"ncNo,omitempty"`
	School           *string `json:"school,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.fields()) == 0
}

// Apply returns a copy of r with the update applied.
func (u Update) Apply(r Record) Record {
	for name, value := range u.fields() {
		*fieldPtr(&r, name) = strings.TrimSpace(*value)
	}
	if u.DateAssessed != nil {
		r.DateAssessed = NormalizeDate(r.DateAssessed)
	}
	return r
}

func (u *Update) fields() map[string]*string {
	out := make(map[string]*string, 9)
	for name, ptr := range map[string]*string{
		"name":             u.Name,
		"gender":           u.Gender,
		"qualification":    u.Qualification,
		"dateAssessed":     u.DateAssessed,
		"assessmentCenter": u.AssessmentCenter,
		"assessmentStatus": u.AssessmentStatus,
		"result":           u.Result,
		"ncNo":             u.NCNo,
		"school":           u.School,
	} {
		if ptr != nil {
			out[name] = ptr
		}
	}
	return out
}

func fieldPtr(r *Record, name string) *string {
	switch name {
	case "name":
		return &r.Name
	case "gender":
		return &r.Gender
	case "qualification":
		return &r.Qualification
	case "dateAssessed":
		return &r.DateAssessed
	case "assessmentCenter":
		return &r.AssessmentCenter
	case "assessmentStatus":
		return &r.AssessmentStatus
	case "result":
		return &r.Result
	case "ncNo":
		return &r.NCNo
	case "school":
		return &r.School
	}
	return nil
}

// editableFields maps accepted edit keys (camelCase, snake_case, and the
// spreadsheet header aliases) to canonical field names.
var editableFields = func() map[string]string {
	out := map[string]string{
		"assessmentcenter": "assessmentCenter",
		"assessmentstatus": "assessmentStatus",
		"dateassessed":     "dateAssessed",
		"ncno":             "ncNo",
	}
	for _, col := range columns {
		for _, alias := range col.aliases {
			out[alias] = col.field
		}
	}
	return out
}()

// FieldName resolves an edit key to its canonical field name.
func FieldName(key string) (string, bool) {
	name, ok := editableFields[foldHeader(key)]
	return name, ok
}

// Fields returns the set fields keyed by canonical name, trimmed.
func (u Update) Fields() map[string]string {
	set := u.fields()
	out := make(map[string]string, len(set))
	for name, value := range set {
		out[name] = strings.TrimSpace(*value)
	}
	return out
}

// ParseUpdate builds an Update from "field=value" style pairs. Keys accept
// canonical names, snake_case names, and spreadsheet header aliases.
func ParseUpdate(pairs map[string]string) (Update, error) {
	var u Update
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name, ok := FieldName(key)
		if !ok {
			return Update{}, fmt.Errorf("unknown field %q", key)
		}
		value := pairs[key]
		switch name {
		case "name":
			u.Name = &value
		case "gender":
			u.Gender = &value
		case "qualification":
			u.Qualification = &value
		case "dateAssessed":
			u.DateAssessed = &value
		case "assessmentCenter":
			u.AssessmentCenter = &value
		case "assessmentStatus":
			u.AssessmentStatus = &value
		case "result":
			u.Result = &value
		case "ncNo":
			u.NCNo = &value
		case "school":
			u.School = &value
		}
	}
	return u, nil
}
