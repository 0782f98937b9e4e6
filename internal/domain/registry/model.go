// Package registry manages the patient and doctor master records: one
// comma-delimited line per entity in a shared file, fields ordered
// positionally with no header. Patient ids and password keys are derived
// deterministically from name and age at registration.
package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// Patient is a master-file record: id,passwordKey,age,name,contact.
type Patient struct {
	ID          string `json:"id"`
	PasswordKey string `json:"-"`
	Age         int    `json:"age"`
	Name        string `json:"name"`
	Contact     string `json:"contact"`
}

// Record returns the patient's master-file fields in positional order.
func (p *Patient) Record() []string {
	return []string{p.ID, p.PasswordKey, strconv.Itoa(p.Age), p.Name, p.Contact}
}

// PatientFromRecord rebuilds a patient from master-file fields. Records
// with fewer than four fields are rejected; a missing contact field reads
// as empty rather than failing the whole record.
func PatientFromRecord(fields []string) (*Patient, bool) {
	if len(fields) < 4 {
		return nil, false
	}
	age, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, false
	}
	p := &Patient{
		ID:          fields[0],
		PasswordKey: fields[1],
		Age:         age,
		Name:        fields[3],
	}
	if len(fields) > 4 {
		p.Contact = fields[4]
	}
	return p, true
}

// Doctor is a master-file record:
// id,name,specialization,gender,qualification,<N> yrs,contact.
type Doctor struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Specialization  string `json:"specialization"`
	Gender          string `json:"gender"`
	Qualification   string `json:"qualification"`
	ExperienceYears int    `json:"experience_years"`
	Contact         string `json:"contact"`
}

// Record returns the doctor's master-file fields in positional order.
// Experience is stored as "<N> yrs".
func (d *Doctor) Record() []string {
	return []string{
		d.ID, d.Name, d.Specialization, d.Gender, d.Qualification,
		fmt.Sprintf("%d yrs", d.ExperienceYears), d.Contact,
	}
}

// DoctorFromRecord rebuilds a doctor from master-file fields.
func DoctorFromRecord(fields []string) (*Doctor, bool) {
	if len(fields) < 7 {
		return nil, false
	}
	years, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fields[5]), "yrs")))
	if err != nil {
		return nil, false
	}
	return &Doctor{
		ID:              fields[0],
		Name:            fields[1],
		Specialization:  fields[2],
		Gender:          fields[3],
		Qualification:   fields[4],
		ExperienceYears: years,
		Contact:         fields[6],
	}, true
}

// NewPatientID derives a patient id from name and age: "pat" plus the
// first three letters of the name, lowercased, plus the age.
func NewPatientID(name string, age int) string {
	return "pat" + idStem(name) + strconv.Itoa(age)
}

// NewDoctorID derives a doctor id the same way with the "doc" prefix.
func NewDoctorID(name string, age int) string {
	return "doc" + idStem(name) + strconv.Itoa(age)
}

// idStem takes the first three characters of the space-stripped name.
// Names may hold any Unicode letter, so the cut counts runes, not bytes.
func idStem(name string) string {
	compact := []rune(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	if len(compact) > 3 {
		compact = compact[:3]
	}
	return strings.ToLower(string(compact))
}

// NewPasswordKey derives the initial patient password: first name, "@",
// age.
func NewPasswordKey(name string, age int) string {
	first := strings.Fields(name)
	if len(first) == 0 {
		return "@" + strconv.Itoa(age)
	}
	return first[0] + "@" + strconv.Itoa(age)
}
