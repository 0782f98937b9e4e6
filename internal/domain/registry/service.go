package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/lifeline/lifeline/internal/domain/ledger"
)

// ValidationError reports a single rejected input field. It maps to a
// user-visible message, never an internal fault.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewPatientInput carries validated-at-the-edge registration data.
type NewPatientInput struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Gender     string   `json:"gender"`
	BloodGroup string   `json:"blood_group"`
	Contact    string   `json:"contact"`
	Address    string   `json:"address"`
	Diseases   []string `json:"diseases"`
}

// NewDoctorInput carries doctor registration data.
type NewDoctorInput struct {
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	Specialization  string `json:"specialization"`
	Qualification   string `json:"qualification"`
	ExperienceYears int    `json:"experience_years"`
	Contact         string `json:"contact"`
}

// Registration is returned once at patient creation; the password key is
// shown to the operator and never again.
type Registration struct {
	Patient     *Patient `json:"patient"`
	PasswordKey string   `json:"password_key"`
}

// PatientSummary is the listing row: master fields plus the registration
// time read back from the ledger header.
type PatientSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Contact      string `json:"contact"`
	RegisteredAt string `json:"registered_at"`
}

type Service struct {
	patients        PatientRepository
	doctors         DoctorRepository
	ledger          *ledger.Store
	registrationFee int
	now             func() time.Time
}

func NewService(patients PatientRepository, doctors DoctorRepository, led *ledger.Store, registrationFee int) *Service {
	return &Service{
		patients:        patients,
		doctors:         doctors,
		ledger:          led,
		registrationFee: registrationFee,
		now:             time.Now,
	}
}

// RegisterPatient validates the input, derives the id and password key,
// writes the master record and the ledger header (including the one-time
// registration fee line).
func (s *Service) RegisterPatient(ctx context.Context, in NewPatientInput) (*Registration, error) {
	if err := validatePerson(in.Name, in.Age, in.Contact); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, &ValidationError{Field: "address", Reason: "is required"}
	}

	p := &Patient{
		ID:          NewPatientID(in.Name, in.Age),
		PasswordKey: NewPasswordKey(in.Name, in.Age),
		Age:         in.Age,
		Name:        in.Name,
		Contact:     in.Contact,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}

	header := ledger.Header{
		PatientID:    p.ID,
		Name:         p.Name,
		Age:          p.Age,
		Gender:       in.Gender,
		BloodGroup:   in.BloodGroup,
		Contact:      p.Contact,
		Address:      in.Address,
		Diseases:     in.Diseases,
		RegisteredAt: s.now(),
	}
	if err := s.ledger.WriteHeader(header, s.registrationFee); err != nil {
		return nil, fmt.Errorf("write ledger header: %w", err)
	}
	return &Registration{Patient: p, PasswordKey: p.PasswordKey}, nil
}

// RegisterDoctor validates the input and appends the master record.
// Doctor records are immutable after creation.
func (s *Service) RegisterDoctor(ctx context.Context, in NewDoctorInput) (*Doctor, error) {
	if err := validatePerson(in.Name, in.Age, in.Contact); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Qualification) == "" {
		return nil, &ValidationError{Field: "qualification", Reason: "is required"}
	}
	if in.ExperienceYears < 0 {
		return nil, &ValidationError{Field: "experience_years", Reason: "must not be negative"}
	}

	d := &Doctor{
		ID:              NewDoctorID(in.Name, in.Age),
		Name:            in.Name,
		Specialization:  in.Specialization,
		Gender:          in.Gender,
		Qualification:   in.Qualification,
		ExperienceYears: in.ExperienceYears,
		Contact:         in.Contact,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.doctors.List(ctx)
}

// PatientDetails returns the raw ledger text for a patient, the closest
// thing this system has to a full chart view. Missing ledgers surface as
// an empty slice, not an error.
func (s *Service) PatientDetails(ctx context.Context, id string) (*Patient, []string, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.ledger.Lines(id)
	if err != nil {
		lines = nil
	}
	return p, lines, nil
}

// ListPatients returns registered patients newest first, ordered by the
// registration time recorded in each ledger header. Patients whose
// ledger is missing sort last.
func (s *Service) ListPatients(ctx context.Context) ([]*PatientSummary, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]*PatientSummary, 0, len(patients))
	for _, p := range patients {
		summary := &PatientSummary{ID: p.ID, Name: p.Name, Age: p.Age, Contact: p.Contact}
		if regTime, ok := s.ledger.HeaderField(p.ID, "Registration Time"); ok {
			summary.RegisteredAt = regTime
		}
		summaries = append(summaries, summary)
	}
	// Registration times share a lexicographically sortable layout, so a
	// string sort is a time sort. Empty values sink to the end.
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].RegisteredAt > summaries[j].RegisteredAt
	})
	return summaries, nil
}

// SortPatientsByAge returns all patients ordered by ascending age.
func (s *Service) SortPatientsByAge(ctx context.Context) ([]*Patient, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(patients, func(i, j int) bool {
		return patients[i].Age < patients[j].Age
	})
	return patients, nil
}

// UpdateProfile rewrites the patient's contact in the master record and
// the contact/address lines in the ledger header, the only in-place
// mutations the system performs.
func (s *Service) UpdateProfile(ctx context.Context, id, contact, address string) error {
	if !isDigits(contact) || len(contact) != 10 {
		return &ValidationError{Field: "contact", Reason: "must be exactly 10 digits"}
	}
	if strings.TrimSpace(address) == "" {
		return &ValidationError{Field: "address", Reason: "is required"}
	}
	if err := s.patients.UpdateContact(ctx, id, contact); err != nil {
		return err
	}
	return s.ledger.UpdateHeaderFields(id, map[string]string{
		"Contact": contact,
		"Address": address,
	})
}

func validatePerson(name string, age int, contact string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !isAlphaWithSpaces(name) {
		return &ValidationError{Field: "name", Reason: "must contain letters only"}
	}
	if age <= 0 {
		return &ValidationError{Field: "age", Reason: "must be greater than 0"}
	}
	if !isDigits(contact) || len(contact) != 10 {
		return &ValidationError{Field: "contact", Reason: "must be exactly 10 digits"}
	}
	return nil
}

func isAlphaWithSpaces(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
