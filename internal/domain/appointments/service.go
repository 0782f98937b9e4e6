// Package appointments books consultations and carries the doctor-side
// workflow: worklists built from patient ledgers and prescriptions
// written back into them.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifeline/lifeline/internal/domain/ledger"
	"github.com/lifeline/lifeline/internal/domain/registry"
)

var ErrNoDiseases = errors.New("appointments: at least one disease must be selected")

// DefaultSpecialization catches diseases missing from the lookup table.
const DefaultSpecialization = "General Physician"

// defaultConsultationFee applies to diseases missing from the fee table.
const defaultConsultationFee = 100

// diseaseSpecializations routes each known disease to the specialization
// that treats it. Configuration data, not clinical logic.
var diseaseSpecializations = map[string]string{
	"Fever":         "General Physician",
	"Cold":          "General Physician",
	"Diabetes":      "General Physician",
	"BP":            "Cardiologist",
	"Heart Problem": "Cardiologist",
	"Asthma":        "General Physician",
	"Infection":     "General Physician",
	"Fracture":      "Orthopedic",
}

// consultationFees is the per-disease charge sheet in rupees.
var consultationFees = map[string]int{
	"Fever":         100,
	"Cold":          50,
	"Diabetes":      150,
	"BP":            150,
	"Heart Problem": 500,
	"Asthma":        200,
	"Infection":     100,
	"Fracture":      300,
}

// Diseases lists the conditions a booking may select from.
func Diseases() []string {
	return []string{"Fever", "Cold", "Diabetes", "BP", "Heart Problem", "Asthma", "Infection", "Fracture"}
}

// Booking is the result of a confirmed appointment.
type Booking struct {
	PatientID string   `json:"patient_id"`
	Diseases  []string `json:"diseases"`
	Doctors   []string `json:"doctors"`
	Fee       int      `json:"fee"`
	BookedAt  string   `json:"booked_at"`
}

// WorklistEntry is one booked appointment naming the consulting doctor.
type WorklistEntry struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Diseases    string `json:"diseases"`
	BookedAt    string `json:"booked_at"`
}

type Service struct {
	patients registry.PatientRepository
	doctors  registry.DoctorRepository
	ledger   *ledger.Store
	now      func() time.Time
}

func NewService(patients registry.PatientRepository, doctors registry.DoctorRepository, led *ledger.Store) *Service {
	return &Service{patients: patients, doctors: doctors, ledger: led, now: time.Now}
}

// Book confirms an appointment for the selected diseases. Each disease
// resolves to the first registered doctor of the matching specialization;
// when none is registered, the specialization name stands in. The booked
// event and its consultation fee are both written to the ledger, the
// event first.
func (s *Service) Book(ctx context.Context, patientID string, diseases []string) (*Booking, error) {
	if len(diseases) == 0 {
		return nil, ErrNoDiseases
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	fee := 0
	var assigned []string
	seen := map[string]bool{}
	for _, disease := range diseases {
		fee += feeFor(disease)

		spec := diseaseSpecializations[disease]
		if spec == "" {
			spec = DefaultSpecialization
		}
		name := spec
		if doc, err := s.doctors.FirstBySpecialization(ctx, spec); err == nil {
			name = doc.Name
		}
		if !seen[name] {
			seen[name] = true
			assigned = append(assigned, name)
		}
	}

	bookedAt := s.now().Format(ledger.EventTimeFormat)
	event := ledger.Appointment{
		Diseases: strings.Join(diseases, ", "),
		Doctors:  strings.Join(assigned, ", "),
		When:     bookedAt,
	}
	if err := s.ledger.Append(patientID, event); err != nil {
		return nil, fmt.Errorf("write appointment: %w", err)
	}
	if err := s.ledger.AppendChargeLine(patientID, ledger.AppointmentFeeMarker, fee); err != nil {
		return nil, fmt.Errorf("write consultation fee: %w", err)
	}

	return &Booking{
		PatientID: patientID,
		Diseases:  diseases,
		Doctors:   assigned,
		Fee:       fee,
		BookedAt:  bookedAt,
	}, nil
}

// Worklist returns every booked appointment across all patient ledgers
// that names the given doctor. Ledgers that are missing or unreadable
// contribute nothing.
func (s *Service) Worklist(ctx context.Context, doctorID string) ([]WorklistEntry, error) {
	doc, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := []WorklistEntry{}
	for _, p := range patients {
		hist, err := s.ledger.Reconstruct(p.ID)
		if err != nil {
			continue
		}
		for _, appt := range hist.Appointments {
			if strings.Contains(appt.Doctors, doc.Name) {
				entries = append(entries, WorklistEntry{
					PatientID:   p.ID,
					PatientName: p.Name,
					Diseases:    appt.Diseases,
					BookedAt:    appt.When,
				})
			}
		}
	}
	return entries, nil
}

// AddPrescription appends a prescription block to the patient's ledger.
// The patient must already have a record on file.
func (s *Service) AddPrescription(ctx context.Context, doctorID, patientID, text string) (*ledger.Prescription, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &registry.ValidationError{Field: "prescription", Reason: "is required"}
	}
	if !s.ledger.Exists(patientID) {
		return nil, ledger.ErrNoHistory
	}
	p := ledger.Prescription{
		DoctorID: doctorID,
		Text:     text,
		When:     s.now().Format(ledger.EventTimeFormat),
	}
	if err := s.ledger.Append(patientID, p); err != nil {
		return nil, fmt.Errorf("write prescription: %w", err)
	}
	return &p, nil
}

// PrescriptionsFor returns a patient's prescriptions in file order.
func (s *Service) PrescriptionsFor(patientID string) ([]ledger.Prescription, error) {
	hist, err := s.ledger.Reconstruct(patientID)
	if err != nil {
		return nil, err
	}
	return hist.Prescriptions, nil
}

// History reconstructs the full structured event history for a patient.
func (s *Service) History(patientID string) (*ledger.History, error) {
	return s.ledger.Reconstruct(patientID)
}

func feeFor(disease string) int {
	if fee, ok := consultationFees[disease]; ok {
		return fee
	}
	return defaultConsultationFee
}
