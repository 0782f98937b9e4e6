package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lifeline/lifeline/internal/platform/flatfile"
)

// ErrNoHistory is returned when a patient has no ledger file yet. Callers
// treat it as "no data", not a failure.
var ErrNoHistory = errors.New("ledger: no history for patient")

// HeaderSeparator closes the registration header block.
const HeaderSeparator = "------------------------------"

// Header is the registration block written once at the top of a fresh
// ledger file.
type Header struct {
	PatientID    string
	Name         string
	Age          int
	Gender       string
	BloodGroup   string
	Contact      string
	Address      string
	Diseases     []string
	RegisteredAt time.Time
}

// Store reads and writes per-patient ledger files. One file per patient,
// named by patient id.
type Store struct {
	files *flatfile.Store
}

func NewStore(files *flatfile.Store) *Store {
	return &Store{files: files}
}

// FileName returns the ledger file name for a patient id.
func FileName(patientID string) string {
	return patientID + ".txt"
}

// Exists reports whether the patient has a ledger file.
func (s *Store) Exists(patientID string) bool {
	return s.files.Exists(FileName(patientID))
}

// Lines returns the raw ledger lines, or ErrNoHistory if the file is absent.
func (s *Store) Lines(patientID string) ([]string, error) {
	lines, err := s.files.ReadLines(FileName(patientID))
	if err != nil {
		if errors.Is(err, flatfile.ErrNotFound) {
			return nil, ErrNoHistory
		}
		return nil, err
	}
	return lines, nil
}

// Append encodes an event block and appends it to the patient's ledger,
// creating the file if needed.
func (s *Store) Append(patientID string, ev Event) error {
	return s.files.Append(FileName(patientID), encodeBlock(ev))
}

// AppendChargeLine appends a standalone billable line, e.g.
// "Appointment Fee: 250". These lines are scanned independently of block
// structure by the billing reconciler.
func (s *Store) AppendChargeLine(patientID, marker string, amount int) error {
	line := marker + " " + strconv.Itoa(amount)
	return s.files.Append(FileName(patientID), line)
}

// AppendRaw appends an arbitrary line, used for narration lines such as
// the discharge note written at payment time. Unknown markers are ignored
// by reconstruction.
func (s *Store) AppendRaw(patientID, line string) error {
	return s.files.Append(FileName(patientID), line)
}

// WriteHeader writes the registration header block and the registration
// fee charge line to a fresh ledger file.
func (s *Store) WriteHeader(h Header, registrationFee int) error {
	diseases := "None"
	if len(h.Diseases) > 0 {
		diseases = strings.Join(h.Diseases, ", ")
	}
	lines := []string{
		"Patient ID: " + h.PatientID,
		"Name: " + h.Name,
		"Age: " + strconv.Itoa(h.Age),
		"Gender: " + h.Gender,
		"Blood Group: " + h.BloodGroup,
		"Contact: " + h.Contact,
		"Address: " + h.Address,
		"Diseases: " + diseases,
		"Registration Time: " + h.RegisteredAt.Format(HeaderTimeFormat),
		HeaderSeparator,
		fmt.Sprintf("%s %d", RegistrationFeeMarker, registrationFee),
	}
	return s.files.Append(FileName(h.PatientID), strings.Join(lines, "\n"))
}

// HeaderField returns the value of a "Label: value" line in the ledger,
// matching on the label prefix. Only the first occurrence is returned,
// which for header labels is the registration block's line.
func (s *Store) HeaderField(pid, label string) (string, bool) {
	lines, err := s.Lines(pid)
	if err != nil {
		return "", false
	}
	prefix := label + ":"
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

// UpdateHeaderFields rewrites the ledger in place, replacing the value of
// every line whose label matches a key in fields. This is the only
// non-append mutation a ledger file ever sees; the rewrite goes through
// the store's atomic rename.
func (s *Store) UpdateHeaderFields(pid string, fields map[string]string) error {
	lines, err := s.Lines(pid)
	if err != nil {
		return err
	}
	for i, line := range lines {
		for label, value := range fields {
			if strings.HasPrefix(line, label+":") {
				lines[i] = label + ": " + value
				break
			}
		}
	}
	return s.files.RewriteLines(FileName(pid), lines)
}
