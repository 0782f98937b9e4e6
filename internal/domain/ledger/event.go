// Package ledger implements the per-patient ledger file: an append-mostly
// free-text log that records registration data, event blocks, and billable
// charge lines. A block is a marker line of the form "--- <TYPE> ---"
// followed by a fixed sequence of "Label: value" lines; field identity is
// positional, not label-matched, so the writer must preserve field order
// exactly and the parser reads fixed offsets from each marker.
package ledger

import (
	"fmt"
	"strings"
)

// Kind identifies an event block type by its marker text.
type Kind string

const (
	KindAppointment   Kind = "APPOINTMENT BOOKED"
	KindPrescription  Kind = "PRESCRIPTION ADDED"
	KindBedAllocated  Kind = "BED ALLOCATED"
	KindBedDischarged Kind = "BED DISCHARGED"
	KindPayment       Kind = "PAYMENT RECEIPT"
)

// Time layouts used inside ledger files.
const (
	// EventTimeFormat is the "Date & Time" layout in event blocks.
	EventTimeFormat = "02-01-2006 15:04:05"
	// HeaderTimeFormat is the "Registration Time" layout in the header.
	HeaderTimeFormat = "2006-01-02 15:04:05"
)

// Charge line markers scanned by the billing reconciler. These are
// standalone lines, not block fields.
const (
	RegistrationFeeMarker = "Registration fees:"
	AppointmentFeeMarker  = "Appointment Fee:"
	PaymentMadeMarker     = "PAYMENT MADE:"
)

// Marker returns the literal marker line for a block type.
func Marker(k Kind) string {
	return "--- " + string(k) + " ---"
}

type field struct {
	label string
	value string
}

// Event is one structured entry in a patient ledger. Implementations
// define the fixed field sequence their block type is encoded with.
type Event interface {
	Kind() Kind
	// fields returns the block's labeled values in their mandated order.
	fields() []field
	// Summary renders the event as a single human-readable line.
	Summary() string
}

// Appointment is an APPOINTMENT BOOKED block.
type Appointment struct {
	Diseases string
	Doctors  string
	When     string
}

func (a Appointment) Kind() Kind { return KindAppointment }

func (a Appointment) fields() []field {
	return []field{
		{"Diseases", a.Diseases},
		{"Doctors", a.Doctors},
		{"Date & Time", a.When},
	}
}

func (a Appointment) Summary() string {
	return fmt.Sprintf("%s: %s - Dr. %s", a.When, a.Diseases, a.Doctors)
}

// Prescription is a PRESCRIPTION ADDED block.
type Prescription struct {
	DoctorID string
	Text     string
	When     string
}

func (p Prescription) Kind() Kind { return KindPrescription }

func (p Prescription) fields() []field {
	return []field{
		{"Doctor ID", p.DoctorID},
		{"Prescription", p.Text},
		{"Date & Time", p.When},
	}
}

func (p Prescription) Summary() string {
	return fmt.Sprintf("%s: %s (Dr. %s)", p.When, p.Text, p.DoctorID)
}

// BedEvent is a BED ALLOCATED or BED DISCHARGED block.
type BedEvent struct {
	Discharged bool
	BedNo      string
	When       string
}

func (b BedEvent) Kind() Kind {
	if b.Discharged {
		return KindBedDischarged
	}
	return KindBedAllocated
}

func (b BedEvent) fields() []field {
	return []field{
		{"Bed No", b.BedNo},
		{"Date & Time", b.When},
	}
}

func (b BedEvent) Summary() string {
	if b.Discharged {
		return fmt.Sprintf("%s: Discharged from %s", b.When, b.BedNo)
	}
	return fmt.Sprintf("%s: Allocated to %s", b.When, b.BedNo)
}

// Payment is a PAYMENT RECEIPT block. Amount stays a string during
// reconstruction; the billing reconciler parses it independently.
type Payment struct {
	Date   string
	Method string
	Amount string
	Status string
}

func (p Payment) Kind() Kind { return KindPayment }

func (p Payment) fields() []field {
	return []field{
		{"Date", p.Date},
		{"Method", p.Method},
		{"PAYMENT MADE", p.Amount},
		{"Status", p.Status},
	}
}

func (p Payment) Summary() string {
	return fmt.Sprintf("%s: Rs. %s via %s", p.Date, p.Amount, p.Method)
}

// encodeBlock renders an event as its on-disk block text: a leading blank
// line for visual separation, the marker, then each field in order.
func encodeBlock(ev Event) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(Marker(ev.Kind()))
	for _, f := range ev.fields() {
		b.WriteString("\n")
		b.WriteString(f.label)
		b.WriteString(": ")
		b.WriteString(f.value)
	}
	return b.String()
}
