package ledger

import "strings"

// History groups a patient's reconstructed events by category, each in
// file order.
type History struct {
	Appointments   []Appointment
	Prescriptions  []Prescription
	BedAllocations []BedEvent
	Payments       []Payment
}

// Empty reports whether no events were reconstructed in any category.
func (h *History) Empty() bool {
	return len(h.Appointments) == 0 && len(h.Prescriptions) == 0 &&
		len(h.BedAllocations) == 0 && len(h.Payments) == 0
}

// Reconstruct scans the patient's ledger and rebuilds typed events from
// recognized blocks. A malformed block (a required offset line missing
// past the end of the file) drops that single event; scanning always
// resumes at the line after the marker, so a bad block can never shift
// the parse of later blocks. Unknown marker lines are ignored. Returns
// ErrNoHistory when the patient has no ledger file.
func (s *Store) Reconstruct(patientID string) (*History, error) {
	lines, err := s.Lines(patientID)
	if err != nil {
		return nil, err
	}
	return reconstruct(lines), nil
}

func reconstruct(lines []string) *History {
	h := &History{}
	for i, line := range lines {
		switch {
		case strings.Contains(line, Marker(KindAppointment)):
			if ev, ok := appointmentAt(lines, i); ok {
				h.Appointments = append(h.Appointments, ev)
			}
		case strings.Contains(line, Marker(KindPrescription)):
			if ev, ok := prescriptionAt(lines, i); ok {
				h.Prescriptions = append(h.Prescriptions, ev)
			}
		case strings.Contains(line, Marker(KindBedAllocated)):
			if ev, ok := bedEventAt(lines, i, false); ok {
				h.BedAllocations = append(h.BedAllocations, ev)
			}
		case strings.Contains(line, Marker(KindBedDischarged)):
			if ev, ok := bedEventAt(lines, i, true); ok {
				h.BedAllocations = append(h.BedAllocations, ev)
			}
		case strings.Contains(line, Marker(KindPayment)):
			if ev, ok := paymentAt(lines, i); ok {
				h.Payments = append(h.Payments, ev)
			}
		}
	}
	return h
}

// fieldValue strips the known label prefix from the line at offset, if
// present. Field identity is positional: a line that carries a different
// label is still taken as this field's value, label and all, exactly as
// written.
func fieldValue(lines []string, idx int, label string) (string, bool) {
	if idx >= len(lines) {
		return "", false
	}
	line := strings.TrimSpace(lines[idx])
	return strings.TrimPrefix(line, label+": "), true
}

func appointmentAt(lines []string, i int) (Appointment, bool) {
	diseases, ok1 := fieldValue(lines, i+1, "Diseases")
	doctors, ok2 := fieldValue(lines, i+2, "Doctors")
	when, ok3 := fieldValue(lines, i+3, "Date & Time")
	if !ok1 || !ok2 || !ok3 {
		return Appointment{}, false
	}
	return Appointment{Diseases: diseases, Doctors: doctors, When: when}, true
}

func prescriptionAt(lines []string, i int) (Prescription, bool) {
	doctorID, ok1 := fieldValue(lines, i+1, "Doctor ID")
	text, ok2 := fieldValue(lines, i+2, "Prescription")
	when, ok3 := fieldValue(lines, i+3, "Date & Time")
	if !ok1 || !ok2 || !ok3 {
		return Prescription{}, false
	}
	return Prescription{DoctorID: doctorID, Text: text, When: when}, true
}

func bedEventAt(lines []string, i int, discharged bool) (BedEvent, bool) {
	bedNo, ok1 := fieldValue(lines, i+1, "Bed No")
	when, ok2 := fieldValue(lines, i+2, "Date & Time")
	if !ok1 || !ok2 {
		return BedEvent{}, false
	}
	return BedEvent{Discharged: discharged, BedNo: bedNo, When: when}, true
}

func paymentAt(lines []string, i int) (Payment, bool) {
	date, ok1 := fieldValue(lines, i+1, "Date")
	method, ok2 := fieldValue(lines, i+2, "Method")
	amount, ok3 := fieldValue(lines, i+3, "PAYMENT MADE")
	status, ok4 := fieldValue(lines, i+4, "Status")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Payment{}, false
	}
	return Payment{Date: date, Method: method, Amount: amount, Status: status}, true
}
