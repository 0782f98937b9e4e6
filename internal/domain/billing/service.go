// Package billing recomputes a patient's balance by replaying the charge
// and payment markers in their ledger. Nothing stores a running total:
// every statement is a full scan, which can never be half-updated by a
// crash, and the result is a pure function of the ledger content plus the
// live bed map.
package billing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lifeline/lifeline/internal/domain/ledger"
)

var (
	ErrNothingDue       = errors.New("billing: no outstanding dues")
	ErrNotAdmitted      = errors.New("billing: patient occupies no bed")
	ErrCreditBalance    = errors.New("billing: account holds a credit balance")
	ErrInvalidPayMethod = errors.New("billing: unsupported payment method")
)

var validMethods = map[string]bool{
	"Card": true,
	"UPI":  true,
}

// Admissions is the slice of the bed map the reconciler needs: who is in
// which bed right now. *ward.Beds satisfies it.
type Admissions interface {
	BedOf(patientID string) (string, bool)
	Release(patientID string) (string, bool)
}

// Statement is one reconciliation result. Total is signed: a negative
// value is a credit balance, a valid state.
type Statement struct {
	PatientID string   `json:"patient_id"`
	Total     int      `json:"total"`
	Breakdown []string `json:"breakdown"`
	Admitted  bool     `json:"admitted"`
	BedID     string   `json:"bed_id,omitempty"`
}

// Receipt is returned after a successful settlement.
type Receipt struct {
	ReceiptID      string `json:"receipt_id"`
	PatientID      string `json:"patient_id"`
	Amount         int    `json:"amount"`
	Method         string `json:"method"`
	PaidAt         string `json:"paid_at"`
	DischargedFrom string `json:"discharged_from,omitempty"`
}

type Service struct {
	ledger *ledger.Store
	beds   Admissions
	bedFee int
	now    func() time.Time
}

func NewService(led *ledger.Store, beds Admissions, bedFee int) *Service {
	return &Service{ledger: led, beds: beds, bedFee: bedFee, now: time.Now}
}

// ComputeBalance replays every charge and payment marker in the ledger in
// file order, independent of block structure, then adds the flat bed fee
// if the patient currently occupies a bed. The bed fee is never written
// to the ledger: it is visible only while the patient is admitted and
// vanishes from statements after discharge. A missing ledger means zero
// charges. Malformed amounts skip that line only.
func (s *Service) ComputeBalance(patientID string) *Statement {
	stmt := &Statement{PatientID: patientID, Breakdown: []string{}}

	lines, err := s.ledger.Lines(patientID)
	if err != nil {
		lines = nil
	}
	for _, line := range lines {
		switch {
		case strings.Contains(line, ledger.RegistrationFeeMarker):
			if amt, ok := amountAfterColon(line); ok {
				stmt.Total += amt
				stmt.Breakdown = append(stmt.Breakdown, fmt.Sprintf("Registration Fee: Rs. %d", amt))
			}
		case strings.Contains(line, ledger.AppointmentFeeMarker):
			if amt, ok := amountAfterColon(line); ok {
				stmt.Total += amt
				stmt.Breakdown = append(stmt.Breakdown, fmt.Sprintf("Appointment Charge: Rs. %d", amt))
			}
		case strings.Contains(line, ledger.PaymentMadeMarker):
			if amt, ok := amountAfterColon(line); ok {
				stmt.Total -= amt
				stmt.Breakdown = append(stmt.Breakdown, fmt.Sprintf("Less Payment: -Rs. %d", amt))
			}
		}
	}

	if bedID, ok := s.beds.BedOf(patientID); ok {
		stmt.Total += s.bedFee
		stmt.Breakdown = append(stmt.Breakdown, fmt.Sprintf("Current Bed Charge (%s): Rs. %d", bedID, s.bedFee))
		stmt.Admitted = true
		stmt.BedID = bedID
	}
	return stmt
}

// Settle pays off the full outstanding balance: it writes a PAYMENT
// RECEIPT block for the reconciled total and, if the patient is admitted,
// frees the bed and writes a discharge note. Fails when nothing is owed.
func (s *Service) Settle(patientID, method string) (*Receipt, error) {
	if !validMethods[method] {
		return nil, ErrInvalidPayMethod
	}
	stmt := s.ComputeBalance(patientID)
	if stmt.Total == 0 {
		return nil, ErrNothingDue
	}
	if stmt.Total < 0 {
		return nil, ErrCreditBalance
	}

	paidAt := s.now().Format(ledger.HeaderTimeFormat)
	payment := ledger.Payment{
		Date:   paidAt,
		Method: method,
		Amount: strconv.Itoa(stmt.Total),
		Status: "Success",
	}
	if err := s.ledger.Append(patientID, payment); err != nil {
		return nil, fmt.Errorf("write payment receipt: %w", err)
	}

	receipt := &Receipt{
		ReceiptID: uuid.NewString(),
		PatientID: patientID,
		Amount:    stmt.Total,
		Method:    method,
		PaidAt:    paidAt,
	}
	if stmt.Admitted {
		if bedID, ok := s.beds.Release(patientID); ok {
			receipt.DischargedFrom = bedID
			note := fmt.Sprintf("--- DISCHARGED FROM %s ---", bedID)
			if err := s.ledger.AppendRaw(patientID, note); err != nil {
				return receipt, fmt.Errorf("write discharge note: %w", err)
			}
		}
	}
	return receipt, nil
}

// DischargeWithoutDues frees the patient's bed when the statement total,
// bed fee included, is exactly zero. Anything still owed, the bed fee
// among it, must go through Settle.
func (s *Service) DischargeWithoutDues(patientID string) (string, error) {
	stmt := s.ComputeBalance(patientID)
	if !stmt.Admitted {
		return "", ErrNotAdmitted
	}
	if stmt.Total != 0 {
		return "", fmt.Errorf("billing: outstanding balance of %d must be settled first", stmt.Total)
	}
	bedID, _ := s.beds.Release(patientID)
	note := fmt.Sprintf("--- DISCHARGED FROM %s ---", bedID)
	if err := s.ledger.AppendRaw(patientID, note); err != nil {
		return bedID, fmt.Errorf("write discharge note: %w", err)
	}
	return bedID, nil
}

// amountAfterColon extracts the integer between the first and second
// colons of a marker line. A missing or non-numeric amount skips the
// line, never fails the scan.
func amountAfterColon(line string) (int, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return 0, false
	}
	rest := line[idx+1:]
	if j := strings.Index(rest, ":"); j >= 0 {
		rest = rest[:j]
	}
	amt, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return amt, true
}
