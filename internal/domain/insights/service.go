// Package insights aggregates registration and disease statistics across
// all patient records.
package insights

import (
	"context"
	"strings"

	"github.com/lifeline/lifeline/internal/domain/ledger"
	"github.com/lifeline/lifeline/internal/domain/registry"
)

// ageBuckets fixes the histogram bucket order for reports.
var ageBuckets = []string{"0-10", "11-20", "21-30", "31-40", "41-50", "51-60", "61+"}

// Overview is the hospital-wide statistics snapshot.
type Overview struct {
	TotalPatients int            `json:"total_patients"`
	AverageAge    int            `json:"average_age"`
	AgeGroups     map[string]int `json:"age_groups"`
	DiseaseCounts map[string]int `json:"disease_counts"`
}

type Service struct {
	patients registry.PatientRepository
	ledger   *ledger.Store
}

func NewService(patients registry.PatientRepository, led *ledger.Store) *Service {
	return &Service{patients: patients, ledger: led}
}

// Snapshot computes the overview from the master records plus the
// Diseases header line of each patient's ledger. Missing ledgers
// contribute no disease data.
func (s *Service) Snapshot(ctx context.Context) (*Overview, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		AgeGroups:     map[string]int{},
		DiseaseCounts: map[string]int{},
	}
	for _, bucket := range ageBuckets {
		ov.AgeGroups[bucket] = 0
	}

	ageSum := 0
	for _, p := range patients {
		ov.TotalPatients++
		ageSum += p.Age
		ov.AgeGroups[bucketFor(p.Age)]++

		diseases, ok := s.ledger.HeaderField(p.ID, "Diseases")
		if !ok || diseases == "" || diseases == "None" {
			continue
		}
		for _, d := range strings.Split(diseases, ",") {
			d = strings.TrimSpace(d)
			if d != "" {
				ov.DiseaseCounts[d]++
			}
		}
	}
	if ov.TotalPatients > 0 {
		ov.AverageAge = ageSum / ov.TotalPatients
	}
	return ov, nil
}

func bucketFor(age int) string {
	switch {
	case age <= 10:
		return "0-10"
	case age <= 20:
		return "11-20"
	case age <= 30:
		return "21-30"
	case age <= 40:
		return "31-40"
	case age <= 50:
		return "41-50"
	case age <= 60:
		return "51-60"
	default:
		return "61+"
	}
}
