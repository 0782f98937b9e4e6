package registry

import (
	"context"
	"errors"
)

var (
	ErrPatientNotFound = errors.New("registry: patient not found")
	ErrDoctorNotFound  = errors.New("registry: doctor not found")
	ErrDuplicateID     = errors.New("registry: id already registered")
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	UpdateContact(ctx context.Context, id, contact string) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	List(ctx context.Context) ([]*Doctor, error)
	// FirstBySpecialization returns the first doctor in file order with
	// the given specialization. Assignment deliberately takes the first
	// match; there is no load balancing across doctors.
	FirstBySpecialization(ctx context.Context, specialization string) (*Doctor, error)
}
