package registry

import (
	"context"

	"github.com/lifeline/lifeline/internal/platform/flatfile"
)

// Master file names within the data directory.
const (
	PatientsFile = "Users.txt"
	DoctorsFile  = "Doctors.txt"
)

type patientRepoFlatfile struct {
	files *flatfile.Store
}

// NewPatientRepo returns a PatientRepository over the shared master file.
func NewPatientRepo(files *flatfile.Store) PatientRepository {
	return &patientRepoFlatfile{files: files}
}

func (r *patientRepoFlatfile) Create(_ context.Context, p *Patient) error {
	for _, rec := range r.files.ReadRecords(PatientsFile) {
		if len(rec) > 0 && rec[0] == p.ID {
			return ErrDuplicateID
		}
	}
	return r.files.AppendRecord(PatientsFile, p.Record())
}

func (r *patientRepoFlatfile) GetByID(_ context.Context, id string) (*Patient, error) {
	for _, rec := range r.files.ReadRecords(PatientsFile) {
		if len(rec) > 0 && rec[0] == id {
			if p, ok := PatientFromRecord(rec); ok {
				return p, nil
			}
		}
	}
	return nil, ErrPatientNotFound
}

func (r *patientRepoFlatfile) List(_ context.Context) ([]*Patient, error) {
	var patients []*Patient
	for _, rec := range r.files.ReadRecords(PatientsFile) {
		// Malformed lines are skipped, not fatal.
		if p, ok := PatientFromRecord(rec); ok {
			patients = append(patients, p)
		}
	}
	return patients, nil
}

// UpdateContact rewrites the whole master file with the one field changed.
// The store's rename-based rewrite keeps the file whole under a crash.
func (r *patientRepoFlatfile) UpdateContact(_ context.Context, id, contact string) error {
	records := r.files.ReadRecords(PatientsFile)
	found := false
	for _, rec := range records {
		if len(rec) > 4 && rec[0] == id {
			rec[4] = contact
			found = true
		}
	}
	if !found {
		return ErrPatientNotFound
	}
	return r.files.RewriteRecords(PatientsFile, records)
}

type doctorRepoFlatfile struct {
	files *flatfile.Store
}

// NewDoctorRepo returns a DoctorRepository over the shared master file.
func NewDoctorRepo(files *flatfile.Store) DoctorRepository {
	return &doctorRepoFlatfile{files: files}
}

func (r *doctorRepoFlatfile) Create(_ context.Context, d *Doctor) error {
	for _, rec := range r.files.ReadRecords(DoctorsFile) {
		if len(rec) > 0 && rec[0] == d.ID {
			return ErrDuplicateID
		}
	}
	return r.files.AppendRecord(DoctorsFile, d.Record())
}

func (r *doctorRepoFlatfile) GetByID(_ context.Context, id string) (*Doctor, error) {
	for _, rec := range r.files.ReadRecords(DoctorsFile) {
		if len(rec) > 0 && rec[0] == id {
			if d, ok := DoctorFromRecord(rec); ok {
				return d, nil
			}
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *doctorRepoFlatfile) List(_ context.Context) ([]*Doctor, error) {
	var doctors []*Doctor
	for _, rec := range r.files.ReadRecords(DoctorsFile) {
		if d, ok := DoctorFromRecord(rec); ok {
			doctors = append(doctors, d)
		}
	}
	return doctors, nil
}

func (r *doctorRepoFlatfile) FirstBySpecialization(_ context.Context, specialization string) (*Doctor, error) {
	for _, rec := range r.files.ReadRecords(DoctorsFile) {
		if len(rec) > 2 && rec[2] == specialization {
			if d, ok := DoctorFromRecord(rec); ok {
				return d, nil
			}
		}
	}
	return nil, ErrDoctorNotFound
}
