package registry

import (
	"testing"
	"unicode/utf8"
)

func TestNewPatientID(t *testing.T) {
	tests := []struct {
		name string
		age  int
		want string
	}{
		{"John Carter", 25, "patjoh25"},
		{"Al Bo", 7, "patalb7"},
		{"MEERA NAIR", 40, "patmee40"},
		{"Émile Zola", 62, "patémi62"},
		{"Žofia Novak", 33, "patžof33"},
	}
	for _, tt := range tests {
		got := NewPatientID(tt.name, tt.age)
		if got != tt.want {
			t.Errorf("NewPatientID(%q, %d) = %q, want %q", tt.name, tt.age, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("NewPatientID(%q, %d) produced invalid UTF-8: %q", tt.name, tt.age, got)
		}
	}
}

func TestNewDoctorID(t *testing.T) {
	if got := NewDoctorID("Sarah Mills", 41); got != "docsar41" {
		t.Errorf("NewDoctorID = %q, want docsar41", got)
	}
}

func TestNewPasswordKey(t *testing.T) {
	if got := NewPasswordKey("John Carter", 25); got != "John@25" {
		t.Errorf("NewPasswordKey = %q, want John@25", got)
	}
}

func TestPatientRecordRoundTrip(t *testing.T) {
	p := &Patient{ID: "patjoh25", PasswordKey: "John@25", Age: 25, Name: "John Carter", Contact: "9876543210"}
	got, ok := PatientFromRecord(p.Record())
	if !ok {
		t.Fatal("record did not parse back")
	}
	if *got != *p {
		t.Errorf("round trip changed patient: %+v", got)
	}
}

func TestPatientFromRecordTolerantOfMissingContact(t *testing.T) {
	p, ok := PatientFromRecord([]string{"patjoh25", "John@25", "25", "John Carter"})
	if !ok {
		t.Fatal("four-field record must parse")
	}
	if p.Contact != "" {
		t.Errorf("contact = %q, want empty", p.Contact)
	}
}

func TestDoctorRecordRoundTrip(t *testing.T) {
	d := &Doctor{
		ID:              "docsar41",
		Name:            "Sarah Mills",
		Specialization:  "Cardiologist",
		Gender:          "Female",
		Qualification:   "MD",
		ExperienceYears: 12,
		Contact:         "9123456780",
	}
	rec := d.Record()
	if rec[5] != "12 yrs" {
		t.Errorf("experience field = %q, want \"12 yrs\"", rec[5])
	}
	got, ok := DoctorFromRecord(rec)
	if !ok {
		t.Fatal("record did not parse back")
	}
	if *got != *d {
		t.Errorf("round trip changed doctor: %+v", got)
	}
}

func TestDoctorFromRecordRejectsShortRecord(t *testing.T) {
	if _, ok := DoctorFromRecord([]string{"docsar41", "Sarah Mills"}); ok {
		t.Fatal("short record must not parse")
	}
}
