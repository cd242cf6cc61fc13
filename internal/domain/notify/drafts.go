package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const systemSender = "System"

// CareTeam identifies an admission and the staff it notifies.
type CareTeam struct {
	AdmissionID uuid.UUID
	PatientID   uuid.UUID
	PatientName string
	DoctorID    uuid.UUID
	NurseID     uuid.UUID
	AdmittedAt  time.Time
}

// Sender is the employee an operation is performed by. A zero Sender is
// reported as the system.
type Sender struct {
	ID   uuid.UUID
	Name string
}

func (s Sender) id() *uuid.UUID {
	if s.ID == uuid.Nil {
		return nil
	}
	id := s.ID
	return &id
}

func (s Sender) name() string {
	if s.Name == "" {
		return systemSender
	}
	return s.Name
}

func (t CareTeam) draft(receiver uuid.UUID, from Sender, kind Kind, prio Priority, title, msg string) Draft {
	admissionID, patientID := t.AdmissionID, t.PatientID
	return Draft{
		Title:       title,
		Message:     msg,
		SenderID:    from.id(),
		SenderName:  from.name(),
		ReceiverID:  receiver,
		Kind:        kind,
		Priority:    prio,
		AdmissionID: &admissionID,
		PatientID:   &patientID,
	}
}

// AssignmentDrafts tells the doctor and nurse they were given a new patient.
func AssignmentDrafts(t CareTeam, from Sender) []Draft {
	base := fmt.Sprintf("Patient %s has been assigned to you by %s.", t.PatientName, from.name())
	var out []Draft
	if t.DoctorID != uuid.Nil {
		out = append(out, t.draft(t.DoctorID, from, KindPatientAssignment, PriorityHigh,
			"New Patient Assignment", base))
	}
	if t.NurseID != uuid.Nil {
		nurseMsg := base + fmt.Sprintf(" Admission Date: %s. Please assist with patient care and monitoring.",
			t.AdmittedAt.Format("Jan 02, 2006"))
		out = append(out, t.draft(t.NurseID, from, KindPatientAssignment, PriorityHigh,
			"New Patient Assignment", nurseMsg))
	}
	return out
}

// UpdateDrafts sends msg to the admission's doctor and nurse.
func UpdateDrafts(t CareTeam, from Sender, msg string, prio Priority) []Draft {
	var out []Draft
	for _, receiver := range []uuid.UUID{t.DoctorID, t.NurseID} {
		if receiver == uuid.Nil {
			continue
		}
		out = append(out, t.draft(receiver, from, KindAdmissionUpdate, prio, "Admission Update", msg))
	}
	return out
}

func AdmissionUpdatedDrafts(t CareTeam, from Sender) []Draft {
	return UpdateDrafts(t, from, fmt.Sprintf("Patient %s's admission has been updated.", t.PatientName), PriorityNormal)
}

func DischargeDrafts(t CareTeam, from Sender) []Draft {
	return UpdateDrafts(t, from, fmt.Sprintf("Patient %s has been discharged.", t.PatientName), PriorityNormal)
}
