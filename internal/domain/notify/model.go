package notify

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPatientAssignment Kind = "patient_assignment"
	KindPatientDischarge  Kind = "patient_discharge"
	KindAdmissionUpdate   Kind = "admission_update"
	KindEmergency         Kind = "emergency"
	KindSystem            Kind = "system"
	KindMessageReceived   Kind = "message_received"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPatientAssignment, KindPatientDischarge, KindAdmissionUpdate,
		KindEmergency, KindSystem, KindMessageReceived:
		return true
	}
	return false
}

// admissionScoped kinds link to the admission rather than the patient.
func (k Kind) admissionScoped() bool {
	return k == KindPatientAssignment || k == KindAdmissionUpdate
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification is a persisted in-app message addressed to one employee.
type Notification struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Message     string     `db:"message" json:"message"`
	SenderID    *uuid.UUID `db:"sender_id" json:"sender_id,omitempty"`
	SenderName  string     `db:"sender_name" json:"sender_name"`
	ReceiverID  uuid.UUID  `db:"receiver_id" json:"receiver_id"`
	Kind        Kind       `db:"kind" json:"kind"`
	Priority    Priority   `db:"priority" json:"priority"`
	AdmissionID *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	ActionURL   string     `db:"action_url" json:"action_url"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	Active      bool       `db:"is_active" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

func (n *Notification) IsRead() bool { return n.ReadAt != nil }

// Draft is a notification that has not been persisted yet. Domain operations
// return drafts and the Dispatcher delivers them once the operation commits.
type Draft struct {
	Title       string
	Message     string
	SenderID    *uuid.UUID
	SenderName  string
	ReceiverID  uuid.UUID
	Kind        Kind
	Priority    Priority
	AdmissionID *uuid.UUID
	PatientID   *uuid.UUID
}

// ActionURL is the client route a notification opens.
func (d Draft) ActionURL() string {
	if d.Kind.admissionScoped() && d.AdmissionID != nil {
		return "/admissions/" + d.AdmissionID.String()
	}
	if d.PatientID != nil {
		return "/patients/" + d.PatientID.String()
	}
	return ""
}

func (d Draft) notification() *Notification {
	return &Notification{
		Title:       d.Title,
		Message:     d.Message,
		SenderID:    d.SenderID,
		SenderName:  d.SenderName,
		ReceiverID:  d.ReceiverID,
		Kind:        d.Kind,
		Priority:    d.Priority,
		AdmissionID: d.AdmissionID,
		PatientID:   d.PatientID,
		ActionURL:   d.ActionURL(),
		Active:      true,
	}
}
