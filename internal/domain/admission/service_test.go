package admission

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/domain/employee/employeetest"
	"github.com/futuremed/wardcare/internal/domain/notify"
	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/domain/patient/patienttest"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

// -- Mock Repository --

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Admission
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]Admission)}
}

func inScope(s State, scope db.Scope) bool {
	switch scope {
	case db.DeletedOnly:
		return s == StateDeleted
	case db.All:
		return true
	default:
		return s != StateDeleted
	}
}

func (m *memRepo) Create(_ context.Context, a *Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.rows[a.ID] = *a
	return nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID, scope db.Scope) (*Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || !inScope(a.State, scope) {
		return nil, apperr.NotFound("Admission not found.")
	}
	return &a, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*Admission, error) {
	return m.Get(ctx, id, scope)
}

func (m *memRepo) Update(_ context.Context, a *Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return apperr.NotFound("Admission not found.")
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memRepo) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *Admission
	for _, a := range m.rows {
		if a.PatientID != patientID || a.State != StateActive {
			continue
		}
		if best == nil || a.AdmittedAt.After(best.AdmittedAt) {
			cp := a
			best = &cp
		}
	}
	if best == nil {
		return nil, apperr.NotFound("Admission not found.")
	}
	return best, nil
}

func (m *memRepo) List(_ context.Context, scope db.Scope, limit, offset int) ([]*Admission, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Admission
	for _, a := range m.rows {
		if inScope(a.State, scope) {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdmittedAt.After(out[j].AdmittedAt) })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

type recordingOutbox struct {
	drafts []notify.Draft
}

func (o *recordingOutbox) Dispatch(_ context.Context, drafts []notify.Draft) {
	o.drafts = append(o.drafts, drafts...)
}

// -- Fixture --

type fixture struct {
	svc      *Service
	repo     *memRepo
	patients *patienttest.Repo
	catalog  *patienttest.Catalog
	staff    *employeetest.Repo
	outbox   *recordingOutbox
	admin    *employee.Employee
	doctor   *employee.Employee
	nurse    *employee.Employee
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemRepo(),
		patients: patienttest.NewRepo(),
		catalog:  patienttest.NewCatalog(),
		staff:    employeetest.NewRepo(),
		outbox:   &recordingOutbox{},
	}
	patients := patient.NewService(f.patients, f.catalog, db.NopTxRunner{})
	f.svc = NewService(f.repo, f.patients, patients, f.staff, f.outbox, db.NopTxRunner{})
	f.svc.now = func() time.Time { return time.Date(2026, 4, 9, 8, 30, 0, 0, time.UTC) }

	f.admin = f.addStaff("Ward", "Admin", employee.RoleWardAdmin)
	f.doctor = f.addStaff("Gregory", "House", employee.RoleDoctor)
	f.nurse = f.addStaff("Florence", "Nightingale", employee.RoleNurse)
	return f
}

func (f *fixture) addStaff(first, last string, role employee.Role) *employee.Employee {
	return f.staff.Put(&employee.Employee{
		Username:  first,
		Email:     first + "@example.com",
		FirstName: first,
		LastName:  last,
		Role:      role,
		Status:    employee.StatusActive,
	})
}

func (f *fixture) addPatient(state patient.State) *patient.Patient {
	return f.patients.Put(&patient.Patient{FirstName: "Lerato", LastName: "Mokoena", State: state})
}

func (f *fixture) admit(t *testing.T, p *patient.Patient) *Admission {
	t.Helper()
	a, err := f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID: p.ID,
		DoctorID:  f.doctor.ID,
		NurseID:   f.nurse.ID,
	})
	require.NoError(t, err)
	return a
}

// -- Tests --

func TestAdmit(t *testing.T) {
	f := newFixture()
	p := f.addPatient(patient.StateActive)
	peanuts := &patient.CatalogItem{Kind: patient.KindAllergies, Name: "Peanuts"}
	require.NoError(t, f.catalog.Create(context.Background(), peanuts))

	a, err := f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID:  p.ID,
		DoctorID:   f.doctor.ID,
		NurseID:    f.nurse.ID,
		Selections: patient.Selections{AllergyIDs: []uuid.UUID{peanuts.ID}},
	})
	require.NoError(t, err)

	assert.Equal(t, StateActive, a.State)
	assert.Equal(t, DefaultNotes, a.Notes)
	assert.Equal(t, "Lerato Mokoena", a.PatientName)
	assert.Equal(t, patient.StateAdmitted, f.patients.StateOf(p.ID))

	sel, err := f.patients.GetSelections(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{peanuts.ID}, sel.AllergyIDs)

	require.Len(t, f.outbox.drafts, 2)
	assert.Equal(t, f.doctor.ID, f.outbox.drafts[0].ReceiverID)
	assert.Equal(t, "Patient Lerato Mokoena has been assigned to you by Ward Admin.", f.outbox.drafts[0].Message)
	assert.Contains(t, f.outbox.drafts[1].Message, "Admission Date: Apr 09, 2026.")
}

func TestAdmit_AlreadyAdmitted(t *testing.T) {
	f := newFixture()
	p := f.addPatient(patient.StateActive)
	f.admit(t, p)

	_, err := f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID: p.ID, DoctorID: f.doctor.ID, NurseID: f.nurse.ID,
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Patient is already admitted.", apperr.MessageOf(err))
	assert.Len(t, f.outbox.drafts, 2, "no notifications for the refused admission")
}

func TestAdmit_DischargedPatientReadmitted(t *testing.T) {
	f := newFixture()
	p := f.addPatient(patient.StateDischarged)
	f.admit(t, p)
	assert.Equal(t, patient.StateAdmitted, f.patients.StateOf(p.ID))
}

func TestAdmit_UnknownPatient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID: uuid.New(), DoctorID: f.doctor.ID, NurseID: f.nurse.ID,
	})
	assert.Equal(t, "Patient not found.", apperr.MessageOf(err))
}

func TestAdmit_StaffRoles(t *testing.T) {
	f := newFixture()
	p := f.addPatient(patient.StateActive)

	// Nurse offered as doctor.
	_, err := f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID: p.ID, DoctorID: f.nurse.ID, NurseID: f.nurse.ID,
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "Selected doctor is not an active doctor.", apperr.MessageOf(err))

	inactive := f.addStaff("Idle", "Doc", employee.RoleDoctor)
	inactive.Status = employee.StatusDeactivated
	f.staff.Put(inactive)
	_, err = f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID: p.ID, DoctorID: inactive.ID, NurseID: f.nurse.ID,
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Admit(context.Background(), f.admin.ID, AdmitInput{
		PatientID: p.ID, DoctorID: f.doctor.ID, NurseID: uuid.New(),
	})
	assert.Equal(t, "Selected nurse not found.", apperr.MessageOf(err))
	assert.Equal(t, patient.StateActive, f.patients.StateOf(p.ID))
}

func TestAdmit_UnknownSenderIsSystem(t *testing.T) {
	f := newFixture()
	p := f.addPatient(patient.StateActive)
	_, err := f.svc.Admit(context.Background(), uuid.Nil, AdmitInput{
		PatientID: p.ID, DoctorID: f.doctor.ID, NurseID: f.nurse.ID,
	})
	require.NoError(t, err)
	assert.Contains(t, f.outbox.drafts[0].Message, "by System.")
}

func TestEdit_NotifiesOnlyOnStaffChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.addPatient(patient.StateActive)
	a := f.admit(t, p)
	f.outbox.drafts = nil

	_, err := f.svc.Edit(ctx, f.admin.ID, a.ID, EditInput{DoctorID: f.doctor.ID, NurseID: f.nurse.ID})
	require.NoError(t, err)
	assert.Empty(t, f.outbox.drafts)

	other := f.addStaff("Meredith", "Grey", employee.RoleDoctor)
	edited, err := f.svc.Edit(ctx, f.admin.ID, a.ID, EditInput{DoctorID: other.ID, NurseID: f.nurse.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, edited.DoctorID)

	require.Len(t, f.outbox.drafts, 2)
	assert.Equal(t, other.ID, f.outbox.drafts[0].ReceiverID)
	assert.Equal(t, "Patient Lerato Mokoena's admission has been updated.", f.outbox.drafts[0].Message)
	assert.Equal(t, notify.KindAdmissionUpdate, f.outbox.drafts[0].Kind)
}

func TestEdit_ReplacesSelections(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.addPatient(patient.StateActive)
	asthma := &patient.CatalogItem{Kind: patient.KindConditions, Name: "Asthma"}
	require.NoError(t, f.catalog.Create(ctx, asthma))
	a, err := f.svc.Admit(ctx, f.admin.ID, AdmitInput{
		PatientID: p.ID, DoctorID: f.doctor.ID, NurseID: f.nurse.ID,
		Selections: patient.Selections{ConditionIDs: []uuid.UUID{asthma.ID}},
	})
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, f.admin.ID, a.ID, EditInput{DoctorID: f.doctor.ID, NurseID: f.nurse.ID})
	require.NoError(t, err)
	sel, err := f.patients.GetSelections(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, sel.ConditionIDs)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.addPatient(patient.StateActive)
	a := f.admit(t, p)

	require.NoError(t, f.svc.SoftDelete(ctx, a.ID))
	// Deleting does not touch the patient.
	assert.Equal(t, patient.StateAdmitted, f.patients.StateOf(p.ID))
	_, err := f.svc.Get(ctx, a.ID, db.ActiveOnly)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = f.svc.SoftDelete(ctx, a.ID)
	assert.Equal(t, "Admission not found or already deleted.", apperr.MessageOf(err))

	_, err = f.svc.Edit(ctx, f.admin.ID, a.ID, EditInput{DoctorID: f.doctor.ID, NurseID: f.nurse.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, f.svc.Restore(ctx, a.ID))
	got, err := f.svc.Get(ctx, a.ID, db.ActiveOnly)
	require.NoError(t, err)
	assert.Equal(t, StateActive, got.State)

	// Restoring an active admission is a no-op.
	require.NoError(t, f.svc.Restore(ctx, a.ID))
	assert.True(t, apperr.Is(f.svc.Restore(ctx, uuid.New()), apperr.KindNotFound))
}

func TestList_Scopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.admit(t, f.addPatient(patient.StateActive))
	f.admit(t, f.addPatient(patient.StateActive))
	require.NoError(t, f.svc.SoftDelete(ctx, a.ID))

	_, total, err := f.svc.List(ctx, db.ActiveOnly, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = f.svc.List(ctx, db.DeletedOnly, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = f.svc.List(ctx, db.All, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
