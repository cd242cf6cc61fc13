package occupancy

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futuremed/wardcare/internal/domain/admission"
	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/domain/employee/employeetest"
	"github.com/futuremed/wardcare/internal/domain/notify"
	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/domain/patient/patienttest"
	"github.com/futuremed/wardcare/internal/domain/ward"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

// -- Mock Repositories --

// memAssignments enforces the same one-active-per-bed and
// one-active-per-patient rules as the partial unique indexes.
type memAssignments struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Assignment
}

func newMemAssignments() *memAssignments {
	return &memAssignments{rows: make(map[uuid.UUID]Assignment)}
}

func (m *memAssignments) checkUnique(a *Assignment) error {
	if a.State != StateActive {
		return nil
	}
	for _, row := range m.rows {
		if row.ID == a.ID || row.State != StateActive {
			continue
		}
		if row.BedID == a.BedID {
			return ErrBedTaken
		}
		if row.PatientID == a.PatientID {
			return ErrPatientAssigned
		}
	}
	return nil
}

func (m *memAssignments) Create(_ context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := m.checkUnique(a); err != nil {
		return err
	}
	m.rows[a.ID] = *a
	return nil
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

func (m *memAssignments) Get(_ context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || !inScope(a.State, scope) {
		return nil, apperr.NotFound("Bed assignment not found.")
	}
	return &a, nil
}

func (m *memAssignments) GetForUpdate(ctx context.Context, id uuid.UUID, scope db.Scope) (*Assignment, error) {
	return m.Get(ctx, id, scope)
}

func (m *memAssignments) Update(_ context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return apperr.NotFound("Bed assignment not found.")
	}
	if err := m.checkUnique(a); err != nil {
		return err
	}
	m.rows[a.ID] = *a
	return nil
}

func (m *memAssignments) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.PatientID == patientID && a.State == StateActive {
			return &a, nil
		}
	}
	return nil, apperr.NotFound("Bed assignment not found.")
}

func (m *memAssignments) BedTaken(_ context.Context, bedID, exceptID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.BedID == bedID && a.State == StateActive && a.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAssignments) List(_ context.Context, scope db.Scope, limit, offset int) ([]*Assignment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Assignment
	for _, a := range m.rows {
		if inScope(a.State, scope) {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
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

func (m *memAssignments) activeCount(bedID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.BedID == bedID && a.State == StateActive {
			n++
		}
	}
	return n
}

type memBeds struct {
	mu   sync.Mutex
	rows map[uuid.UUID]ward.Bed
}

func (m *memBeds) put(number string) *ward.Bed {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := ward.Bed{
		ID:        uuid.New(),
		WardID:    uuid.New(),
		WardName:  "General",
		BedNumber: number,
		Occupancy: ward.BedAvailable,
		State:     ward.RecordActive,
	}
	m.rows[b.ID] = b
	return &b
}

func (m *memBeds) occupancy(id uuid.UUID) ward.BedState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Occupancy
}

func (m *memBeds) Get(_ context.Context, id uuid.UUID, scope db.Scope) (*ward.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok || (scope == db.ActiveOnly && b.State == ward.RecordDeleted) {
		return nil, apperr.NotFound("Bed not found.")
	}
	return &b, nil
}

func (m *memBeds) GetForUpdate(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	return m.Get(ctx, id, db.ActiveOnly)
}

func (m *memBeds) SetOccupancy(_ context.Context, id uuid.UUID, state ward.BedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return apperr.NotFound("Bed not found.")
	}
	b.Occupancy = state
	m.rows[id] = b
	return nil
}

func (m *memBeds) ListAvailable(_ context.Context) ([]*ward.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ward.Bed
	for _, b := range m.rows {
		if b.Assignable() {
			cp := b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BedNumber < out[j].BedNumber })
	return out, nil
}

type memAdmissions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]admission.Admission
}

func (m *memAdmissions) GetForUpdate(_ context.Context, id uuid.UUID, scope db.Scope) (*admission.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || (scope == db.ActiveOnly && a.State != admission.StateActive) {
		return nil, apperr.NotFound("Admission not found.")
	}
	return &a, nil
}

func (m *memAdmissions) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*admission.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *admission.Admission
	for _, a := range m.rows {
		a := a
		if a.PatientID != patientID || a.State != admission.StateActive {
			continue
		}
		if latest == nil || a.AdmittedAt.After(latest.AdmittedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("Admission not found.")
	}
	return latest, nil
}

func (m *memAdmissions) Update(_ context.Context, a *admission.Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[a.ID] = *a
	return nil
}

type recordingOutbox struct {
	mu     sync.Mutex
	drafts []notify.Draft
}

func (o *recordingOutbox) Dispatch(_ context.Context, drafts []notify.Draft) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drafts = append(o.drafts, drafts...)
}

// -- Fixture --

type fixture struct {
	svc         *Service
	assignments *memAssignments
	beds        *memBeds
	patients    *patienttest.Repo
	admissions  *memAdmissions
	staff       *employeetest.Repo
	outbox      *recordingOutbox
	doctor      uuid.UUID
	nurse       uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		assignments: newMemAssignments(),
		beds:        &memBeds{rows: make(map[uuid.UUID]ward.Bed)},
		patients:    patienttest.NewRepo(),
		admissions:  &memAdmissions{rows: make(map[uuid.UUID]admission.Admission)},
		staff:       employeetest.NewRepo(),
		outbox:      &recordingOutbox{},
	}
	f.svc = NewService(f.assignments, f.beds, f.patients, f.admissions, f.staff, f.outbox, db.NopTxRunner{})
	f.svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	f.doctor = f.staff.Put(&employee.Employee{FirstName: "Gregory", LastName: "House", Role: employee.RoleDoctor, Status: employee.StatusActive}).ID
	f.nurse = f.staff.Put(&employee.Employee{FirstName: "Florence", LastName: "Nightingale", Role: employee.RoleNurse, Status: employee.StatusActive}).ID
	return f
}

// admitted registers a patient with an active admission.
func (f *fixture) admitted(name string) (*patient.Patient, *admission.Admission) {
	p := f.patients.Put(&patient.Patient{FirstName: name, LastName: "Test", State: patient.StateAdmitted})
	a := admission.Admission{
		ID:          uuid.New(),
		PatientID:   p.ID,
		PatientName: p.FullName(),
		DoctorID:    f.doctor,
		NurseID:     f.nurse,
		AdmittedAt:  time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC),
		Notes:       admission.DefaultNotes,
		State:       admission.StateActive,
	}
	f.admissions.rows[a.ID] = a
	return p, &a
}

// readmit opens a new admission for p, admitted at the given time.
func (f *fixture) readmit(t *testing.T, p *patient.Patient, at time.Time) *admission.Admission {
	t.Helper()
	require.NoError(t, f.patients.SetState(context.Background(), p.ID, patient.StateAdmitted))
	a := admission.Admission{
		ID:          uuid.New(),
		PatientID:   p.ID,
		PatientName: p.FullName(),
		DoctorID:    f.doctor,
		NurseID:     f.nurse,
		AdmittedAt:  at,
		Notes:       admission.DefaultNotes,
		State:       admission.StateActive,
	}
	f.admissions.rows[a.ID] = a
	return &a
}

func (f *fixture) assign(t *testing.T, p *patient.Patient, bed *ward.Bed) *Assignment {
	t.Helper()
	a, err := f.svc.Assign(context.Background(), AssignInput{PatientID: p.ID, BedID: &bed.ID})
	require.NoError(t, err)
	return a
}

// -- Tests --

func TestAssign_AdmittedPatientGetsOneBed(t *testing.T) {
	f := newFixture()
	p, _ := f.admitted("Pat")
	bedX := f.beds.put("X")
	bedY := f.beds.put("Y")

	a := f.assign(t, p, bedX)
	assert.Equal(t, StateActive, a.State)
	assert.Equal(t, "X", a.BedNumber)
	assert.Equal(t, ward.BedOccupied, f.beds.occupancy(bedX.ID))

	_, err := f.svc.Assign(context.Background(), AssignInput{PatientID: p.ID, BedID: &bedY.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Patient already has an active bed assignment.", apperr.MessageOf(err))
	assert.Equal(t, ward.BedAvailable, f.beds.occupancy(bedY.ID))
}

func TestAssign_PatientNotAdmitted(t *testing.T) {
	f := newFixture()
	bed := f.beds.put("1")
	registered := f.patients.Put(&patient.Patient{FirstName: "Reg", LastName: "Istered"})

	_, err := f.svc.Assign(context.Background(), AssignInput{PatientID: registered.ID, BedID: &bed.ID})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, "Patient is not currently admitted.", apperr.MessageOf(err))

	_, err = f.svc.Assign(context.Background(), AssignInput{PatientID: uuid.New(), BedID: &bed.ID})
	assert.Equal(t, "Patient not found.", apperr.MessageOf(err))
}

func TestAssign_BedUnavailable(t *testing.T) {
	f := newFixture()
	p1, _ := f.admitted("One")
	p2, _ := f.admitted("Two")
	bed := f.beds.put("1")
	f.assign(t, p1, bed)

	_, err := f.svc.Assign(context.Background(), AssignInput{PatientID: p2.ID, BedID: &bed.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Selected bed has already been assigned to another patient.", apperr.MessageOf(err))

	maint := f.beds.put("M")
	require.NoError(t, f.beds.SetOccupancy(context.Background(), maint.ID, ward.BedUnderMaintenance))
	_, err = f.svc.Assign(context.Background(), AssignInput{PatientID: p2.ID, BedID: &maint.ID})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestAssign_PicksFirstAvailableBed(t *testing.T) {
	f := newFixture()
	p1, _ := f.admitted("One")
	p2, _ := f.admitted("Two")
	f.beds.put("B")
	f.beds.put("A")

	a, err := f.svc.Assign(context.Background(), AssignInput{PatientID: p1.ID})
	require.NoError(t, err)
	assert.Equal(t, "A", a.BedNumber)

	a, err = f.svc.Assign(context.Background(), AssignInput{PatientID: p2.ID})
	require.NoError(t, err)
	assert.Equal(t, "B", a.BedNumber)

	p3, _ := f.admitted("Three")
	_, err = f.svc.Assign(context.Background(), AssignInput{PatientID: p3.ID})
	assert.Equal(t, "No beds are currently available.", apperr.MessageOf(err))
}

// Two patients race for the same free bed: exactly one wins.
func TestAssign_ConcurrentSameBed(t *testing.T) {
	f := newFixture()
	bed := f.beds.put("Z")
	const n = 8
	patients := make([]*patient.Patient, n)
	for i := range patients {
		patients[i], _ = f.admitted("P")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, p := range patients {
		wg.Add(1)
		go func(p *patient.Patient) {
			defer wg.Done()
			_, err := f.svc.Assign(context.Background(), AssignInput{PatientID: p.ID, BedID: &bed.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.assignments.activeCount(bed.ID))
}

func TestEdit_MovesBed(t *testing.T) {
	f := newFixture()
	p, _ := f.admitted("Pat")
	oldBed := f.beds.put("1")
	newBed := f.beds.put("2")
	a := f.assign(t, p, oldBed)

	moved, err := f.svc.Edit(context.Background(), a.ID, newBed.ID)
	require.NoError(t, err)
	assert.Equal(t, newBed.ID, moved.BedID)
	assert.Equal(t, ward.BedAvailable, f.beds.occupancy(oldBed.ID))
	assert.Equal(t, ward.BedOccupied, f.beds.occupancy(newBed.ID))
}

func TestEdit_TakenBedLeavesBothBedsAlone(t *testing.T) {
	f := newFixture()
	p1, _ := f.admitted("One")
	p2, _ := f.admitted("Two")
	bed1 := f.beds.put("1")
	bed2 := f.beds.put("2")
	a := f.assign(t, p1, bed1)
	f.assign(t, p2, bed2)

	_, err := f.svc.Edit(context.Background(), a.ID, bed2.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, ward.BedOccupied, f.beds.occupancy(bed1.ID))
	assert.Equal(t, 1, f.assignments.activeCount(bed1.ID))
}

func TestEdit_SameBedIsNoop(t *testing.T) {
	f := newFixture()
	p, _ := f.admitted("Pat")
	bed := f.beds.put("1")
	a := f.assign(t, p, bed)

	got, err := f.svc.Edit(context.Background(), a.ID, bed.ID)
	require.NoError(t, err)
	assert.Equal(t, bed.ID, got.BedID)
	assert.Equal(t, ward.BedOccupied, f.beds.occupancy(bed.ID))
}

func TestEdit_InactiveAssignment(t *testing.T) {
	f := newFixture()
	p, _ := f.admitted("Pat")
	a := f.assign(t, p, f.beds.put("1"))
	require.NoError(t, f.svc.Delete(context.Background(), a.ID))

	_, err := f.svc.Edit(context.Background(), a.ID, f.beds.put("2").ID)
	assert.Equal(t, "Cannot edit inactive bed assignment.", apperr.MessageOf(err))
	_, err = f.svc.Edit(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, "Bed assignment not found.", apperr.MessageOf(err))
}

func TestDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, _ := f.admitted("Pat")
	bed := f.beds.put("7")
	a := f.assign(t, p, bed)

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	assert.Equal(t, ward.BedAvailable, f.beds.occupancy(bed.ID))
	err := f.svc.Delete(ctx, a.ID)
	assert.Equal(t, "Bed assignment not found or already deleted.", apperr.MessageOf(err))

	require.NoError(t, f.svc.Restore(ctx, a.ID))
	assert.Equal(t, ward.BedOccupied, f.beds.occupancy(bed.ID))
	got, err := f.svc.Get(ctx, a.ID, db.ActiveOnly)
	require.NoError(t, err)
	assert.Equal(t, StateActive, got.State)
}

func TestRestore_BedTaken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p1, _ := f.admitted("One")
	p2, _ := f.admitted("Two")
	bed := f.beds.put("7")
	a := f.assign(t, p1, bed)
	require.NoError(t, f.svc.Delete(ctx, a.ID))
	f.assign(t, p2, bed)

	err := f.svc.Restore(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, "Bed 7 is already assigned to another patient.", apperr.MessageOf(err))
}

func TestRestore_PatientHasAnotherBed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, _ := f.admitted("Pat")
	a := f.assign(t, p, f.beds.put("1"))
	require.NoError(t, f.svc.Delete(ctx, a.ID))
	f.assign(t, p, f.beds.put("2"))

	err := f.svc.Restore(ctx, a.ID)
	assert.Equal(t, "Patient already has an active bed assignment.", apperr.MessageOf(err))
}

func TestDischarge(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, adm := f.admitted("Pat")
	bed := f.beds.put("1")
	a := f.assign(t, p, bed)

	require.NoError(t, f.svc.Discharge(ctx, uuid.Nil, adm.ID))

	assert.Equal(t, patient.StateDischarged, f.patients.StateOf(p.ID))
	assert.Equal(t, ward.BedAvailable, f.beds.occupancy(bed.ID))
	got, err := f.svc.Get(ctx, a.ID, db.All)
	require.NoError(t, err)
	assert.Equal(t, StateDeleted, got.State)

	stored := f.admissions.rows[adm.ID]
	assert.Equal(t, admission.StateActive, stored.State, "admission stays active")
	require.NotNil(t, stored.DischargedAt)

	require.Len(t, f.outbox.drafts, 2)
	assert.Equal(t, "Patient Pat Test has been discharged.", f.outbox.drafts[0].Message)
	assert.Equal(t, "System", f.outbox.drafts[0].SenderName)

	err = f.svc.Discharge(ctx, uuid.Nil, adm.ID)
	assert.Equal(t, "Admission not found or already discharged.", apperr.MessageOf(err))
	assert.Len(t, f.outbox.drafts, 2)
}

func TestDischarge_AfterReadmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, first := f.admitted("Pat")
	f.assign(t, p, f.beds.put("1"))
	require.NoError(t, f.svc.Discharge(ctx, uuid.Nil, first.ID))
	firstDischarge := f.admissions.rows[first.ID].DischargedAt
	require.NotNil(t, firstDischarge)

	second := f.readmit(t, p, time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC))
	current, err := f.admissions.ActiveForPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID, "latest admission is the current one")

	bed := f.beds.put("2")
	f.assign(t, p, bed)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC) }
	drafts := len(f.outbox.drafts)

	err = f.svc.Discharge(ctx, uuid.Nil, first.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "Admission not found or already discharged.", apperr.MessageOf(err))
	assert.Equal(t, *firstDischarge, *f.admissions.rows[first.ID].DischargedAt)
	assert.Equal(t, patient.StateAdmitted, f.patients.StateOf(p.ID))
	assert.Equal(t, ward.BedOccupied, f.beds.occupancy(bed.ID))
	assert.Len(t, f.outbox.drafts, drafts)

	require.NoError(t, f.svc.Discharge(ctx, uuid.Nil, second.ID))
	require.NotNil(t, f.admissions.rows[second.ID].DischargedAt)
	assert.Equal(t, patient.StateDischarged, f.patients.StateOf(p.ID))
	assert.Equal(t, ward.BedAvailable, f.beds.occupancy(bed.ID))
}

func TestDischarge_StaleAdmissionOfAdmittedPatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, first := f.admitted("Pat")
	second := f.readmit(t, p, time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC))
	f.assign(t, p, f.beds.put("1"))

	err := f.svc.Discharge(ctx, uuid.Nil, first.ID)
	assert.Equal(t, "Admission not found or already discharged.", apperr.MessageOf(err))
	assert.Nil(t, f.admissions.rows[first.ID].DischargedAt)
	require.NoError(t, f.svc.Discharge(ctx, uuid.Nil, second.ID))
}

func TestDischarge_NoActiveBed(t *testing.T) {
	f := newFixture()
	p, adm := f.admitted("Pat")

	err := f.svc.Discharge(context.Background(), uuid.Nil, adm.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, "Patient does not have an active bed assignment.", apperr.MessageOf(err))
	assert.Equal(t, patient.StateAdmitted, f.patients.StateOf(p.ID))
	assert.Empty(t, f.outbox.drafts)
}

func TestDischarge_DeletedAdmission(t *testing.T) {
	f := newFixture()
	_, adm := f.admitted("Pat")
	adm.State = admission.StateDeleted
	f.admissions.rows[adm.ID] = *adm

	err := f.svc.Discharge(context.Background(), uuid.Nil, adm.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p1, _ := f.admitted("One")
	p2, _ := f.admitted("Two")
	a := f.assign(t, p1, f.beds.put("1"))
	f.assign(t, p2, f.beds.put("2"))
	require.NoError(t, f.svc.Delete(ctx, a.ID))

	_, total, err := f.svc.List(ctx, db.ActiveOnly, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = f.svc.List(ctx, db.All, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
