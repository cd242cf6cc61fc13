// Package employeetest provides an in-memory employee.Repository for tests
// of packages that depend on the credential store.
package employeetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

// Repo stores copies, so callers must Update to persist changes.
type Repo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]employee.Employee
}

func NewRepo() *Repo {
	return &Repo{rows: make(map[uuid.UUID]employee.Employee)}
}

// Put stores e as-is, assigning an id when missing.
func (r *Repo) Put(e *employee.Employee) *employee.Employee {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.rows[e.ID] = *e
	return e
}

func (r *Repo) Create(_ context.Context, e *employee.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if strings.EqualFold(row.Username, e.Username) {
			return apperr.Conflict("Username is already taken.")
		}
		if strings.EqualFold(row.Email, e.Email) {
			return apperr.Conflict("This email is already associated with another account.")
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	r.rows[e.ID] = *e
	return nil
}

func inScope(e employee.Employee, scope db.Scope) bool {
	switch scope {
	case db.DeletedOnly:
		return e.Status == employee.StatusDeleted
	case db.All:
		return true
	default:
		return e.Status != employee.StatusDeleted
	}
}

func (r *Repo) Get(_ context.Context, id uuid.UUID, scope db.Scope) (*employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok || !inScope(e, scope) {
		return nil, apperr.NotFound("User not found.")
	}
	return &e, nil
}

func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	return r.Get(ctx, id, db.ActiveOnly)
}

func (r *Repo) GetByLogin(_ context.Context, login string) (*employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.Status == employee.StatusDeleted {
			continue
		}
		if strings.EqualFold(e.Username, login) || strings.EqualFold(e.Email, login) {
			out := e
			return &out, nil
		}
	}
	return nil, apperr.NotFound("User not found.")
}

func (r *Repo) GetByEmail(_ context.Context, email string) (*employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.Status != employee.StatusDeleted && strings.EqualFold(e.Email, email) {
			out := e
			return &out, nil
		}
	}
	return nil, apperr.NotFound("User not found.")
}

func (r *Repo) Update(_ context.Context, e *employee.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[e.ID]; !ok {
		return apperr.NotFound("User not found.")
	}
	e.UpdatedAt = time.Now()
	r.rows[e.ID] = *e
	return nil
}

func (r *Repo) List(_ context.Context, scope db.Scope, role employee.Role, limit, offset int) ([]*employee.Employee, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*employee.Employee
	for _, e := range r.rows {
		if !inScope(e, scope) || (role != "" && e.Role != role) {
			continue
		}
		row := e
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
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
