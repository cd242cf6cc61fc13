// Package patienttest provides in-memory patient repositories for tests of
// the admission and bed assignment flows.
package patienttest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/platform/apperr"
	"github.com/futuremed/wardcare/internal/platform/db"
)

type Repo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]patient.Patient
	selections map[uuid.UUID]patient.Selections
}

func NewRepo() *Repo {
	return &Repo{
		rows:       make(map[uuid.UUID]patient.Patient),
		selections: make(map[uuid.UUID]patient.Selections),
	}
}

// Put stores p as-is, assigning an id when missing.
func (r *Repo) Put(p *patient.Patient) *patient.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.State == "" {
		p.State = patient.StateActive
	}
	r.rows[p.ID] = *p
	return p
}

// StateOf returns the stored state, or "" when the patient is unknown.
func (r *Repo) StateOf(id uuid.UUID) patient.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].State
}

func inScope(s patient.State, scope db.Scope) bool {
	switch scope {
	case db.DeletedOnly:
		return s == patient.StateDeleted
	case db.All:
		return true
	default:
		return s != patient.StateDeleted
	}
}

func (r *Repo) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.rows[p.ID] = *p
	return nil
}

func (r *Repo) Get(_ context.Context, id uuid.UUID, scope db.Scope) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || !inScope(p.State, scope) {
		return nil, apperr.NotFound("Patient not found.")
	}
	return &p, nil
}

func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return r.Get(ctx, id, db.ActiveOnly)
}

func (r *Repo) Update(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; !ok {
		return apperr.NotFound("Patient not found.")
	}
	p.UpdatedAt = time.Now()
	r.rows[p.ID] = *p
	return nil
}

func (r *Repo) SetState(_ context.Context, id uuid.UUID, state patient.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return apperr.NotFound("Patient not found.")
	}
	p.State = state
	r.rows[id] = p
	return nil
}

func (r *Repo) List(_ context.Context, scope db.Scope, state patient.State, limit, offset int) ([]*patient.Patient, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*patient.Patient
	for _, p := range r.rows {
		if !inScope(p.State, scope) || (state != "" && p.State != state) {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].LastName) < strings.ToLower(out[j].LastName)
	})
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

func (r *Repo) GetSelections(_ context.Context, patientID uuid.UUID) (*patient.Selections, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sel := r.selections[patientID]
	return &sel, nil
}

func (r *Repo) ReplaceSelections(_ context.Context, patientID uuid.UUID, sel patient.Selections) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections[patientID] = sel
	return nil
}

// Catalog is an in-memory patient.CatalogRepository.
type Catalog struct {
	mu    sync.Mutex
	items map[uuid.UUID]patient.CatalogItem
}

func NewCatalog() *Catalog {
	return &Catalog{items: make(map[uuid.UUID]patient.CatalogItem)}
}

func (c *Catalog) Create(_ context.Context, item *patient.CatalogItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.items {
		if existing.Kind == item.Kind && strings.EqualFold(existing.Name, item.Name) {
			return apperr.Conflict("An entry with this name already exists.")
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()
	c.items[item.ID] = *item
	return nil
}

func (c *Catalog) List(_ context.Context, kind patient.CatalogKind) ([]*patient.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*patient.CatalogItem
	for _, item := range c.items {
		if item.Kind == kind {
			cp := item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Catalog) CountExisting(_ context.Context, kind patient.CatalogKind, ids []uuid.UUID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range ids {
		if item, ok := c.items[id]; ok && item.Kind == kind {
			n++
		}
	}
	return n, nil
}
