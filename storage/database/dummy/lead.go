package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/lead"
)

var leadOrdering = map[string]comparator[lead.Lead]{
	"name":        func(a, b lead.Lead) int { return cmpString(a.Name, b.Name) },
	"lead_status": func(a, b lead.Lead) int { return strings.Compare(a.LeadStatus, b.LeadStatus) },
	"created_at":  func(a, b lead.Lead) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func leadFallback(a, b lead.Lead) int {
	if c := cmpTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

type leadRepository struct {
	db *DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *DB) lead.Repository {
	return &leadRepository{db: db}
}

func (repo *leadRepository) store(l lead.Lead) lead.Lead {
	l.Group = nil
	repo.db.leads[l.ID] = l
	return l
}

func (repo *leadRepository) CreateLead(_ context.Context, l lead.Lead, _ ...core.DBExecutor) (lead.Lead, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l.ID = uuid.New().String()
	return repo.store(l), nil
}

func (repo *leadRepository) GetLeadByID(_ context.Context, id string, _ ...core.DBExecutor) (lead.Lead, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.leads[id]; ok {
		return l, nil
	}
	return lead.Lead{}, lead.ErrNotFound
}

func (repo *leadRepository) QueryLeads(_ context.Context, filter *lead.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]lead.Lead, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	leads := make([]lead.Lead, 0, len(repo.db.leads))
	for _, l := range repo.db.leads {
		if filter != nil {
			if filter.IDs != nil && !inIDs(l.ID, filter.IDs) {
				continue
			}
			if filter.GroupID != "" && l.GroupID != filter.GroupID {
				continue
			}
			if filter.LeadStatus != "" && l.LeadStatus != filter.LeadStatus {
				continue
			}
			if filter.Search != "" {
				search := strings.ToLower(filter.Search)
				if !(strings.Contains(strings.ToLower(l.Name), search) || strings.Contains(l.Phone, search)) {
					continue
				}
			}
		}
		leads = append(leads, l)
	}
	orderBy(leads, ordering, leadOrdering, leadFallback)
	return leads, nil
}

func (repo *leadRepository) UpdateLead(_ context.Context, l lead.Lead, _ ...core.DBExecutor) (lead.Lead, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.leads[l.ID]
	if !ok {
		return lead.Lead{}, lead.ErrNotFound
	}
	l.CreatedAt = orig.CreatedAt
	return repo.store(l), nil
}

func (repo *leadRepository) DeleteLead(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.leads[id]; !ok {
		return lead.ErrNotFound
	}
	delete(repo.db.leads, id)
	return nil
}
