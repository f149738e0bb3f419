package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/lead"
)

const leadColumns = `id, name, phone, group_id, lead_status, created_at, updated_at`

var leadOrderColumns = map[string]string{
	"name":        "name",
	"lead_status": "lead_status",
	"created_at":  "created_at",
}

type leadRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Phone      string    `db:"phone"`
	GroupID    string    `db:"group_id"`
	LeadStatus string    `db:"lead_status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func newLeadRow(l lead.Lead) leadRow {
	return leadRow{
		ID:         l.ID,
		Name:       l.Name,
		Phone:      l.Phone,
		GroupID:    l.GroupID,
		LeadStatus: l.LeadStatus,
		CreatedAt:  l.CreatedAt.UTC(),
		UpdatedAt:  l.UpdatedAt.UTC(),
	}
}

func (r leadRow) toLead() lead.Lead {
	return lead.Lead{
		ID:         r.ID,
		Name:       r.Name,
		Phone:      r.Phone,
		GroupID:    r.GroupID,
		LeadStatus: r.LeadStatus,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type leadRepository struct {
	baseRepository
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *sqlx.DB) lead.Repository {
	return &leadRepository{baseRepository{db: db}}
}

func (repo *leadRepository) CreateLead(ctx context.Context, l lead.Lead, exec ...core.DBExecutor) (lead.Lead, error) {
	l.ID = uuid.New().String()
	q := `INSERT INTO lead (` + leadColumns + `)
		VALUES (:id, :name, :phone, :group_id, :lead_status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newLeadRow(l)); err != nil {
		return lead.Lead{}, errors.Wrap(err, "inserting lead")
	}
	return l, nil
}

func (repo *leadRepository) GetLeadByID(ctx context.Context, id string, exec ...core.DBExecutor) (lead.Lead, error) {
	if !isUUID(id) {
		return lead.Lead{}, lead.ErrNotFound
	}
	var row leadRow
	q := `SELECT ` + leadColumns + ` FROM lead WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return lead.Lead{}, trapNoRowsErr(err, lead.ErrNotFound, "selecting lead")
	}
	return row.toLead(), nil
}

func (repo *leadRepository) QueryLeads(ctx context.Context, filter *lead.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lead.Lead, error) {
	var where whereClause
	if filter != nil {
		if filter.IDs != nil {
			where.add("id = ANY($%d::uuid[])", pq.Array(validUUIDs(filter.IDs)))
		}
		if filter.GroupID != "" {
			where.add("group_id::text = $%d", filter.GroupID)
		}
		if filter.LeadStatus != "" {
			where.add("lead_status = $%d", filter.LeadStatus)
		}
		if filter.Search != "" {
			where.add("(name ILIKE $%[1]d OR phone ILIKE $%[1]d)", "%"+filter.Search+"%")
		}
	}
	q := `SELECT ` + leadColumns + ` FROM lead` + where.String() + orderClause(ordering, leadOrderColumns, "created_at ASC, id ASC")

	var rows []leadRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting leads")
	}
	leads := make([]lead.Lead, 0, len(rows))
	for _, r := range rows {
		leads = append(leads, r.toLead())
	}
	return leads, nil
}

func (repo *leadRepository) UpdateLead(ctx context.Context, l lead.Lead, exec ...core.DBExecutor) (lead.Lead, error) {
	q := `UPDATE lead SET name = :name, phone = :phone, group_id = :group_id, lead_status = :lead_status,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newLeadRow(l))
	if err != nil {
		return lead.Lead{}, errors.Wrap(err, "updating lead")
	}
	if err = checkAffected(res, lead.ErrNotFound); err != nil {
		return lead.Lead{}, err
	}
	return l, nil
}

func (repo *leadRepository) DeleteLead(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return lead.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM lead WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lead")
	}
	return checkAffected(res, lead.ErrNotFound)
}
