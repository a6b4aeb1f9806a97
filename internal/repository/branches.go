package repository

import (
	"context"
	"time"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

func (r *Repository) CreateBranch(branch *domain.Branch) error {
	query := `
		INSERT INTO branches (name, address)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, branch.Name, branch.Address).Scan(&branch.ID, &branch.CreatedAt, &branch.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetBranchByID(id int64) (*domain.Branch, error) {
	query := `
		SELECT name, address, created_at, version FROM branches WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	branch := &domain.Branch{
		ID: id,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&branch.Name, &branch.Address, &branch.CreatedAt, &branch.Version); err != nil {
		return nil, err
	}

	return branch, nil
}

func (r *Repository) GetAllBranches() ([]*domain.Branch, error) {
	query := `
		SELECT id, name, address, created_at, version FROM branches
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := []*domain.Branch{}
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.Address, &branch.CreatedAt, &branch.Version); err != nil {
			return nil, err
		}
		branches = append(branches, &branch)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return branches, nil
}

func (r *Repository) UpdateBranch(branch *domain.Branch) error {
	query := `
		UPDATE branches
		SET
			name = $1,
			address = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, branch.Name, branch.Address, branch.ID, branch.Version).Scan(&branch.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteBranch(id int64) error {
	query := `
		DELETE FROM branches WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
