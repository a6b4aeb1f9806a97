package repository

import (
	"context"
	"time"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

func (r *Repository) CreateShiftRequest(req *domain.ShiftRequest) error {
	query := `
		INSERT INTO shift_requests (
			type,
			staff_user_id,
			target_staff_user_id,
			branch_id,
			shift_date,
			start_time,
			end_time,
			overtime_hours,
			reason,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, requested_at, updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{
		req.Type,
		req.StaffUserID,
		req.TargetStaffUserID,
		req.BranchID,
		req.ShiftDate,
		req.StartTime,
		req.EndTime,
		req.OvertimeHours,
		req.Reason,
		req.Status,
	}
	dst := []any{&req.ID, &req.RequestedAt, &req.UpdatedAt, &req.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetShiftRequestByID(id int64) (*domain.ShiftRequest, error) {
	query := `
		SELECT
			type,
			staff_user_id,
			target_staff_user_id,
			branch_id,
			shift_date,
			start_time,
			end_time,
			overtime_hours,
			reason,
			status,
			review_notes,
			reviewed_by,
			reviewed_at,
			requested_at,
			updated_at,
			version
		FROM shift_requests
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	req := &domain.ShiftRequest{
		ID: id,
	}

	dst := []any{
		&req.Type,
		&req.StaffUserID,
		&req.TargetStaffUserID,
		&req.BranchID,
		&req.ShiftDate,
		&req.StartTime,
		&req.EndTime,
		&req.OvertimeHours,
		&req.Reason,
		&req.Status,
		&req.ReviewNotes,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.RequestedAt,
		&req.UpdatedAt,
		&req.Version,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return req, nil
}

// UpdateShiftRequestWithVersion 只更新流转会改变的列，
// 并且只有在 version 未被其他写入者动过时才生效，
// 输掉竞争的一方会在 Scan 处拿到 sql.ErrNoRows
func (r *Repository) UpdateShiftRequestWithVersion(req *domain.ShiftRequest) error {
	query := `
		UPDATE shift_requests
		SET
			status = $1,
			review_notes = $2,
			reviewed_by = $3,
			reviewed_at = $4,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{
		req.Status,
		req.ReviewNotes,
		req.ReviewedBy,
		req.ReviewedAt,
		req.ID,
		req.Version,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&req.UpdatedAt, &req.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetShiftRequestsByBranch(branchID int64, status *domain.RequestStatus) ([]*domain.ShiftRequest, error) {
	query := `
		SELECT
			id,
			type,
			staff_user_id,
			target_staff_user_id,
			branch_id,
			shift_date,
			start_time,
			end_time,
			overtime_hours,
			reason,
			status,
			review_notes,
			reviewed_by,
			reviewed_at,
			requested_at,
			updated_at,
			version
		FROM shift_requests
		WHERE branch_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY requested_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, branchID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShiftRequests(rows)
}

func (r *Repository) GetShiftRequestsByStaff(staffID int64, direction domain.RequestDirection) ([]*domain.ShiftRequest, error) {
	// outgoing 查发起人，incoming 查目标同事
	column := "staff_user_id"
	if direction == domain.DirectionIncoming {
		column = "target_staff_user_id"
	}

	query := `
		SELECT
			id,
			type,
			staff_user_id,
			target_staff_user_id,
			branch_id,
			shift_date,
			start_time,
			end_time,
			overtime_hours,
			reason,
			status,
			review_notes,
			reviewed_by,
			reviewed_at,
			requested_at,
			updated_at,
			version
		FROM shift_requests
		WHERE ` + column + ` = $1
		ORDER BY requested_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShiftRequests(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dst ...any) error
	Err() error
}

func scanShiftRequests(rows rowScanner) ([]*domain.ShiftRequest, error) {
	reqs := []*domain.ShiftRequest{}
	for rows.Next() {
		var req domain.ShiftRequest
		dst := []any{
			&req.ID,
			&req.Type,
			&req.StaffUserID,
			&req.TargetStaffUserID,
			&req.BranchID,
			&req.ShiftDate,
			&req.StartTime,
			&req.EndTime,
			&req.OvertimeHours,
			&req.Reason,
			&req.Status,
			&req.ReviewNotes,
			&req.ReviewedBy,
			&req.ReviewedAt,
			&req.RequestedAt,
			&req.UpdatedAt,
			&req.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		reqs = append(reqs, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reqs, nil
}
