package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafems-dev/shift-request/backend/internal/config"
	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

func newRepositoryMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5

	return NewRepository(cfg, db), mock, func() { db.Close() }
}

var shiftRequestColumns = []string{
	"id",
	"type",
	"staff_user_id",
	"target_staff_user_id",
	"branch_id",
	"shift_date",
	"start_time",
	"end_time",
	"overtime_hours",
	"reason",
	"status",
	"review_notes",
	"reviewed_by",
	"reviewed_at",
	"requested_at",
	"updated_at",
	"version",
}

func TestCreateShiftRequest(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	now := time.Now()
	targetID := int64(2)
	start, end := "09:00:00", "13:00:00"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shift_requests")).
		WithArgs(
			domain.RequestTypeSwap,
			int64(1),
			&targetID,
			int64(10),
			sqlmock.AnyArg(),
			&start,
			&end,
			nil,
			"家里有事",
			domain.StatusPendingTargetApproval,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "requested_at", "updated_at", "version"}).
			AddRow(int64(7), now, now, int32(1)))

	req := &domain.ShiftRequest{
		Type:              domain.RequestTypeSwap,
		StaffUserID:       1,
		TargetStaffUserID: &targetID,
		BranchID:          10,
		ShiftDate:         now.AddDate(0, 0, 3),
		StartTime:         &start,
		EndTime:           &end,
		Reason:            "家里有事",
		Status:            domain.StatusPendingTargetApproval,
	}

	require.NoError(t, repo.CreateShiftRequest(req))
	assert.EqualValues(t, 7, req.ID)
	assert.EqualValues(t, 1, req.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftRequestByID(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM shift_requests")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(shiftRequestColumns[1:]).
			AddRow("LEAVE", int64(1), nil, int64(10), now, nil, nil, nil, "身体不适", "PENDING", nil, nil, nil, now, now, int32(1)))

	req, err := repo.GetShiftRequestByID(7)
	require.NoError(t, err)

	assert.EqualValues(t, 7, req.ID)
	assert.Equal(t, domain.RequestTypeLeave, req.Type)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Nil(t, req.TargetStaffUserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftRequestByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM shift_requests")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetShiftRequestByID(404)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateShiftRequestWithVersion(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	now := time.Now()
	notes := "注意补班"
	reviewerID := int64(3)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE shift_requests")).
		WithArgs(domain.StatusApproved, &notes, &reviewerID, sqlmock.AnyArg(), int64(7), int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, int32(2)))

	req := &domain.ShiftRequest{
		ID:          7,
		Status:      domain.StatusApproved,
		ReviewNotes: &notes,
		ReviewedBy:  &reviewerID,
		ReviewedAt:  &now,
		Version:     1,
	}

	require.NoError(t, repo.UpdateShiftRequestWithVersion(req))
	assert.EqualValues(t, 2, req.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

// version 不匹配时条件写一行都更新不到，表现为 sql.ErrNoRows
func TestUpdateShiftRequestWithVersionConflict(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE shift_requests")).
		WithArgs(domain.StatusApproved, nil, nil, nil, int64(7), int32(1)).
		WillReturnError(sql.ErrNoRows)

	req := &domain.ShiftRequest{
		ID:      7,
		Status:  domain.StatusApproved,
		Version: 1,
	}

	assert.ErrorIs(t, repo.UpdateShiftRequestWithVersion(req), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftRequestsByBranch(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	now := time.Now()
	status := domain.StatusPending

	mock.ExpectQuery(regexp.QuoteMeta("FROM shift_requests")).
		WithArgs(int64(10), &status).
		WillReturnRows(sqlmock.NewRows(shiftRequestColumns).
			AddRow(int64(7), "LEAVE", int64(1), nil, int64(10), now, nil, nil, nil, "身体不适", "PENDING", nil, nil, nil, now, now, int32(1)).
			AddRow(int64(8), "OVERTIME", int64(2), nil, int64(10), now, nil, nil, 2.5, "门店缺人", "PENDING", nil, nil, nil, now, now, int32(1)))

	requests, err := repo.GetShiftRequestsByBranch(10, &status)
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.EqualValues(t, 7, requests[0].ID)
	assert.EqualValues(t, 8, requests[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShiftRequestsByStaffIncoming(t *testing.T) {
	repo, mock, cleanup := newRepositoryMock(t)
	defer cleanup()

	now := time.Now()
	targetID := int64(2)
	start, end := "09:00:00", "13:00:00"

	// incoming 按 target_staff_user_id 查询
	mock.ExpectQuery("target_staff_user_id = \\$1").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(shiftRequestColumns).
			AddRow(int64(9), "SWAP", int64(1), &targetID, int64(10), now, &start, &end, nil, "和同事商量好了", "PENDING_TARGET_APPROVAL", nil, nil, nil, now, now, int32(1)))

	requests, err := repo.GetShiftRequestsByStaff(2, domain.DirectionIncoming)
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, domain.RequestTypeSwap, requests[0].Type)
	require.NotNil(t, requests[0].TargetStaffUserID)
	assert.EqualValues(t, 2, *requests[0].TargetStaffUserID)
	require.NoError(t, mock.ExpectationsWereMet())
}
