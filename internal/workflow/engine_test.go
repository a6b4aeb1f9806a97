package workflow

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

// fakeStore 在内存里模拟乐观并发的持久层：
// 条件写只有在 version 一致时才生效，否则返回 sql.ErrNoRows。
// afterGet 是一次性的钩子，用来在引擎的读和写之间插入竞争写
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*domain.ShiftRequest
	afterGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		requests: map[int64]*domain.ShiftRequest{},
	}
}

func cloneRequest(req *domain.ShiftRequest) *domain.ShiftRequest {
	clone := *req
	return &clone
}

func (s *fakeStore) CreateShiftRequest(req *domain.ShiftRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.ID = s.nextID
	s.nextID++
	req.RequestedAt = time.Now()
	req.UpdatedAt = req.RequestedAt
	req.Version = 1
	s.requests[req.ID] = cloneRequest(req)

	return nil
}

func (s *fakeStore) GetShiftRequestByID(id int64) (*domain.ShiftRequest, error) {
	s.mu.Lock()
	stored, ok := s.requests[id]
	var clone *domain.ShiftRequest
	if ok {
		clone = cloneRequest(stored)
	}
	hook := s.afterGet
	s.afterGet = nil
	s.mu.Unlock()

	if !ok {
		return nil, sql.ErrNoRows
	}
	if hook != nil {
		hook()
	}
	return clone, nil
}

func (s *fakeStore) UpdateShiftRequestWithVersion(req *domain.ShiftRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok || stored.Version != req.Version {
		return sql.ErrNoRows
	}

	stored.Status = req.Status
	stored.ReviewNotes = req.ReviewNotes
	stored.ReviewedBy = req.ReviewedBy
	stored.ReviewedAt = req.ReviewedAt
	stored.UpdatedAt = time.Now()
	stored.Version++

	req.UpdatedAt = stored.UpdatedAt
	req.Version = stored.Version

	return nil
}

type recordingDispatcher struct {
	mu            sync.Mutex
	err           error
	notifications []*domain.RequestNotification
}

func (d *recordingDispatcher) Notify(n *domain.RequestNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
	return d.err
}

func (d *recordingDispatcher) last(t *testing.T) *domain.RequestNotification {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.notifications)
	return d.notifications[len(d.notifications)-1]
}

var (
	branchID      = int64(10)
	otherBranchID = int64(20)

	initiator    = &domain.User{ID: 1, Role: domain.RoleStaff, BranchID: &branchID, IsActive: true}
	target       = &domain.User{ID: 2, Role: domain.RoleStaff, BranchID: &branchID, IsActive: true}
	manager      = &domain.User{ID: 3, Role: domain.RoleManager, BranchID: &branchID, IsActive: true}
	otherManager = &domain.User{ID: 4, Role: domain.RoleManager, BranchID: &otherBranchID, IsActive: true}
	admin        = &domain.User{ID: 5, Role: domain.RoleAdmin, IsActive: true}
)

func newTestEngine() (*Engine, *fakeStore, *recordingDispatcher) {
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}
	return NewEngine(store, dispatcher), store, dispatcher
}

func submitInput(t domain.RequestType) *SubmitInput {
	start, end := "09:00:00", "13:00:00"
	input := &SubmitInput{
		Type:      t,
		BranchID:  branchID,
		ShiftDate: time.Now().AddDate(0, 0, 3),
		Reason:    "家里有事",
	}

	switch {
	case t.RequiresTarget():
		input.TargetStaffUserID = &target.ID
		input.StartTime = &start
		input.EndTime = &end
	case t == domain.RequestTypeOvertime:
		hours := 2.5
		input.OvertimeHours = &hours
	}

	return input
}

func mustSubmit(t *testing.T, e *Engine, requestType domain.RequestType) *domain.ShiftRequest {
	t.Helper()
	req, err := e.Submit(initiator, submitInput(requestType))
	require.NoError(t, err)
	return req
}

func TestSubmitInitialStatusByCategory(t *testing.T) {
	tests := []struct {
		requestType domain.RequestType
		wantStatus  domain.RequestStatus
	}{
		{domain.RequestTypeLeave, domain.StatusPending},
		{domain.RequestTypeOvertime, domain.StatusPending},
		{domain.RequestTypeSwap, domain.StatusPendingTargetApproval},
		{domain.RequestTypePickUp, domain.StatusPendingTargetApproval},
		{domain.RequestTypeTwoWaySwap, domain.StatusPendingTargetApproval},
	}

	for _, tt := range tests {
		t.Run(string(tt.requestType), func(t *testing.T) {
			e, _, dispatcher := newTestEngine()

			req := mustSubmit(t, e, tt.requestType)

			assert.Equal(t, tt.wantStatus, req.Status)
			assert.Equal(t, initiator.ID, req.StaffUserID)
			assert.NotZero(t, req.ID)
			assert.EqualValues(t, 1, req.Version)

			n := dispatcher.last(t)
			assert.Equal(t, domain.EventSubmitted, n.Event)
			assert.NotContains(t, n.RecipientUserIDs, initiator.ID)
			if tt.requestType.RequiresTarget() {
				assert.Contains(t, n.RecipientUserIDs, target.ID)
			}
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	hours := 2.0

	tests := []struct {
		name      string
		mutate    func(input *SubmitInput)
		wantField string
	}{
		{
			name:      "换班缺少目标同事",
			mutate:    func(input *SubmitInput) { input.TargetStaffUserID = nil },
			wantField: "targetStaffUserID",
		},
		{
			name:      "目标同事是发起人自己",
			mutate:    func(input *SubmitInput) { input.TargetStaffUserID = &initiator.ID },
			wantField: "targetStaffUserID",
		},
		{
			name: "请假不能指定目标同事",
			mutate: func(input *SubmitInput) {
				input.Type = domain.RequestTypeLeave
				input.StartTime = nil
				input.EndTime = nil
			},
			wantField: "targetStaffUserID",
		},
		{
			name:      "换班缺少班次时间",
			mutate:    func(input *SubmitInput) { input.StartTime = nil },
			wantField: "startTime",
		},
		{
			name:      "非加班申请不能填加班时长",
			mutate:    func(input *SubmitInput) { input.OvertimeHours = &hours },
			wantField: "overtimeHours",
		},
		{
			name: "加班不能填写班次时间",
			mutate: func(input *SubmitInput) {
				input.Type = domain.RequestTypeOvertime
				input.TargetStaffUserID = nil
				input.OvertimeHours = &hours
			},
			wantField: "startTime",
		},
		{
			name: "加班只填开始时间同样不行",
			mutate: func(input *SubmitInput) {
				input.Type = domain.RequestTypeOvertime
				input.TargetStaffUserID = nil
				input.OvertimeHours = &hours
				input.EndTime = nil
			},
			wantField: "startTime",
		},
		{
			name:      "缺少班次日期",
			mutate:    func(input *SubmitInput) { input.ShiftDate = time.Time{} },
			wantField: "shiftDate",
		},
		{
			name: "结束时间早于开始时间",
			mutate: func(input *SubmitInput) {
				end := "08:00:00"
				input.EndTime = &end
			},
			wantField: "startTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEngine()

			input := submitInput(domain.RequestTypeSwap)
			tt.mutate(input)

			_, err := e.Submit(initiator, input)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}

func TestSubmitOvertimeHoursRequired(t *testing.T) {
	e, _, _ := newTestEngine()

	for _, hours := range []*float64{nil, new(float64)} {
		input := submitInput(domain.RequestTypeOvertime)
		input.OvertimeHours = hours

		_, err := e.Submit(initiator, input)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "overtimeHours", validationErr.Field)
	}
}

func TestSubmitLeaveTimesMustBePaired(t *testing.T) {
	e, _, _ := newTestEngine()

	start := "09:00:00"
	input := submitInput(domain.RequestTypeLeave)
	input.StartTime = &start

	_, err := e.Submit(initiator, input)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "startTime", validationErr.Field)
}

func TestSubmitPermission(t *testing.T) {
	e, _, _ := newTestEngine()

	t.Run("停用的员工不能提交", func(t *testing.T) {
		inactive := &domain.User{ID: 9, Role: domain.RoleStaff, BranchID: &branchID, IsActive: false}
		_, err := e.Submit(inactive, submitInput(domain.RequestTypeLeave))
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("不能提交到别的门店", func(t *testing.T) {
		input := submitInput(domain.RequestTypeLeave)
		input.BranchID = otherBranchID
		_, err := e.Submit(initiator, input)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("没有门店归属的用户不能提交", func(t *testing.T) {
		_, err := e.Submit(admin, submitInput(domain.RequestTypeLeave))
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestRespondAccept(t *testing.T) {
	e, _, dispatcher := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeSwap)

	updated, err := e.Respond(target, req.ID, true, "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingManagerApproval, updated.Status)
	// 确认只推进状态，审核字段留给经理
	assert.Nil(t, updated.ReviewNotes)
	assert.Nil(t, updated.ReviewedBy)
	assert.Nil(t, updated.ReviewedAt)
	assert.EqualValues(t, 2, updated.Version)

	n := dispatcher.last(t)
	assert.Equal(t, domain.EventResponded, n.Event)
	assert.Equal(t, []int64{initiator.ID}, n.RecipientUserIDs)
}

func TestRespondReject(t *testing.T) {
	e, _, dispatcher := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypePickUp)

	updated, err := e.Respond(target, req.ID, false, "那天我也有安排")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejectedByTarget, updated.Status)
	require.NotNil(t, updated.ReviewNotes)
	assert.Equal(t, "那天我也有安排", *updated.ReviewNotes)
	require.NotNil(t, updated.ReviewedBy)
	assert.Equal(t, target.ID, *updated.ReviewedBy)
	assert.NotNil(t, updated.ReviewedAt)

	assert.Equal(t, domain.EventRejectedByTarget, dispatcher.last(t).Event)
}

func TestRespondOnlyByTarget(t *testing.T) {
	e, _, _ := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeSwap)

	for _, actor := range []*domain.User{initiator, manager, admin} {
		_, err := e.Respond(actor, req.ID, true, "")
		assert.ErrorIs(t, err, ErrPermissionDenied)
	}
}

func TestManagerCannotReviewBeforeTargetResponds(t *testing.T) {
	e, _, _ := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeSwap)

	_, err := e.Approve(manager, req.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.Reject(manager, req.ID, "不行")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveLeave(t *testing.T) {
	e, _, dispatcher := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeLeave)

	updated, err := e.Approve(manager, req.ID, "注意补班")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, updated.Status)
	require.NotNil(t, updated.ReviewNotes)
	assert.Equal(t, "注意补班", *updated.ReviewNotes)
	require.NotNil(t, updated.ReviewedBy)
	assert.Equal(t, manager.ID, *updated.ReviewedBy)
	assert.NotNil(t, updated.ReviewedAt)

	n := dispatcher.last(t)
	assert.Equal(t, domain.EventApproved, n.Event)
	assert.Equal(t, []int64{initiator.ID}, n.RecipientUserIDs)
}

func TestApproveAfterTargetAccepts(t *testing.T) {
	e, _, _ := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeTwoWaySwap)

	_, err := e.Respond(target, req.ID, true, "")
	require.NoError(t, err)

	updated, err := e.Approve(manager, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
}

func TestRejectByManager(t *testing.T) {
	e, _, dispatcher := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeOvertime)

	updated, err := e.Reject(manager, req.ID, "本月加班额度已满")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, updated.Status)
	assert.Equal(t, domain.EventRejected, dispatcher.last(t).Event)
}

func TestReviewScope(t *testing.T) {
	e, _, _ := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeLeave)

	// 别的门店的经理无权审批
	_, err := e.Approve(otherManager, req.ID, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// 普通员工无权审批
	_, err = e.Approve(target, req.ID, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// 管理员不受门店限制
	updated, err := e.Approve(admin, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
}

func TestCancel(t *testing.T) {
	e, _, dispatcher := newTestEngine()

	t.Run("发起人可以撤回待处理的申请", func(t *testing.T) {
		req := mustSubmit(t, e, domain.RequestTypeLeave)

		updated, err := e.Cancel(initiator, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, updated.Status)
		assert.Equal(t, domain.EventCancelled, dispatcher.last(t).Event)
	})

	t.Run("其他人不能撤回", func(t *testing.T) {
		req := mustSubmit(t, e, domain.RequestTypeLeave)

		for _, actor := range []*domain.User{target, manager, admin} {
			_, err := e.Cancel(actor, req.ID)
			assert.ErrorIs(t, err, ErrPermissionDenied)
		}
	})

	t.Run("目标同事确认后不能再撤回", func(t *testing.T) {
		req := mustSubmit(t, e, domain.RequestTypeSwap)
		_, err := e.Respond(target, req.ID, true, "")
		require.NoError(t, err)

		_, err = e.Cancel(initiator, req.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

// 四个终态下任何操作都不再被允许
func TestTerminalStatusesAreImmutable(t *testing.T) {
	terminalStatuses := []domain.RequestStatus{
		domain.StatusApproved,
		domain.StatusRejected,
		domain.StatusRejectedByTarget,
		domain.StatusCancelled,
	}

	for _, status := range terminalStatuses {
		t.Run(string(status), func(t *testing.T) {
			e, store, _ := newTestEngine()
			req := mustSubmit(t, e, domain.RequestTypeSwap)

			store.mu.Lock()
			store.requests[req.ID].Status = status
			store.mu.Unlock()

			_, err := e.Respond(target, req.ID, true, "")
			assert.ErrorIs(t, err, ErrInvalidTransition)

			_, err = e.Approve(admin, req.ID, "")
			assert.ErrorIs(t, err, ErrInvalidTransition)

			_, err = e.Reject(admin, req.ID, "")
			assert.ErrorIs(t, err, ErrInvalidTransition)

			_, err = e.Cancel(initiator, req.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestRequestNotFound(t *testing.T) {
	e, _, _ := newTestEngine()

	_, err := e.Approve(admin, 404, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Cancel(initiator, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

// 两个审批者竞争同一条申请时，恰好一方成功，另一方拿到 ErrConflict
func TestConcurrentReviewConflict(t *testing.T) {
	e, store, _ := newTestEngine()
	req := mustSubmit(t, e, domain.RequestTypeLeave)

	// 在引擎的读和条件写之间插入一次竞争写，模拟另一个经理抢先驳回
	store.afterGet = func() {
		competing, err := store.GetShiftRequestByID(req.ID)
		require.NoError(t, err)
		competing.Status = domain.StatusRejected
		require.NoError(t, store.UpdateShiftRequestWithVersion(competing))
	}

	_, err := e.Approve(manager, req.ID, "")
	assert.ErrorIs(t, err, ErrConflict)

	// 抢先的那一方的写入保持有效
	stored, err := store.GetShiftRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.EqualValues(t, 2, stored.Version)
}

// 通知投递失败不能让已经成功的流转失败
func TestNotifyFailureDoesNotFailTransition(t *testing.T) {
	e, store, dispatcher := newTestEngine()
	dispatcher.err = assert.AnError

	req, err := e.Submit(initiator, submitInput(domain.RequestTypeLeave))
	require.NoError(t, err)

	updated, err := e.Approve(manager, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)

	stored, err := store.GetShiftRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
}
