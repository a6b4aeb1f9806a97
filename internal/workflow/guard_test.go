package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

func TestGuardCanSubmit(t *testing.T) {
	guard := &Guard{}

	assert.True(t, guard.CanSubmit(initiator, domain.RequestTypeLeave))

	inactive := &domain.User{ID: 9, Role: domain.RoleStaff, BranchID: &branchID, IsActive: false}
	assert.False(t, guard.CanSubmit(inactive, domain.RequestTypeLeave))

	// 管理员没有门店归属，不能提交申请
	assert.False(t, guard.CanSubmit(admin, domain.RequestTypeLeave))

	assert.False(t, guard.CanSubmit(initiator, domain.RequestType("UNKNOWN")))
}

func TestGuardManagerScope(t *testing.T) {
	guard := &Guard{}
	req := &domain.ShiftRequest{BranchID: branchID}

	assert.True(t, guard.CanApprove(manager, req))
	assert.True(t, guard.CanReject(manager, req))
	assert.False(t, guard.CanApprove(otherManager, req))
	assert.False(t, guard.CanApprove(initiator, req))
	assert.True(t, guard.CanApprove(admin, req))
}

func TestGuardCanRespond(t *testing.T) {
	guard := &Guard{}

	req := &domain.ShiftRequest{BranchID: branchID, StaffUserID: initiator.ID, TargetStaffUserID: &target.ID}
	assert.True(t, guard.CanRespond(target, req))
	assert.False(t, guard.CanRespond(initiator, req))

	noTarget := &domain.ShiftRequest{BranchID: branchID, StaffUserID: initiator.ID}
	assert.False(t, guard.CanRespond(target, noTarget))
}

func TestGuardAllowedActions(t *testing.T) {
	guard := &Guard{}

	tests := []struct {
		name  string
		actor *domain.User
		req   *domain.ShiftRequest
		want  []Action
	}{
		{
			name:  "待确认的换班对目标同事只有确认",
			actor: target,
			req: &domain.ShiftRequest{
				Type:              domain.RequestTypeSwap,
				StaffUserID:       initiator.ID,
				TargetStaffUserID: &target.ID,
				BranchID:          branchID,
				Status:            domain.StatusPendingTargetApproval,
			},
			want: []Action{ActionRespond},
		},
		{
			name:  "待确认的换班对发起人只有撤回",
			actor: initiator,
			req: &domain.ShiftRequest{
				Type:              domain.RequestTypeSwap,
				StaffUserID:       initiator.ID,
				TargetStaffUserID: &target.ID,
				BranchID:          branchID,
				Status:            domain.StatusPendingTargetApproval,
			},
			want: []Action{ActionCancel},
		},
		{
			name:  "待确认的换班对经理没有可执行操作",
			actor: manager,
			req: &domain.ShiftRequest{
				Type:              domain.RequestTypeSwap,
				StaffUserID:       initiator.ID,
				TargetStaffUserID: &target.ID,
				BranchID:          branchID,
				Status:            domain.StatusPendingTargetApproval,
			},
			want: []Action{},
		},
		{
			name:  "待审批的请假对经理是批准和驳回",
			actor: manager,
			req: &domain.ShiftRequest{
				Type:        domain.RequestTypeLeave,
				StaffUserID: initiator.ID,
				BranchID:    branchID,
				Status:      domain.StatusPending,
			},
			want: []Action{ActionApprove, ActionReject},
		},
		{
			name:  "终态的申请对所有人都没有操作",
			actor: admin,
			req: &domain.ShiftRequest{
				Type:        domain.RequestTypeLeave,
				StaffUserID: initiator.ID,
				BranchID:    branchID,
				Status:      domain.StatusApproved,
			},
			want: []Action{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.AllowedActions(tt.actor, tt.req))
		})
	}
}
