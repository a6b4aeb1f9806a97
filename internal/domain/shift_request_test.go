package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestTypeInitialStatus(t *testing.T) {
	// 两级审批的类型从目标同事确认开始，其余直接等待经理审批
	tests := []struct {
		requestType    RequestType
		requiresTarget bool
		initialStatus  RequestStatus
	}{
		{RequestTypeSwap, true, StatusPendingTargetApproval},
		{RequestTypePickUp, true, StatusPendingTargetApproval},
		{RequestTypeTwoWaySwap, true, StatusPendingTargetApproval},
		{RequestTypeLeave, false, StatusPending},
		{RequestTypeOvertime, false, StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.requestType), func(t *testing.T) {
			assert.True(t, tt.requestType.Valid())
			assert.Equal(t, tt.requiresTarget, tt.requestType.RequiresTarget())
			assert.Equal(t, tt.initialStatus, tt.requestType.InitialStatus())
		})
	}

	assert.False(t, RequestType("VACATION").Valid())
}

func TestRequestStatusIsTerminal(t *testing.T) {
	terminal := []RequestStatus{StatusApproved, StatusRejected, StatusRejectedByTarget, StatusCancelled}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), string(status))
	}

	open := []RequestStatus{StatusPending, StatusPendingTargetApproval, StatusPendingManagerApproval}
	for _, status := range open {
		assert.False(t, status.IsTerminal(), string(status))
	}

	assert.False(t, RequestStatus("UNKNOWN").Valid())
}

func TestRequestDirectionValid(t *testing.T) {
	assert.True(t, DirectionOutgoing.Valid())
	assert.True(t, DirectionIncoming.Valid())
	assert.False(t, RequestDirection("both").Valid())
}
