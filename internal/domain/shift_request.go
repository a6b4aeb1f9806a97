package domain

import "time"

// RequestType 决定申请走哪一张审批流转表：
// 换班、顶班和互换需要目标同事先行确认（两级审批），
// 请假和加班由门店经理直接审批（单级审批）。
type RequestType string

const (
	RequestTypeSwap       RequestType = "SWAP"
	RequestTypePickUp     RequestType = "PICK_UP"
	RequestTypeTwoWaySwap RequestType = "TWO_WAY_SWAP"
	RequestTypeLeave      RequestType = "LEAVE"
	RequestTypeOvertime   RequestType = "OVERTIME"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeSwap, RequestTypePickUp, RequestTypeTwoWaySwap, RequestTypeLeave, RequestTypeOvertime:
		return true
	}
	return false
}

// RequiresTarget 报告该类型的申请是否必须指定目标同事
func (t RequestType) RequiresTarget() bool {
	switch t {
	case RequestTypeSwap, RequestTypePickUp, RequestTypeTwoWaySwap:
		return true
	}
	return false
}

func (t RequestType) InitialStatus() RequestStatus {
	if t.RequiresTarget() {
		return StatusPendingTargetApproval
	}
	return StatusPending
}

// ManagerActionableStatus 返回经理可以审批该类型申请的状态
func (t RequestType) ManagerActionableStatus() RequestStatus {
	if t.RequiresTarget() {
		return StatusPendingManagerApproval
	}
	return StatusPending
}

type RequestStatus string

const (
	StatusPending                RequestStatus = "PENDING"
	StatusPendingTargetApproval  RequestStatus = "PENDING_TARGET_APPROVAL"
	StatusPendingManagerApproval RequestStatus = "PENDING_MANAGER_APPROVAL"
	StatusApproved               RequestStatus = "APPROVED"
	StatusRejected               RequestStatus = "REJECTED"
	StatusRejectedByTarget       RequestStatus = "REJECTED_BY_TARGET"
	StatusCancelled              RequestStatus = "CANCELLED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPendingTargetApproval, StatusPendingManagerApproval,
		StatusApproved, StatusRejected, StatusRejectedByTarget, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal 报告该状态是否为终态，终态的申请不再接受任何流转
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusRejectedByTarget, StatusCancelled:
		return true
	}
	return false
}

// RequestDirection 用于按员工查询申请：outgoing 为本人发起的，incoming 为等待本人确认的
type RequestDirection string

const (
	DirectionOutgoing RequestDirection = "outgoing"
	DirectionIncoming RequestDirection = "incoming"
)

func (d RequestDirection) Valid() bool {
	return d == DirectionOutgoing || d == DirectionIncoming
}

type ShiftRequest struct {
	ID                int64         `json:"id"`
	Type              RequestType   `json:"type"`
	StaffUserID       int64         `json:"staffUserID"`
	TargetStaffUserID *int64        `json:"targetStaffUserID,omitempty"`
	BranchID          int64         `json:"branchID"`
	ShiftDate         time.Time     `json:"shiftDate"`
	StartTime         *string       `json:"startTime,omitempty"` // 格式为 15:04:05
	EndTime           *string       `json:"endTime,omitempty"`
	OvertimeHours     *float64      `json:"overtimeHours,omitempty"`
	Reason            string        `json:"reason"`
	Status            RequestStatus `json:"status"`
	ReviewNotes       *string       `json:"reviewNotes,omitempty"`
	ReviewedBy        *int64        `json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time    `json:"reviewedAt,omitempty"`
	RequestedAt       time.Time     `json:"requestedAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	Version           int32         `json:"-"`
}
