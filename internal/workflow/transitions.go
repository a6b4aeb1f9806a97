package workflow

import (
	"slices"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

type Action string

const (
	ActionRespond Action = "respond"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
)

// 单级审批（请假、加班）：门店经理直接审批
var singleStageTransitions = map[Action][]domain.RequestStatus{
	ActionApprove: {domain.StatusPending},
	ActionReject:  {domain.StatusPending},
	ActionCancel:  {domain.StatusPending},
}

// 两级审批（换班、顶班、互换）：目标同事先确认，经理再审批。
// 经理不能在目标同事确认之前抢先驳回，驳回和批准的前置状态保持一致；
// 目标同事确认之后发起人也不能再撤回
var twoStageTransitions = map[Action][]domain.RequestStatus{
	ActionRespond: {domain.StatusPendingTargetApproval},
	ActionApprove: {domain.StatusPendingManagerApproval},
	ActionReject:  {domain.StatusPendingManagerApproval},
	ActionCancel:  {domain.StatusPendingTargetApproval},
}

func transitionsFor(t domain.RequestType) map[Action][]domain.RequestStatus {
	if t.RequiresTarget() {
		return twoStageTransitions
	}
	return singleStageTransitions
}

// CanTransition 报告某类型的申请在 from 状态下是否允许执行 action。
// 这张表是整个服务中唯一判断流转合法性的地方
func CanTransition(t domain.RequestType, action Action, from domain.RequestStatus) bool {
	allowed, ok := transitionsFor(t)[action]
	if !ok {
		return false
	}
	return slices.Contains(allowed, from)
}
