package workflow

import (
	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

// Guard 把"这个用户能不能对这条申请做这件事"集中成一组纯谓词，
// 各个 handler 和前端都只问它，不再各自用状态字符串推断权限
type Guard struct{}

func (g *Guard) CanSubmit(actor *domain.User, t domain.RequestType) bool {
	return t.Valid() && actor.IsActive && actor.BranchID != nil
}

// CanRespond 只有申请指定的目标同事才能确认或拒绝
func (g *Guard) CanRespond(actor *domain.User, req *domain.ShiftRequest) bool {
	return req.TargetStaffUserID != nil && actor.ID == *req.TargetStaffUserID
}

func (g *Guard) CanApprove(actor *domain.User, req *domain.ShiftRequest) bool {
	return g.hasManagerScope(actor, req.BranchID)
}

func (g *Guard) CanReject(actor *domain.User, req *domain.ShiftRequest) bool {
	return g.hasManagerScope(actor, req.BranchID)
}

// CanCancel 只有发起人本人可以撤回
func (g *Guard) CanCancel(actor *domain.User, req *domain.ShiftRequest) bool {
	return actor.ID == req.StaffUserID
}

// 经理只能审批自己门店的申请，管理员不受门店限制
func (g *Guard) hasManagerScope(actor *domain.User, branchID int64) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return actor.Role == domain.RoleManager && actor.BranchID != nil && *actor.BranchID == branchID
}

// AllowedActions 综合权限谓词和流转表，返回 actor 当前可以对 req 执行的操作，
// 前端的按钮显示只从这里推导
func (g *Guard) AllowedActions(actor *domain.User, req *domain.ShiftRequest) []Action {
	actions := []Action{}

	if g.CanRespond(actor, req) && CanTransition(req.Type, ActionRespond, req.Status) {
		actions = append(actions, ActionRespond)
	}
	if g.CanApprove(actor, req) && CanTransition(req.Type, ActionApprove, req.Status) {
		actions = append(actions, ActionApprove)
	}
	if g.CanReject(actor, req) && CanTransition(req.Type, ActionReject, req.Status) {
		actions = append(actions, ActionReject)
	}
	if g.CanCancel(actor, req) && CanTransition(req.Type, ActionCancel, req.Status) {
		actions = append(actions, ActionCancel)
	}

	return actions
}
