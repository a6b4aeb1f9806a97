package workflow

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
	"github.com/cafems-dev/shift-request/backend/internal/utils"
)

// RequestStore 是引擎对持久层的全部要求。
// UpdateShiftRequestWithVersion 必须以乐观并发的方式写入：
// 只有当数据库中的 version 与传入的 version 一致时才生效，
// 否则返回 sql.ErrNoRows
type RequestStore interface {
	CreateShiftRequest(req *domain.ShiftRequest) error
	GetShiftRequestByID(id int64) (*domain.ShiftRequest, error)
	UpdateShiftRequestWithVersion(req *domain.ShiftRequest) error
}

// Dispatcher 是通知投递系统的边界，投递本身在别的进程完成
type Dispatcher interface {
	Notify(n *domain.RequestNotification) error
}

// Engine 负责 ShiftRequest 的整个生命周期：校验、权限、状态流转和写入。
// 所有写操作都是读-检查-条件写，输给并发竞争者的一方会拿到 ErrConflict
type Engine struct {
	store      RequestStore
	guard      *Guard
	dispatcher Dispatcher
}

func NewEngine(store RequestStore, dispatcher Dispatcher) *Engine {
	return &Engine{
		store:      store,
		guard:      &Guard{},
		dispatcher: dispatcher,
	}
}

func (e *Engine) Guard() *Guard {
	return e.guard
}

type SubmitInput struct {
	Type              domain.RequestType
	TargetStaffUserID *int64
	BranchID          int64
	ShiftDate         time.Time
	StartTime         *string
	EndTime           *string
	OvertimeHours     *float64
	Reason            string
}

// Submit 校验各类型的必填字段，按类别落在对应的初始状态
func (e *Engine) Submit(actor *domain.User, input *SubmitInput) (*domain.ShiftRequest, error) {
	if !e.guard.CanSubmit(actor, input.Type) {
		return nil, ErrPermissionDenied
	}
	// 申请只能提交到自己所属的门店
	if input.BranchID != *actor.BranchID {
		return nil, ErrPermissionDenied
	}
	if err := validateSubmitInput(actor, input); err != nil {
		return nil, err
	}

	req := &domain.ShiftRequest{
		Type:              input.Type,
		StaffUserID:       actor.ID,
		TargetStaffUserID: input.TargetStaffUserID,
		BranchID:          input.BranchID,
		ShiftDate:         input.ShiftDate,
		StartTime:         input.StartTime,
		EndTime:           input.EndTime,
		OvertimeHours:     input.OvertimeHours,
		Reason:            input.Reason,
		Status:            input.Type.InitialStatus(),
	}

	if err := e.store.CreateShiftRequest(req); err != nil {
		return nil, err
	}

	e.notify(req, domain.EventSubmitted, actor.ID)

	return req, nil
}

// Respond 由目标同事确认或拒绝两级审批的申请。
// 确认只是把申请推进到等待经理审批，不关闭审核字段；
// 拒绝是终态，记录审核字段
func (e *Engine) Respond(actor *domain.User, requestID int64, accept bool, notes string) (*domain.ShiftRequest, error) {
	req, err := e.getRequest(requestID)
	if err != nil {
		return nil, err
	}

	if !e.guard.CanRespond(actor, req) {
		return nil, ErrPermissionDenied
	}
	if !CanTransition(req.Type, ActionRespond, req.Status) {
		return nil, ErrInvalidTransition
	}

	event := domain.EventResponded
	if accept {
		req.Status = domain.StatusPendingManagerApproval
	} else {
		req.Status = domain.StatusRejectedByTarget
		closeReview(req, actor.ID, notes)
		event = domain.EventRejectedByTarget
	}

	if err := e.applyUpdate(req); err != nil {
		return nil, err
	}

	e.notify(req, event, actor.ID)

	return req, nil
}

// Approve 由有门店管辖权的经理批准处于可审批状态的申请
func (e *Engine) Approve(actor *domain.User, requestID int64, notes string) (*domain.ShiftRequest, error) {
	return e.review(actor, requestID, ActionApprove, domain.StatusApproved, domain.EventApproved, notes)
}

// Reject 与 Approve 对称，前置状态也相同
func (e *Engine) Reject(actor *domain.User, requestID int64, notes string) (*domain.ShiftRequest, error) {
	return e.review(actor, requestID, ActionReject, domain.StatusRejected, domain.EventRejected, notes)
}

func (e *Engine) review(actor *domain.User, requestID int64, action Action, to domain.RequestStatus, event domain.RequestEvent, notes string) (*domain.ShiftRequest, error) {
	req, err := e.getRequest(requestID)
	if err != nil {
		return nil, err
	}

	allowed := e.guard.CanApprove(actor, req)
	if action == ActionReject {
		allowed = e.guard.CanReject(actor, req)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	if !CanTransition(req.Type, action, req.Status) {
		return nil, ErrInvalidTransition
	}

	req.Status = to
	closeReview(req, actor.ID, notes)

	if err := e.applyUpdate(req); err != nil {
		return nil, err
	}

	e.notify(req, event, actor.ID)

	return req, nil
}

// Cancel 由发起人在任何一级审批通过之前撤回申请
func (e *Engine) Cancel(actor *domain.User, requestID int64) (*domain.ShiftRequest, error) {
	req, err := e.getRequest(requestID)
	if err != nil {
		return nil, err
	}

	if !e.guard.CanCancel(actor, req) {
		return nil, ErrPermissionDenied
	}
	if !CanTransition(req.Type, ActionCancel, req.Status) {
		return nil, ErrInvalidTransition
	}

	req.Status = domain.StatusCancelled

	if err := e.applyUpdate(req); err != nil {
		return nil, err
	}

	e.notify(req, domain.EventCancelled, actor.ID)

	return req, nil
}

func (e *Engine) getRequest(id int64) (*domain.ShiftRequest, error) {
	req, err := e.store.GetShiftRequestByID(id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return req, nil
}

// applyUpdate 做条件写，写失败时再查一次来区分记录不存在和并发冲突
func (e *Engine) applyUpdate(req *domain.ShiftRequest) error {
	if err := e.store.UpdateShiftRequestWithVersion(req); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, getErr := e.store.GetShiftRequestByID(req.ID); getErr != nil {
				if errors.Is(getErr, sql.ErrNoRows) {
					return ErrNotFound
				}
				return getErr
			}
			return ErrConflict
		default:
			return err
		}
	}
	return nil
}

func closeReview(req *domain.ShiftRequest, reviewerID int64, notes string) {
	now := time.Now()
	req.ReviewNotes = &notes
	req.ReviewedBy = &reviewerID
	req.ReviewedAt = &now
}

// notify 是发射后不管的：投递失败只记日志，绝不让已成功的流转失败
func (e *Engine) notify(req *domain.ShiftRequest, event domain.RequestEvent, actorID int64) {
	n := &domain.RequestNotification{
		RequestID:        req.ID,
		Event:            event,
		RecipientUserIDs: recipients(req, actorID),
	}

	if err := e.dispatcher.Notify(n); err != nil {
		slog.Error("无法投递申请通知", "requestID", req.ID, "event", event, "error", err)
	}
}

// recipients 返回申请的相关人（发起人和目标同事），排除本次操作者自己。
// 等待经理审批的提醒由 notifier 根据事件自行补发给门店经理
func recipients(req *domain.ShiftRequest, actorID int64) []int64 {
	ids := []int64{}
	if req.StaffUserID != actorID {
		ids = append(ids, req.StaffUserID)
	}
	if req.TargetStaffUserID != nil && *req.TargetStaffUserID != actorID {
		ids = append(ids, *req.TargetStaffUserID)
	}
	return ids
}

func validateSubmitInput(actor *domain.User, input *SubmitInput) error {
	if !input.Type.Valid() {
		return newValidationError("type", "未知的申请类型 %s", input.Type)
	}

	if input.ShiftDate.IsZero() {
		return newValidationError("shiftDate", "必须指定班次日期")
	}

	// 目标同事当且仅当两级审批的类型存在
	if input.Type.RequiresTarget() {
		if input.TargetStaffUserID == nil {
			return newValidationError("targetStaffUserID", "该类型的申请必须指定目标同事")
		}
		if *input.TargetStaffUserID == actor.ID {
			return newValidationError("targetStaffUserID", "目标同事不能是发起人自己")
		}
		if input.StartTime == nil || input.EndTime == nil {
			return newValidationError("startTime", "该类型的申请必须指定班次的开始和结束时间")
		}
	} else if input.TargetStaffUserID != nil {
		return newValidationError("targetStaffUserID", "该类型的申请不能指定目标同事")
	}

	// 加班时长当且仅当加班申请存在且必须为正，加班不占用班次时间段
	if input.Type == domain.RequestTypeOvertime {
		if input.OvertimeHours == nil || *input.OvertimeHours <= 0 {
			return newValidationError("overtimeHours", "加班申请必须填写大于零的加班时长")
		}
		if input.StartTime != nil || input.EndTime != nil {
			return newValidationError("startTime", "加班申请不能填写班次时间")
		}
	} else if input.OvertimeHours != nil {
		return newValidationError("overtimeHours", "该类型的申请不能填写加班时长")
	}

	// 班次时间指定了就必须成对填写
	if (input.StartTime == nil) != (input.EndTime == nil) {
		return newValidationError("startTime", "班次的开始和结束时间必须同时填写")
	}

	if input.StartTime != nil && input.EndTime != nil {
		if err := utils.ValidateShiftWindow(*input.StartTime, *input.EndTime); err != nil {
			return newValidationError("startTime", "%s", err.Error())
		}
	}

	return nil
}
