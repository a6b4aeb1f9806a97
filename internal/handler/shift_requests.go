package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
	"github.com/cafems-dev/shift-request/backend/internal/workflow"
)

// workflowError 把引擎的结构化错误翻译成给前端的提示
func (h *Handler) workflowError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *workflow.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.errorResponse(w, r, validationErr.Message)
	case errors.Is(err, workflow.ErrNotFound):
		h.errorResponse(w, r, "申请不存在")
	case errors.Is(err, workflow.ErrPermissionDenied):
		h.errorResponse(w, r, "无权执行该操作")
	case errors.Is(err, workflow.ErrInvalidTransition):
		h.errorResponse(w, r, "当前状态不允许该操作")
	case errors.Is(err, workflow.ErrConflict):
		h.errorResponse(w, r, "申请已被他人处理，请刷新后重试")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) SubmitShiftRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Type              string    `json:"type" validate:"required,oneof=SWAP PICK_UP TWO_WAY_SWAP LEAVE OVERTIME"`
		TargetStaffUserID *int64    `json:"targetStaffUserID"`
		BranchID          int64     `json:"branchID" validate:"required"`
		ShiftDate         time.Time `json:"shiftDate" validate:"required"`
		StartTime         *string   `json:"startTime"`
		EndTime           *string   `json:"endTime"`
		OvertimeHours     *float64  `json:"overtimeHours"`
		Reason            string    `json:"reason"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	input := &workflow.SubmitInput{
		Type:              domain.RequestType(req.Type),
		TargetStaffUserID: req.TargetStaffUserID,
		BranchID:          req.BranchID,
		ShiftDate:         req.ShiftDate,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		OvertimeHours:     req.OvertimeHours,
		Reason:            req.Reason,
	}

	request, err := h.engine.Submit(myInfo, input)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "shift_requests_target_staff_user_id_fkey":
				h.errorResponse(w, r, "目标同事不存在")
			case "shift_requests_branch_id_fkey":
				h.errorResponse(w, r, "门店不存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.workflowError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "提交申请成功", request)
}

func (h *Handler) GetShiftRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	request := r.Context().Value(ShiftRequestCtx).(*domain.ShiftRequest)

	// 只有申请的相关人和有管辖权的经理能查看
	guard := h.engine.Guard()
	isParticipant := myInfo.ID == request.StaffUserID ||
		(request.TargetStaffUserID != nil && myInfo.ID == *request.TargetStaffUserID)
	if !isParticipant && !guard.CanApprove(myInfo, request) {
		h.errorResponse(w, r, "无权查看该申请")
		return
	}

	h.successResponse(w, r, "获取申请成功", struct {
		Request        *domain.ShiftRequest `json:"request"`
		AllowedActions []workflow.Action    `json:"allowedActions"`
	}{
		Request:        request,
		AllowedActions: guard.AllowedActions(myInfo, request),
	})
}

func (h *Handler) RespondShiftRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	request := r.Context().Value(ShiftRequestCtx).(*domain.ShiftRequest)

	var req struct {
		Accept *bool  `json:"accept" validate:"required"`
		Notes  string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.engine.Respond(myInfo, request.ID, *req.Accept, req.Notes)
	if err != nil {
		h.workflowError(w, r, err)
		return
	}

	h.successResponse(w, r, "处理申请成功", updated)
}

func (h *Handler) ApproveShiftRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	request := r.Context().Value(ShiftRequestCtx).(*domain.ShiftRequest)

	var req struct {
		Notes string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.engine.Approve(myInfo, request.ID, req.Notes)
	if err != nil {
		h.workflowError(w, r, err)
		return
	}

	h.successResponse(w, r, "批准申请成功", updated)
}

func (h *Handler) RejectShiftRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	request := r.Context().Value(ShiftRequestCtx).(*domain.ShiftRequest)

	var req struct {
		Notes string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.engine.Reject(myInfo, request.ID, req.Notes)
	if err != nil {
		h.workflowError(w, r, err)
		return
	}

	h.successResponse(w, r, "驳回申请成功", updated)
}

func (h *Handler) CancelShiftRequest(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	request := r.Context().Value(ShiftRequestCtx).(*domain.ShiftRequest)

	updated, err := h.engine.Cancel(myInfo, request.ID)
	if err != nil {
		h.workflowError(w, r, err)
		return
	}

	h.successResponse(w, r, "撤回申请成功", updated)
}

func (h *Handler) GetBranchShiftRequests(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	// 经理只能查看自己门店的申请，管理员通过 branchID 参数指定门店
	var branchID int64
	switch {
	case myInfo.Role == domain.RoleAdmin:
		branchIDParam := r.URL.Query().Get("branchID")
		parsed, err := strconv.ParseInt(branchIDParam, 10, 64)
		if err != nil {
			h.errorResponse(w, r, "门店ID无效")
			return
		}
		branchID = parsed
	case myInfo.BranchID != nil:
		branchID = *myInfo.BranchID
	default:
		h.errorResponse(w, r, "您不属于任何门店")
		return
	}

	var status *domain.RequestStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		s := domain.RequestStatus(statusParam)
		if !s.Valid() {
			h.errorResponse(w, r, "无效的申请状态")
			return
		}
		status = &s
	}

	requests, err := h.repository.GetShiftRequestsByBranch(branchID, status)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取门店申请列表成功", requests)
}

func (h *Handler) GetMyShiftRequests(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	direction := domain.DirectionOutgoing
	if directionParam := r.URL.Query().Get("direction"); directionParam != "" {
		direction = domain.RequestDirection(directionParam)
		if !direction.Valid() {
			h.errorResponse(w, r, "无效的查询方向")
			return
		}
	}

	requests, err := h.repository.GetShiftRequestsByStaff(myInfo.ID, direction)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取我的申请列表成功", requests)
}
