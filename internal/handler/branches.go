package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name" validate:"required"`
		Address string `json:"address"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	branch := &domain.Branch{
		Name:    req.Name,
		Address: req.Address,
	}

	if err := h.repository.CreateBranch(branch); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "branches_name_key":
				h.errorResponse(w, r, "门店名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建门店成功", branch)
}

func (h *Handler) GetBranch(w http.ResponseWriter, r *http.Request) {
	branch := r.Context().Value(BranchCtx).(*domain.Branch)

	h.successResponse(w, r, "获取门店成功", branch)
}

func (h *Handler) GetAllBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.repository.GetAllBranches()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有门店成功", branches)
}

func (h *Handler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
	branch := r.Context().Value(BranchCtx).(*domain.Branch)

	var req struct {
		Name    *string `json:"name"`
		Address *string `json:"address"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		branch.Name = *req.Name
	}
	if req.Address != nil {
		branch.Address = *req.Address
	}

	if err := h.repository.UpdateBranch(branch); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "branches_name_key":
				h.errorResponse(w, r, "门店名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新门店失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新门店成功", branch)
}

func (h *Handler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	branch := r.Context().Value(BranchCtx).(*domain.Branch)

	if err := h.repository.DeleteBranch(branch.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除门店成功", nil)
}
