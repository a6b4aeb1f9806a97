package seed

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
	"github.com/cafems-dev/shift-request/backend/internal/repository"
)

type demoStaff struct {
	username string
	fullName string
	role     domain.Role
}

var demoCrew = []demoStaff{
	{username: "chenjing", fullName: "陈静", role: domain.RoleManager},
	{username: "liwei", fullName: "李伟", role: domain.RoleStaff},
	{username: "zhangmin", fullName: "张敏", role: domain.RoleStaff},
	{username: "wangchao", fullName: "王超", role: domain.RoleStaff},
	{username: "liumei", fullName: "刘梅", role: domain.RoleStaff},
}

// SeedDemoData 插入一个演示门店和一组员工，方便本地联调
func SeedDemoData(r *repository.Repository, password string, emailDomain string) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("无法生成密码哈希", "error", err)
		return
	}

	branch := &domain.Branch{
		Name:    "大学城旗舰店",
		Address: "大学城中环东路 120 号",
	}
	if err := r.CreateBranch(branch); err != nil {
		slog.Error("插入演示门店失败", "error", err)
		return
	}

	inserted := 0
	for _, member := range demoCrew {
		user := &domain.User{
			Username:     member.username,
			PasswordHash: string(passwordHash),
			FullName:     member.fullName,
			Email:        member.username + "@" + emailDomain,
			Role:         member.role,
			BranchID:     &branch.ID,
		}

		if err := r.CreateUser(user); err != nil {
			slog.Error("插入演示员工失败", "username", member.username, "error", err)
			continue
		}
		inserted++
	}

	slog.Info("演示数据插入完成", "branchID", branch.ID, "userCount", inserted)
}
