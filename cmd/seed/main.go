package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/cafems-dev/shift-request/backend/internal/config"
	"github.com/cafems-dev/shift-request/backend/internal/domain"
	"github.com/cafems-dev/shift-request/backend/internal/repository"
	"github.com/cafems-dev/shift-request/backend/internal/seed"
	"github.com/cafems-dev/shift-request/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var branchID int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机门店, 2: 插入随机员工, 3: 插入随机申请, 4: 插入演示数据)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Int64Var(&branchID, "branch-id", 0, "随机员工或申请所属的门店 ID")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的门店数量")
			return
		}

		cnt := n
		for i := 0; i < n; i++ {
			branch := utils.GenerateRandomBranch()
			if err := repo.CreateBranch(branch); err != nil {
				slog.Error("无法插入门店", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入门店成功", slog.Int("count", n-cnt))
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}
		if branchID <= 0 {
			slog.Error("请输入合法的门店 ID")
			return
		}

		cnt := n
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomStaff(cfg.Seed.User.Password, cfg.Email.UserDomain, branchID)
			if err != nil {
				slog.Error("无法生成随机员工", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(user); err != nil {
				slog.Error("无法插入员工", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入员工成功", slog.Int("count", n-cnt))
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的申请数量")
			return
		}
		if branchID <= 0 {
			slog.Error("请输入合法的门店 ID")
			return
		}

		// 先获取门店的所有普通员工作为发起人和目标候选
		staff, err := repo.GetUsersByBranchAndRole(branchID, domain.RoleStaff)
		if err != nil {
			slog.Error("无法获取门店员工列表", slog.String("error", err.Error()))
			return
		}
		if len(staff) == 0 {
			slog.Error("该门店没有员工，请先插入员工")
			return
		}

		cnt := n
		for i := 0; i < n; i++ {
			initiator := staff[rand.Intn(len(staff))]

			// 随机挑一个同门店的其他员工作为目标，只有一个人时只能生成单级审批的申请
			var target *domain.User
			if len(staff) > 1 {
				for {
					candidate := staff[rand.Intn(len(staff))]
					if candidate.ID != initiator.ID {
						target = candidate
						break
					}
				}
			}

			request := utils.GenerateRandomShiftRequest(initiator, target)
			if err := repo.CreateShiftRequest(request); err != nil {
				slog.Error("无法插入申请", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入申请成功", slog.Int("count", n-cnt))
	case 4:
		seed.SeedDemoData(repo, cfg.Seed.User.Password, cfg.Email.UserDomain)
	default:
		slog.Error("指定的操作非法")
	}
}
