package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/cafems-dev/shift-request/backend/internal/config"
	"github.com/cafems-dev/shift-request/backend/internal/domain"
	"github.com/cafems-dev/shift-request/backend/internal/notification"
	"github.com/cafems-dev/shift-request/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var requestTypeLabels = map[domain.RequestType]string{
	domain.RequestTypeSwap:       "换班",
	domain.RequestTypePickUp:     "顶班",
	domain.RequestTypeTwoWaySwap: "互换班次",
	domain.RequestTypeLeave:      "请假",
	domain.RequestTypeOvertime:   "加班",
}

var eventLabels = map[domain.RequestEvent]string{
	domain.EventSubmitted:        "已提交，等待处理",
	domain.EventResponded:        "已获目标同事同意，等待经理审批",
	domain.EventApproved:         "已获批准",
	domain.EventRejected:         "已被经理驳回",
	domain.EventRejectedByTarget: "已被目标同事拒绝",
	domain.EventCancelled:        "已被发起人撤回",
}

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库（把收件人 ID 解析成邮箱需要查库）
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancelPing()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 声明队列
	q, err := ch.QueueDeclare(
		notification.QueueName, // 队列名称
		true,                   // 是否持久化
		false,                  // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
		false,                  // 是否独占，即是否允许多个消费者访问这个队列
		false,                  // 是否不等待，设置为 false，即等待 RabbitMQ 确认队列是否创建成功
		nil,                    // 额外参数
	)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 消费消息
	msgs, err := ch.Consume(
		q.Name, // 队列
		"",     // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false,  // 是否自动确认消息
		false,  // 是否独占队列
		false,  // 是否禁止消费者接受自己发送的消息，必须设置为 false，因为 RabbitMQ 不支持这个参数
		false,  // 是否不等待，等待 RabbitMQ 响应
		nil,    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 用于关闭 goroutine 的上下文
	ctx, cancelConsume := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				logger.Info("收到消息", slog.String("message", string(msg.Body)))

				message := domain.NotificationMessage{}
				if err := json.Unmarshal(msg.Body, &message); err != nil {
					logger.Error("消息反序列化失败", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}

				switch message.Type {
				case notification.MessageTypeCreateUser:
					data := domain.CreateUserMailData{}
					if err = decodeData(message.Data, &data); err == nil {
						err = sendTemplateMail(client, cfg, message.To, "咖啡门店排班申请系统 - 账户信息", "./templates/new_account_email.html", data)
					}
				case notification.MessageTypeResetPassword:
					data := domain.ResetPasswordMailData{}
					if err = decodeData(message.Data, &data); err == nil {
						err = sendTemplateMail(client, cfg, message.To, "咖啡门店排班申请系统 - 重置密码", "./templates/reset_password_otp_email.html", data)
					}
				case notification.MessageTypeRequestEvent:
					err = handleRequestEvent(client, cfg, repo, message.Data)
				default:
					logger.Error("不支持的消息类型", slog.String("type", message.Type))
					_ = msg.Nack(false, false)
					continue
				}

				if err != nil {
					logger.Error("通知发送失败", slog.String("error", err.Error()))
					_ = msg.Nack(false, true) // 将消息重新入队
					continue
				}

				// 确认消息
				_ = msg.Ack(false)
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出
	slog.Info("正在关闭 notifier...")
	cancelConsume()
	wg.Wait() // 等待所有 goroutine 完成
	slog.Info("notifier 已成功关闭")
}

func sendTemplateMail(client *mail.Client, cfg *config.Config, to string, subject string, templatePath string, data any) error {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.From(cfg.Email.SMTP.Username); err != nil {
		return err
	}
	if err := m.To(to); err != nil {
		return err
	}
	if err := m.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return err
	}
	m.Subject(subject)

	return client.DialAndSend(m)
}

// 信封的 data 字段是 any，重新序列化一次得到具体类型
func decodeData(data any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// handleRequestEvent 把流转事件展开成一封封邮件：
// 信封里只带收件人 ID，邮箱和称呼在这里查库补全
func handleRequestEvent(client *mail.Client, cfg *config.Config, repo *repository.Repository, data any) error {
	event := domain.RequestNotification{}
	if err := decodeData(data, &event); err != nil {
		return err
	}

	request, err := repo.GetShiftRequestByID(event.RequestID)
	if err != nil {
		return err
	}

	recipients := make(map[int64]*domain.User)
	for _, id := range event.RecipientUserIDs {
		user, err := repo.GetUserByID(id)
		if err != nil {
			slog.Error("无法获取收件人信息", slog.Int64("userID", id), slog.String("error", err.Error()))
			continue
		}
		recipients[user.ID] = user
	}

	// 轮到经理审批的事件要额外通知门店经理
	if event.Event == domain.EventSubmitted && request.Status == domain.StatusPending ||
		event.Event == domain.EventResponded {
		managers, err := repo.GetUsersByBranchAndRole(request.BranchID, domain.RoleManager)
		if err != nil {
			slog.Error("无法获取门店经理列表", slog.Int64("branchID", request.BranchID), slog.String("error", err.Error()))
		}
		for _, manager := range managers {
			recipients[manager.ID] = manager
		}
	}

	for _, recipient := range recipients {
		mailData := domain.RequestEventMailData{
			FullName:    recipient.FullName,
			Event:       eventLabels[event.Event],
			RequestID:   request.ID,
			RequestType: requestTypeLabels[request.Type],
			ShiftDate:   request.ShiftDate.Format("2006-01-02"),
		}

		if err := sendTemplateMail(client, cfg, recipient.Email, "咖啡门店排班申请系统 - 申请进度更新", "./templates/shift_request_event_email.html", mailData); err != nil {
			return err
		}
	}

	return nil
}
