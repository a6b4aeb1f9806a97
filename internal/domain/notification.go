package domain

// RequestEvent 命名一次成功的申请流转，作为通知消息的事件名
type RequestEvent string

const (
	EventSubmitted        RequestEvent = "submitted"
	EventResponded        RequestEvent = "responded"
	EventApproved         RequestEvent = "approved"
	EventRejected         RequestEvent = "rejected"
	EventRejectedByTarget RequestEvent = "rejected_by_target"
	EventCancelled        RequestEvent = "cancelled"
)

// NotificationMessage 是发往消息队列的统一信封，由 cmd/notifier 消费
type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to,omitempty"`
	Data any    `json:"data"`
}

// RequestNotification 描述一次申请流转事件，投递本身不在本服务内完成
type RequestNotification struct {
	RequestID        int64        `json:"requestID"`
	Event            RequestEvent `json:"event"`
	RecipientUserIDs []int64      `json:"recipientUserIDs"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type RequestEventMailData struct {
	FullName    string `json:"fullName"`
	Event       string `json:"event"`
	RequestID   int64  `json:"requestID"`
	RequestType string `json:"requestType"`
	ShiftDate   string `json:"shiftDate"`
}
