package order

import (
	"strings"
	"time"
)

// Status 订单状态枚举（持久化为字符串）。
type Status string

const (
	StatusPendingPayment       Status = "pending_payment"        // 已创建，待买家支付
	StatusPaid                 Status = "paid"                   // 已支付，待农户邀请司机
	StatusAwaitingDriverAccept Status = "awaiting_driver_accept" // 已邀请司机，待抢单
	StatusDriverAssigned       Status = "driver_assigned"        // 司机已绑定，配送中
	StatusOTPVerified          Status = "otp_verified"           // 送达 OTP 已验证
	StatusDelivered            Status = "delivered"              // 已送达，待放款
	StatusCompleted            Status = "completed"              // 已完成（货款已放给农户）
	StatusCancelled            Status = "cancelled"              // 已取消（仅限支付前）
)

// Order 订单 GORM 模型。报价双方达成一致时创建，
// 复制最终数量与最终成交价（不一定等于货品标价）。
type Order struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// 业务关联
	OfferID   string `gorm:"uniqueIndex;size:36;not null" json:"offerId"`
	ListingID string `gorm:"index;size:36;not null" json:"listingId"`
	BuyerID   string `gorm:"index;size:36;not null" json:"buyerId"`
	FarmerID  string `gorm:"index;size:36;not null" json:"farmerId"`
	DriverID  string `gorm:"index;size:36" json:"driverId"` // 抢单成功后绑定，至多一名

	CropName string `gorm:"size:64" json:"cropName"`
	Status   Status `gorm:"type:varchar(24);index;not null" json:"status"`

	// 成交信息（数量单位：千克；价格单位：卢比/千克）
	Quantity   int64 `gorm:"not null" json:"quantity"`
	FinalPrice int64 `gorm:"not null" json:"finalPrice"`

	// 配送邀请（逗号分隔的司机 ID 集合）
	InvitedDrivers string `gorm:"size:1024" json:"-"`

	// 送达验证码（司机当面核对）
	OTPCode string `gorm:"size:12" json:"-"`

	// 支付与取消
	PaymentMethod      string `gorm:"size:32" json:"paymentMethod"`
	TransactionID      string `gorm:"size:64" json:"transactionId"`
	CancellationReason string `gorm:"size:255" json:"cancellationReason"`

	// 时间信息
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	PaidAt        *time.Time `json:"paidAt"`        // 支付时间
	InvitedAt     *time.Time `json:"invitedAt"`     // 首次邀请司机时间
	AssignedAt    *time.Time `json:"assignedAt"`    // 司机绑定时间
	OTPVerifiedAt *time.Time `json:"otpVerifiedAt"` // OTP 验证时间
	DeliveredAt   *time.Time `json:"deliveredAt"`   // 送达时间
	CompletedAt   *time.Time `json:"completedAt"`   // 放款完成时间
	CancelledAt   *time.Time `json:"cancelledAt"`   // 取消时间
}

// Amount 订单总金额。
func (o Order) Amount() int64 {
	return o.Quantity * o.FinalPrice
}

// InvitedSlice 解析被邀请司机集合。
func (o Order) InvitedSlice() []string {
	if strings.TrimSpace(o.InvitedDrivers) == "" {
		return nil
	}
	parts := strings.Split(o.InvitedDrivers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Invited 判断司机是否在邀请集合中。
func (o Order) Invited(driverID string) bool {
	for _, id := range o.InvitedSlice() {
		if id == driverID {
			return true
		}
	}
	return false
}

// InvitedJoin 序列化司机集合（去重、去空）。
func InvitedJoin(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return strings.Join(out, ",")
}
