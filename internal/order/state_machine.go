package order

import (
	"fmt"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
)

// AllowTransition 定义订单状态机的允许流转关系。
// awaiting_driver_accept -> paid 是唯一的“回退”边：
// 全部受邀司机拒单后订单回到 paid，农户可重新邀请。
var AllowTransition = map[Status][]Status{
	StatusPendingPayment:       {StatusPaid, StatusCancelled},
	StatusPaid:                 {StatusAwaitingDriverAccept},
	StatusAwaitingDriverAccept: {StatusDriverAssigned, StatusPaid},
	StatusDriverAssigned:       {StatusOTPVerified},
	StatusOTPVerified:          {StatusDelivered},
	StatusDelivered:            {StatusCompleted},
	// 终态：不允许从 completed / cancelled 再流转
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
// from == to 视为允许（幂等重试场景：重复支付确认、重复放款）。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对订单应用状态变更，并维护关键时间字段。
func ApplyTransition(o *Order, to Status, now time.Time) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}
	from := o.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("order status %s -> %s: %w", from, to, apperr.ErrInvalidStateTransition)
	}

	o.Status = to

	switch to {
	case StatusPaid:
		if o.PaidAt == nil {
			t := now
			o.PaidAt = &t
		}
	case StatusAwaitingDriverAccept:
		if o.InvitedAt == nil {
			t := now
			o.InvitedAt = &t
		}
	case StatusDriverAssigned:
		if o.AssignedAt == nil {
			t := now
			o.AssignedAt = &t
		}
	case StatusOTPVerified:
		if o.OTPVerifiedAt == nil {
			t := now
			o.OTPVerifiedAt = &t
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	case StatusCompleted:
		if o.CompletedAt == nil {
			t := now
			o.CompletedAt = &t
		}
	case StatusCancelled:
		if o.CancelledAt == nil {
			t := now
			o.CancelledAt = &t
		}
	}
	return nil
}
