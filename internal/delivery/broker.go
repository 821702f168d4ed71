package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/common/logger"
	"github.com/AgriDirect/AgriDirect/internal/notify"
	"github.com/AgriDirect/AgriDirect/internal/order"
	"github.com/AgriDirect/AgriDirect/internal/user"
	"gorm.io/gorm"
)

// Broker 配送接单仲裁。多个受邀司机竞争同一订单时，
// 以带状态守卫的单条 UPDATE 裁决，保证恰好一人成功。
type Broker struct {
	orders   *order.Repo
	users    *user.Repo
	notifier *notify.Service
	otpLen   int
	log      logger.Logger
}

func NewBroker(orders *order.Repo, users *user.Repo, notifier *notify.Service, otpLen int, log logger.Logger) *Broker {
	if otpLen <= 0 {
		otpLen = 6
	}
	return &Broker{orders: orders, users: users, notifier: notifier, otpLen: otpLen, log: log}
}

// Available 返回邀请了该司机且仍待接单的订单。
// LIKE 预筛可能带出 ID 前缀相同的误报，这里按解析后的集合二次过滤。
func (b *Broker) Available(ctx context.Context, driverID string) ([]order.Order, error) {
	rows, err := b.orders.ListAwaitingForDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, o := range rows {
		if o.Invited(driverID) {
			out = append(out, o)
		}
	}
	return out, nil
}

// MyDeliveries 返回该司机名下的全部配送单。
func (b *Broker) MyDeliveries(ctx context.Context, driverID string) ([]order.Order, error) {
	return b.orders.ListByDriver(ctx, driverID)
}

// Accept 司机接单。绑定司机、生成送达 OTP、推进状态，全部在一条
// 守卫 UPDATE 内完成；守卫未命中说明订单已被别的司机抢走。
func (b *Broker) Accept(ctx context.Context, orderID, driverID string) (*order.Order, error) {
	o, err := b.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusDriverAssigned {
		return nil, fmt.Errorf("delivery %s already taken: %w", orderID, apperr.ErrAlreadyAssigned)
	}
	if o.Status != order.StatusAwaitingDriverAccept || !o.Invited(driverID) {
		return nil, apperr.NotFoundf("delivery %s", orderID)
	}

	otp, err := notify.GenerateOTP(b.otpLen)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := order.ApplyTransition(o, order.StatusDriverAssigned, time.Now()); err != nil {
		return nil, err
	}
	o.DriverID = driverID
	o.OTPCode = otp

	rows, err := b.orders.UpdateGuarded(ctx, o, from,
		"status", "driver_id", "otp_code", "assigned_at")
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("delivery %s already taken: %w", orderID, apperr.ErrAlreadyAssigned)
	}

	b.sendOTP(ctx, o)
	return o, nil
}

// Decline 司机拒绝邀请，仅从邀请名单中移除自己。
// 名单是读改写，写回时以读取到的快照作守卫，过期写入直接失败。
// 名单清空时订单回退到 paid，农户可重新邀请。
func (b *Broker) Decline(ctx context.Context, orderID, driverID string) (*order.Order, error) {
	o, err := b.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusAwaitingDriverAccept || !o.Invited(driverID) {
		return nil, apperr.NotFoundf("delivery %s", orderID)
	}

	var remaining []string
	for _, id := range o.InvitedSlice() {
		if id != driverID {
			remaining = append(remaining, id)
		}
	}

	from := o.Status
	prevInvited := o.InvitedDrivers
	o.InvitedDrivers = strings.Join(remaining, ",")
	columns := []string{"invited_drivers"}
	if len(remaining) == 0 {
		if err := order.ApplyTransition(o, order.StatusPaid, time.Now()); err != nil {
			return nil, err
		}
		columns = append(columns, "status")
	}

	rows, err := b.orders.UpdateInvited(ctx, o, from, prevInvited, columns...)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("delivery %s changed concurrently: %w", orderID, apperr.ErrConflict)
	}
	return o, nil
}

func (b *Broker) sendOTP(ctx context.Context, o *order.Order) {
	if b.notifier == nil || b.users == nil {
		return
	}
	buyer, err := b.users.FindByID(ctx, o.BuyerID)
	if err != nil {
		if b.log != nil {
			b.log.WithError(err).Warnf("otp sms skipped, buyer %s not found", o.BuyerID)
		}
		return
	}
	if err := b.notifier.SendOTP(ctx, buyer.Phone, o.OTPCode); err != nil && b.log != nil {
		b.log.WithError(err).Warnf("otp sms failed for order %s", o.ID)
	}
}

func (b *Broker) load(ctx context.Context, orderID string) (*order.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validationf("order_id required")
	}
	o, err := b.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("delivery %s", orderID)
		}
		return nil, err
	}
	return o, nil
}
