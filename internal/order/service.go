package order

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/listing"
	"github.com/AgriDirect/AgriDirect/internal/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 封装订单履约用例。所有状态变更都是“读取 -> 状态机校验 -> 守卫更新”，
// 守卫未命中即返回冲突，调用方重新拉取最新状态。
type Service struct {
	db       *gorm.DB
	repo     *Repo
	listings *listing.Repo
	users    *user.Repo
}

func NewService(db *gorm.DB, repo *Repo, listings *listing.Repo, users *user.Repo) *Service {
	return &Service{db: db, repo: repo, listings: listings, users: users}
}

// Get 查询订单；仅订单参与方（买家/农户/司机）可见。
func (s *Service) Get(ctx context.Context, orderID, callerID string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != callerID && o.FarmerID != callerID && o.DriverID != callerID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	return o, nil
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *Service) ListByFarmer(ctx context.Context, farmerID string) ([]Order, error) {
	return s.repo.ListByFarmer(ctx, farmerID)
}

// Pay 支付确认：pending_payment -> paid，记录交易号与支付时间。
// 对已支付订单的重复确认按成功处理（客户端重试场景），不产生二次效果。
func (s *Service) Pay(ctx context.Context, orderID, buyerID, method string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	if o.Status == StatusPaid {
		return o, nil
	}
	if o.Status != StatusPendingPayment {
		return nil, apperr.InvalidTransitionf("pay from status %s", o.Status)
	}

	method = strings.TrimSpace(method)
	if method == "" {
		method = "Online"
	}

	from := o.Status
	if err := ApplyTransition(o, StatusPaid, time.Now()); err != nil {
		return nil, err
	}
	o.PaymentMethod = method
	o.TransactionID = "TXN-" + uuid.NewString()

	rows, err := s.repo.UpdateGuarded(ctx, o, from,
		"status", "payment_method", "transaction_id", "paid_at")
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("order %s changed concurrently: %w", orderID, apperr.ErrConflict)
	}
	return o, nil
}

// Cancel 取消订单：仅 pending_payment 可取消，必须给出原因；
// 取消与库存释放在同一事务内完成。
func (s *Service) Cancel(ctx context.Context, orderID, buyerID, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validationf("cancellation reason required")
	}

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	if o.Status != StatusPendingPayment {
		// 支付后取消走退款流程，不在本服务范围内
		return nil, apperr.InvalidTransitionf("cancel from status %s", o.Status)
	}

	from := o.Status
	if err := ApplyTransition(o, StatusCancelled, time.Now()); err != nil {
		return nil, err
	}
	o.CancellationReason = reason

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := NewRepo(tx).UpdateGuarded(ctx, o, from,
			"status", "cancellation_reason", "cancelled_at")
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("order %s changed concurrently: %w", orderID, apperr.ErrConflict)
		}
		return listing.NewRepo(tx).Release(ctx, o.ListingID, o.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// AssignDrivers 农户发起多司机邀请：paid -> awaiting_driver_accept。
func (s *Service) AssignDrivers(ctx context.Context, orderID, farmerID string, driverIDs []string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.FarmerID != farmerID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	if o.Status != StatusPaid {
		return nil, apperr.InvalidTransitionf("assign drivers from status %s", o.Status)
	}

	invited := InvitedJoin(driverIDs)
	if invited == "" {
		return nil, apperr.Validationf("at least one driver required")
	}
	for _, id := range strings.Split(invited, ",") {
		d, err := s.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFoundf("driver %s", id)
			}
			return nil, err
		}
		if d.Role != user.RoleDriver {
			return nil, apperr.Validationf("user %s is not a driver", id)
		}
	}

	from := o.Status
	if err := ApplyTransition(o, StatusAwaitingDriverAccept, time.Now()); err != nil {
		return nil, err
	}
	o.InvitedDrivers = invited

	rows, err := s.repo.UpdateGuarded(ctx, o, from, "status", "invited_drivers", "invited_at")
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("order %s changed concurrently: %w", orderID, apperr.ErrConflict)
	}
	return o, nil
}

// VerifyOTP 司机提交送达验证码：driver_assigned -> otp_verified。
func (s *Service) VerifyOTP(ctx context.Context, orderID, driverID, code string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DriverID != driverID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	if o.Status != StatusDriverAssigned {
		return nil, apperr.InvalidTransitionf("verify otp from status %s", o.Status)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validationf("otp required")
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(o.OTPCode)) != 1 {
		return nil, fmt.Errorf("order %s: %w", orderID, apperr.ErrOTPMismatch)
	}

	from := o.Status
	if err := ApplyTransition(o, StatusOTPVerified, time.Now()); err != nil {
		return nil, err
	}

	rows, err := s.repo.UpdateGuarded(ctx, o, from, "status", "otp_verified_at")
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("order %s changed concurrently: %w", orderID, apperr.ErrConflict)
	}
	return o, nil
}

// CompleteDelivery 司机确认送达：otp_verified -> delivered，同事务消耗库存预留。
func (s *Service) CompleteDelivery(ctx context.Context, orderID, driverID string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DriverID != driverID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	if o.Status != StatusOTPVerified {
		return nil, apperr.InvalidTransitionf("complete delivery from status %s", o.Status)
	}

	from := o.Status
	if err := ApplyTransition(o, StatusDelivered, time.Now()); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := NewRepo(tx).UpdateGuarded(ctx, o, from, "status", "delivered_at")
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("order %s changed concurrently: %w", orderID, apperr.ErrConflict)
		}
		return listing.NewRepo(tx).Consume(ctx, o.ListingID, o.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ReleasePayment 放款给农户：delivered -> completed。
// 幂等：对已 completed 的订单重复调用按成功返回，状态不变。
func (s *Service) ReleasePayment(ctx context.Context, orderID, callerID string) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != callerID && o.FarmerID != callerID {
		return nil, apperr.NotFoundf("order %s", orderID)
	}
	if o.Status == StatusCompleted {
		return o, nil
	}
	if o.Status != StatusDelivered {
		return nil, apperr.InvalidTransitionf("release payment from status %s", o.Status)
	}

	from := o.Status
	if err := ApplyTransition(o, StatusCompleted, time.Now()); err != nil {
		return nil, err
	}

	rows, err := s.repo.UpdateGuarded(ctx, o, from, "status", "completed_at")
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("order %s changed concurrently: %w", orderID, apperr.ErrConflict)
	}
	return o, nil
}

// Receipt 订单回执。
type Receipt struct {
	Order      *Order `json:"order"`
	BuyerName  string `json:"buyerName"`
	FarmerName string `json:"farmerName"`
	DriverName string `json:"driverName,omitempty"`
	Amount     int64  `json:"amount"`
	OTPCode    string `json:"otpCode,omitempty"` // 仅买家可见
}

// BuildReceipt 组装订单回执；买家视角附带送达 OTP。
func (s *Service) BuildReceipt(ctx context.Context, orderID, callerID string) (*Receipt, error) {
	o, err := s.Get(ctx, orderID, callerID)
	if err != nil {
		return nil, err
	}

	r := &Receipt{Order: o, Amount: o.Amount()}
	if u, err := s.users.FindByID(ctx, o.BuyerID); err == nil {
		r.BuyerName = u.Name
	}
	if u, err := s.users.FindByID(ctx, o.FarmerID); err == nil {
		r.FarmerName = u.Name
	}
	if o.DriverID != "" {
		if u, err := s.users.FindByID(ctx, o.DriverID); err == nil {
			r.DriverName = u.Name
		}
	}
	if callerID == o.BuyerID {
		r.OTPCode = o.OTPCode
	}
	return r, nil
}

func (s *Service) load(ctx context.Context, orderID string) (*Order, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validationf("order_id required")
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("order %s", orderID)
		}
		return nil, err
	}
	return o, nil
}
