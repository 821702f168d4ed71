package order

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, o *Order) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(o).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var o Order
	if err := db.Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateGuarded 状态守卫更新：仅当订单仍处于 from 状态时写入 o 的指定列。
// 返回命中的行数；0 表示另一并发操作已抢先改变状态。
func (r *Repo) UpdateGuarded(ctx context.Context, o *Order, from Status, columns ...string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns to update")
	}
	res := db.Model(&Order{}).
		Where("id = ? AND status = ?", o.ID, from).
		Select(columns).
		Updates(o)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// UpdateInvited 邀请名单的读改写更新：除状态守卫外还校验读取时的名单快照，
// 并发拒单不会互相覆盖。返回命中行数；0 表示名单已被并发修改，调用方重读后重试。
func (r *Repo) UpdateInvited(ctx context.Context, o *Order, from Status, prevInvited string, columns ...string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns to update")
	}
	res := db.Model(&Order{}).
		Where("id = ? AND status = ? AND invited_drivers = ?", o.ID, from, prevInvited).
		Select(columns).
		Updates(o)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ListByBuyer 买家订单列表。
func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, "buyer_id = ?", buyerID)
}

// ListByFarmer 农户订单列表。
func (r *Repo) ListByFarmer(ctx context.Context, farmerID string) ([]Order, error) {
	return r.list(ctx, "farmer_id = ?", farmerID)
}

// ListByDriver 司机已接订单列表。
func (r *Repo) ListByDriver(ctx context.Context, driverID string) ([]Order, error) {
	return r.list(ctx, "driver_id = ?", driverID)
}

// ListAwaitingForDriver 列出邀请了该司机、仍待抢单的订单。
// 邀请集合为逗号分隔的 UUID，LIKE 匹配足够精确。
func (r *Repo) ListAwaitingForDriver(ctx context.Context, driverID string) ([]Order, error) {
	return r.list(ctx, "status = ? AND invited_drivers LIKE ?",
		StatusAwaitingDriverAccept, "%"+driverID+"%")
}

func (r *Repo) list(ctx context.Context, query string, args ...interface{}) ([]Order, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var orders []Order
	if err := db.Where(query, args...).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
