package listing

import (
	"context"
	"fmt"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
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

func (r *Repo) Create(ctx context.Context, l *Listing) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(l).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Listing, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var l Listing
	if err := db.Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateDetails 更新货品展示字段与价格；库存只能走守卫更新。
func (r *Repo) UpdateDetails(ctx context.Context, l *Listing) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Model(&Listing{}).Where("id = ?", l.ID).
		Select("crop_name", "category", "location", "image_url", "price_per_kg").
		Updates(l).Error
}

// Delete 删除货品；存在在途预留时拒绝删除。
func (r *Repo) Delete(ctx context.Context, id, farmerID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ? AND farmer_id = ? AND reserved = 0", id, farmerID).Delete(&Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s has reserved stock or does not exist: %w", id, apperr.ErrConflict)
	}
	return nil
}

// ListByFarmer 列出某农户的全部货品。
func (r *Repo) ListByFarmer(ctx context.Context, farmerID string) ([]Listing, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var listings []Listing
	err := db.Where("farmer_id = ?", farmerID).Order("created_at DESC").Find(&listings).Error
	return listings, err
}

// ListActive 列出全部在售货品（买家市场页）。
func (r *Repo) ListActive(ctx context.Context) ([]Listing, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var listings []Listing
	err := db.Where("status = ?", StatusActive).Order("created_at DESC").Find(&listings).Error
	return listings, err
}

// Reserve 预留库存：quantity -= qty，reserved += qty，
// 仅当可用库存足够时生效。守卫 UPDATE 保证并发报价不会超卖。
// 库存减到 0 时状态翻为 exhausted。
func (r *Repo) Reserve(ctx context.Context, id string, qty int64) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if qty <= 0 {
		return apperr.Validationf("reserve quantity must be positive")
	}
	res := db.Model(&Listing{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", qty),
			"reserved": gorm.Expr("reserved + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s: %w", id, apperr.ErrInsufficientQuantity)
	}
	// 耗尽判定拆成第二条 UPDATE。SET 子句里引用 quantity 时
	// MySQL 取赋值后的新值而 SQLite 取旧值，CASE 表达式不可移植。
	return db.Model(&Listing{}).
		Where("id = ? AND quantity = 0", id).
		Update("status", string(StatusExhausted)).Error
}

// Release 释放预留（订单取消）：quantity += qty，reserved -= qty，状态恢复 active。
func (r *Repo) Release(ctx context.Context, id string, qty int64) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if qty <= 0 {
		return apperr.Validationf("release quantity must be positive")
	}
	res := db.Model(&Listing{}).
		Where("id = ? AND reserved >= ?", id, qty).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", qty),
			"reserved": gorm.Expr("reserved - ?", qty),
			"status":   string(StatusActive),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s release exceeds reservation: %w", id, apperr.ErrConflict)
	}
	return nil
}

// Consume 消耗预留（订单送达）：reserved -= qty，库存正式出库。
func (r *Repo) Consume(ctx context.Context, id string, qty int64) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if qty <= 0 {
		return apperr.Validationf("consume quantity must be positive")
	}
	res := db.Model(&Listing{}).
		Where("id = ? AND reserved >= ?", id, qty).
		Update("reserved", gorm.Expr("reserved - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s consume exceeds reservation: %w", id, apperr.ErrConflict)
	}
	return nil
}
