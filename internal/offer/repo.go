package offer

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
	if ctx != nil {
		return r.db.WithContext(ctx)
	}
	return r.db
}

func (r *Repo) Create(ctx context.Context, o *Offer) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("offer repo db is nil")
	}
	return r.withCtx(ctx).Create(o).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Offer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("offer repo db is nil")
	}
	var o Offer
	if err := r.withCtx(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// FindOpenByListingAndBuyer 查找买家在某商品上仍在谈的报价。
func (r *Repo) FindOpenByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*Offer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("offer repo db is nil")
	}
	var o Offer
	err := r.withCtx(ctx).
		Where("listing_id = ? AND buyer_id = ? AND status IN ?", listingID, buyerID,
			[]Status{StatusPending, StatusCountered}).
		Order("created_at DESC").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateResponded 谈判动作的守卫更新：只有状态与上一步行动方都未变时才生效。
// 返回 0 行表示对方先行动了一步，调用方按冲突处理。
func (r *Repo) UpdateResponded(ctx context.Context, o *Offer, fromStatus Status, fromActor Actor) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("offer repo db is nil")
	}
	tx := r.withCtx(ctx).Model(&Offer{}).
		Where("id = ? AND status = ? AND last_action_by = ?", o.ID, fromStatus, fromActor).
		Select("status", "last_action_by", "counters").
		Updates(o)
	return tx.RowsAffected, tx.Error
}

// Delete 删除买家自己的已拒绝报价，其余状态不可删。
func (r *Repo) Delete(ctx context.Context, id, buyerID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("offer repo db is nil")
	}
	tx := r.withCtx(ctx).
		Where("id = ? AND buyer_id = ? AND status = ?", id, buyerID, StatusRejected).
		Delete(&Offer{})
	return tx.RowsAffected, tx.Error
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]Offer, error) {
	return r.list(ctx, "buyer_id = ?", buyerID)
}

func (r *Repo) ListByFarmer(ctx context.Context, farmerID string) ([]Offer, error) {
	return r.list(ctx, "farmer_id = ?", farmerID)
}

func (r *Repo) list(ctx context.Context, query string, args ...interface{}) ([]Offer, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("offer repo db is nil")
	}
	var rows []Offer
	err := r.withCtx(ctx).
		Where(query, args...).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
