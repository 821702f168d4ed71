package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/listing"
	"github.com/AgriDirect/AgriDirect/internal/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service 报价谈判用例。接受报价会在同一事务里完成
// 报价终态化、库存预留和订单落库，三者要么全部生效要么全部回滚。
type Service struct {
	db       *gorm.DB
	repo     *Repo
	listings *listing.Repo
}

func NewService(db *gorm.DB, repo *Repo, listings *listing.Repo) *Service {
	return &Service{db: db, repo: repo, listings: listings}
}

// SubmitInput 买家首次报价。
type SubmitInput struct {
	ListingID    string `json:"listingId"`
	Quantity     int64  `json:"quantity"`
	OfferedPrice int64  `json:"offeredPrice"`
}

// Submit 买家对商品发起报价。数量超出可售量时直接拒绝，不落库。
func (s *Service) Submit(ctx context.Context, buyerID string, in SubmitInput) (*Offer, error) {
	in.ListingID = strings.TrimSpace(in.ListingID)
	if in.ListingID == "" {
		return nil, apperr.Validationf("listingId required")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive")
	}
	if in.OfferedPrice <= 0 {
		return nil, apperr.Validationf("offeredPrice must be positive")
	}

	l, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("listing %s", in.ListingID)
		}
		return nil, err
	}
	if l.Status != listing.StatusActive {
		return nil, apperr.Validationf("listing %s is no longer available", in.ListingID)
	}
	if l.FarmerID == buyerID {
		return nil, apperr.Validationf("cannot make an offer on your own listing")
	}
	if in.Quantity > l.Quantity {
		return nil, fmt.Errorf("requested %d kg, only %d kg available: %w",
			in.Quantity, l.Quantity, apperr.ErrInsufficientQuantity)
	}

	o := &Offer{
		ID:           uuid.NewString(),
		ListingID:    l.ID,
		BuyerID:      buyerID,
		FarmerID:     l.FarmerID,
		CropName:     l.CropName,
		Quantity:     in.Quantity,
		OfferPrice:   in.OfferedPrice,
		Status:       StatusPending,
		LastActionBy: ActorBuyer,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Counter actor 对报价还价。并发响应时只有先到的一方生效。
func (s *Service) Counter(ctx context.Context, offerID, callerID string, actor Actor, price int64) (*Offer, error) {
	o, err := s.loadFor(ctx, offerID, callerID, actor)
	if err != nil {
		return nil, err
	}

	fromStatus, fromActor := o.Status, o.LastActionBy
	if err := ApplyCounter(o, actor, price, time.Now()); err != nil {
		return nil, err
	}
	return s.saveResponse(ctx, o, fromStatus, fromActor)
}

// CounterByListing 买家按商品还价：对该商品已有在谈报价则追加还价，
// 没有则按给定数量新建报价。
func (s *Service) CounterByListing(ctx context.Context, buyerID, listingID string, price, quantity int64) (*Offer, error) {
	o, err := s.repo.FindOpenByListingAndBuyer(ctx, listingID, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.Submit(ctx, buyerID, SubmitInput{
				ListingID:    listingID,
				Quantity:     quantity,
				OfferedPrice: price,
			})
		}
		return nil, err
	}

	fromStatus, fromActor := o.Status, o.LastActionBy
	if err := ApplyCounter(o, ActorBuyer, price, time.Now()); err != nil {
		return nil, err
	}
	return s.saveResponse(ctx, o, fromStatus, fromActor)
}

// Accept actor 接受当前在谈价格。事务内依次：报价守卫更新、
// 库存预留、订单创建。库存不足时整体回滚，报价保持可谈。
func (s *Service) Accept(ctx context.Context, offerID, callerID string, actor Actor) (*Offer, *order.Order, error) {
	o, err := s.loadFor(ctx, offerID, callerID, actor)
	if err != nil {
		return nil, nil, err
	}

	fromStatus, fromActor := o.Status, o.LastActionBy
	if err := ApplyAccept(o, actor); err != nil {
		return nil, nil, err
	}

	ord := &order.Order{
		ID:         uuid.NewString(),
		OfferID:    o.ID,
		ListingID:  o.ListingID,
		BuyerID:    o.BuyerID,
		FarmerID:   o.FarmerID,
		CropName:   o.CropName,
		Status:     order.StatusPendingPayment,
		Quantity:   o.Quantity,
		FinalPrice: o.CurrentPrice(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := NewRepo(tx).UpdateResponded(ctx, o, fromStatus, fromActor)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("offer %s changed concurrently: %w", offerID, apperr.ErrConflict)
		}
		if err := listing.NewRepo(tx).Reserve(ctx, o.ListingID, o.Quantity); err != nil {
			return err
		}
		return order.NewRepo(tx).Create(ctx, ord)
	})
	if err != nil {
		return nil, nil, err
	}
	return o, ord, nil
}

// Reject actor 拒绝报价。
func (s *Service) Reject(ctx context.Context, offerID, callerID string, actor Actor) (*Offer, error) {
	o, err := s.loadFor(ctx, offerID, callerID, actor)
	if err != nil {
		return nil, err
	}

	fromStatus, fromActor := o.Status, o.LastActionBy
	if err := ApplyReject(o, actor); err != nil {
		return nil, err
	}
	return s.saveResponse(ctx, o, fromStatus, fromActor)
}

// Remove 买家清理自己的已拒绝报价。
func (s *Service) Remove(ctx context.Context, offerID, buyerID string) error {
	rows, err := s.repo.Delete(ctx, offerID, buyerID)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	o, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("offer %s", offerID)
		}
		return err
	}
	if o.BuyerID != buyerID {
		return apperr.NotFoundf("offer %s", offerID)
	}
	return fmt.Errorf("only rejected offers can be removed: %w", apperr.ErrConflict)
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string) ([]Offer, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *Service) ListByFarmer(ctx context.Context, farmerID string) ([]Offer, error) {
	return s.repo.ListByFarmer(ctx, farmerID)
}

func (s *Service) saveResponse(ctx context.Context, o *Offer, fromStatus Status, fromActor Actor) (*Offer, error) {
	rows, err := s.repo.UpdateResponded(ctx, o, fromStatus, fromActor)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("offer %s changed concurrently: %w", o.ID, apperr.ErrConflict)
	}
	return o, nil
}

// loadFor 加载报价并校验 actor 是报价的对应参与方。
func (s *Service) loadFor(ctx context.Context, offerID, callerID string, actor Actor) (*Offer, error) {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return nil, apperr.Validationf("offer_id required")
	}
	o, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("offer %s", offerID)
		}
		return nil, err
	}
	owner := o.BuyerID
	if actor == ActorFarmer {
		owner = o.FarmerID
	}
	if owner != callerID {
		return nil, apperr.NotFoundf("offer %s", offerID)
	}
	return o, nil
}
