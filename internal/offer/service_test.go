package offer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/listing"
	"github.com/AgriDirect/AgriDirect/internal/order"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&listing.Listing{}, &Offer{}, &order.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, NewRepo(db), listing.NewRepo(db)), db
}

func seedListing(t *testing.T, db *gorm.DB, qty, price int64) *listing.Listing {
	t.Helper()
	l := &listing.Listing{
		ID:         uuid.NewString(),
		FarmerID:   "farmer-1",
		CropName:   "Tomato",
		Category:   "Vegetable",
		Location:   "Pune",
		Quantity:   qty,
		PricePerKg: price,
		Status:     listing.StatusActive,
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return l
}

func TestNegotiationRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	l := seedListing(t, db, 100, 25)

	o, err := svc.Submit(ctx, "buyer-1", SubmitInput{ListingID: l.ID, Quantity: 50, OfferedPrice: 20})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Counter(ctx, o.ID, "farmer-1", ActorFarmer, 22); err != nil {
		t.Fatalf("farmer counter: %v", err)
	}

	accepted, ord, err := svc.Accept(ctx, o.ID, "buyer-1", ActorBuyer)
	if err != nil {
		t.Fatalf("buyer accept: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("offer status = %s, want accepted", accepted.Status)
	}
	if ord.Status != order.StatusPendingPayment {
		t.Fatalf("order status = %s, want pending_payment", ord.Status)
	}
	if ord.FinalPrice != 22 {
		t.Fatalf("final price = %d, want countered 22", ord.FinalPrice)
	}
	if ord.Quantity != 50 {
		t.Fatalf("order quantity = %d, want 50", ord.Quantity)
	}

	var got listing.Listing
	if err := db.First(&got, "id = ?", l.ID).Error; err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if got.Quantity != 50 || got.Reserved != 50 {
		t.Fatalf("listing quantity/reserved = %d/%d, want 50/50", got.Quantity, got.Reserved)
	}
}

func TestSubmitRejectsExcessQuantity(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	l := seedListing(t, db, 30, 25)

	_, err := svc.Submit(ctx, "buyer-1", SubmitInput{ListingID: l.ID, Quantity: 31, OfferedPrice: 20})
	if !errors.Is(err, apperr.ErrInsufficientQuantity) {
		t.Fatalf("err = %v, want ErrInsufficientQuantity", err)
	}

	var count int64
	if err := db.Model(&Offer{}).Count(&count).Error; err != nil {
		t.Fatalf("count offers: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected submit must not create an offer, found %d", count)
	}
}

func TestAcceptRollsBackWhenStockRanOut(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	l := seedListing(t, db, 100, 25)

	o, err := svc.Submit(ctx, "buyer-1", SubmitInput{ListingID: l.ID, Quantity: 80, OfferedPrice: 20})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 另一笔成交抢先吃掉了大部分库存
	if err := db.Model(&listing.Listing{}).Where("id = ?", l.ID).
		Update("quantity", 40).Error; err != nil {
		t.Fatalf("shrink stock: %v", err)
	}

	if _, _, err := svc.Accept(ctx, o.ID, "farmer-1", ActorFarmer); !errors.Is(err, apperr.ErrInsufficientQuantity) {
		t.Fatalf("err = %v, want ErrInsufficientQuantity", err)
	}

	reloaded, err := svc.repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("reload offer: %v", err)
	}
	if !reloaded.Open() {
		t.Fatalf("failed accept must roll back, offer status = %s", reloaded.Status)
	}
	var orders int64
	if err := db.Model(&order.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("failed accept must not create an order, found %d", orders)
	}
}

func TestRejectThenRemove(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	l := seedListing(t, db, 60, 25)

	o, err := svc.Submit(ctx, "buyer-1", SubmitInput{ListingID: l.ID, Quantity: 10, OfferedPrice: 18})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Remove(ctx, o.ID, "buyer-1"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("remove pending offer: err = %v, want ErrConflict", err)
	}

	if _, err := svc.Reject(ctx, o.ID, "farmer-1", ActorFarmer); err != nil {
		t.Fatalf("farmer reject: %v", err)
	}

	var got listing.Listing
	if err := db.First(&got, "id = ?", l.ID).Error; err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if got.Quantity != 60 || got.Reserved != 0 {
		t.Fatalf("reject must leave stock unchanged, got %d/%d", got.Quantity, got.Reserved)
	}

	if err := svc.Remove(ctx, o.ID, "buyer-1"); err != nil {
		t.Fatalf("remove rejected offer: %v", err)
	}
	if err := svc.Remove(ctx, o.ID, "buyer-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("remove twice: err = %v, want ErrNotFound", err)
	}
}

func TestCounterByListingCreatesOrAppends(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	l := seedListing(t, db, 100, 25)

	// 无在谈报价：按商品还价等价于新建报价
	o, err := svc.CounterByListing(ctx, "buyer-1", l.ID, 21, 40)
	if err != nil {
		t.Fatalf("counter by listing (create): %v", err)
	}
	if o.Status != StatusPending || o.OfferPrice != 21 {
		t.Fatalf("created offer = %s/%d, want pending/21", o.Status, o.OfferPrice)
	}

	if _, err := svc.Counter(ctx, o.ID, "farmer-1", ActorFarmer, 24); err != nil {
		t.Fatalf("farmer counter: %v", err)
	}

	o2, err := svc.CounterByListing(ctx, "buyer-1", l.ID, 22, 40)
	if err != nil {
		t.Fatalf("counter by listing (append): %v", err)
	}
	if o2.ID != o.ID {
		t.Fatalf("append must reuse open offer, got new id %s", o2.ID)
	}
	if got := o2.CurrentPrice(); got != 22 {
		t.Fatalf("current price = %d, want 22", got)
	}
}

func TestCounterOutOfTurnFails(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	l := seedListing(t, db, 100, 25)

	o, err := svc.Submit(ctx, "buyer-1", SubmitInput{ListingID: l.ID, Quantity: 10, OfferedPrice: 20})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.CounterByListing(ctx, "buyer-1", l.ID, 19, 10); !errors.Is(err, apperr.ErrInvalidStateTransition) {
		t.Fatalf("buyer countering own pending offer: err = %v, want ErrInvalidStateTransition", err)
	}
	_ = o
}
