package listing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (*Repo, *gorm.DB) {
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

	if err := db.AutoMigrate(&Listing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(db), db
}

func seed(t *testing.T, db *gorm.DB, qty, reserved int64) *Listing {
	t.Helper()
	l := &Listing{
		ID:         uuid.NewString(),
		FarmerID:   "farmer-1",
		CropName:   "Rice",
		Quantity:   qty,
		Reserved:   reserved,
		PricePerKg: 30,
		Status:     StatusActive,
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return l
}

func reload(t *testing.T, db *gorm.DB, id string) *Listing {
	t.Helper()
	var l Listing
	if err := db.First(&l, "id = ?", id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	return &l
}

func TestReserveMovesStockAndFlipsExhausted(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	l := seed(t, db, 50, 0)

	if err := repo.Reserve(ctx, l.ID, 20); err != nil {
		t.Fatalf("reserve 20: %v", err)
	}
	got := reload(t, db, l.ID)
	if got.Quantity != 30 || got.Reserved != 20 || got.Status != StatusActive {
		t.Fatalf("after reserve 20: %d/%d %s", got.Quantity, got.Reserved, got.Status)
	}

	// 恰好耗尽可售量时状态翻转
	if err := repo.Reserve(ctx, l.ID, 30); err != nil {
		t.Fatalf("reserve 30: %v", err)
	}
	got = reload(t, db, l.ID)
	if got.Quantity != 0 || got.Reserved != 50 || got.Status != StatusExhausted {
		t.Fatalf("after exhausting: %d/%d %s", got.Quantity, got.Reserved, got.Status)
	}

	if err := repo.Reserve(ctx, l.ID, 1); !errors.Is(err, apperr.ErrInsufficientQuantity) {
		t.Fatalf("over-reserve: err = %v, want ErrInsufficientQuantity", err)
	}
}

func TestReserveOverHalfStaysActive(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	l := seed(t, db, 10, 0)

	// 预留超过剩余量一半也不能翻 exhausted，只有减到 0 才翻
	if err := repo.Reserve(ctx, l.ID, 6); err != nil {
		t.Fatalf("reserve 6: %v", err)
	}
	got := reload(t, db, l.ID)
	if got.Quantity != 4 || got.Status != StatusActive {
		t.Fatalf("after reserve 6 of 10: %d/%d %s", got.Quantity, got.Reserved, got.Status)
	}

	if err := repo.Reserve(ctx, l.ID, 4); err != nil {
		t.Fatalf("reserve 4: %v", err)
	}
	got = reload(t, db, l.ID)
	if got.Quantity != 0 || got.Reserved != 10 || got.Status != StatusExhausted {
		t.Fatalf("after draining: %d/%d %s", got.Quantity, got.Reserved, got.Status)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	l := seed(t, db, 0, 50)
	if err := db.Model(l).Update("status", StatusExhausted).Error; err != nil {
		t.Fatalf("set exhausted: %v", err)
	}

	if err := repo.Release(ctx, l.ID, 50); err != nil {
		t.Fatalf("release: %v", err)
	}
	got := reload(t, db, l.ID)
	if got.Quantity != 50 || got.Reserved != 0 || got.Status != StatusActive {
		t.Fatalf("after release: %d/%d %s", got.Quantity, got.Reserved, got.Status)
	}

	if err := repo.Release(ctx, l.ID, 1); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("release beyond reserved: err = %v, want ErrConflict", err)
	}
}

func TestConsumeBurnsReservation(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	l := seed(t, db, 10, 40)

	if err := repo.Consume(ctx, l.ID, 40); err != nil {
		t.Fatalf("consume: %v", err)
	}
	got := reload(t, db, l.ID)
	if got.Quantity != 10 || got.Reserved != 0 {
		t.Fatalf("after consume: %d/%d", got.Quantity, got.Reserved)
	}

	if err := repo.Consume(ctx, l.ID, 1); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("consume beyond reserved: err = %v, want ErrConflict", err)
	}
}

func TestDeleteBlockedWhileReserved(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	l := seed(t, db, 10, 5)

	if err := repo.Delete(ctx, l.ID, "farmer-1"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete with reservation: err = %v, want ErrConflict", err)
	}

	if err := db.Model(l).Update("reserved", 0).Error; err != nil {
		t.Fatalf("clear reservation: %v", err)
	}
	if err := repo.Delete(ctx, l.ID, "farmer-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, l.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("after delete: err = %v, want record not found", err)
	}
}
