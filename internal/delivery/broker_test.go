package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/order"
	"github.com/AgriDirect/AgriDirect/internal/user"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestBroker(t *testing.T) (*Broker, *gorm.DB) {
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

	if err := db.AutoMigrate(&user.User{}, &order.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewBroker(order.NewRepo(db), user.NewRepo(db), nil, 6, nil), db
}

func seedAwaitingOrder(t *testing.T, db *gorm.DB, drivers ...string) *order.Order {
	t.Helper()
	now := time.Now()
	o := &order.Order{
		ID:             uuid.NewString(),
		OfferID:        uuid.NewString(),
		ListingID:      uuid.NewString(),
		BuyerID:        "buyer-1",
		FarmerID:       "farmer-1",
		CropName:       "Wheat",
		Status:         order.StatusAwaitingDriverAccept,
		Quantity:       25,
		FinalPrice:     18,
		InvitedDrivers: order.InvitedJoin(drivers),
		PaidAt:         &now,
		InvitedAt:      &now,
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func TestAcceptExactlyOneWinner(t *testing.T) {
	broker, db := newTestBroker(t)
	ctx := context.Background()

	drivers := make([]string, 8)
	for i := range drivers {
		drivers[i] = fmt.Sprintf("driver-%d", i)
	}
	o := seedAwaitingOrder(t, db, drivers...)

	var wg sync.WaitGroup
	errs := make([]error, len(drivers))
	for i, id := range drivers {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = broker.Accept(ctx, o.ID, id)
		}(i, id)
	}
	wg.Wait()

	won, lost := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, apperr.ErrAlreadyAssigned):
			lost++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	if won != 1 || lost != len(drivers)-1 {
		t.Fatalf("winners=%d losers=%d, want exactly one winner", won, lost)
	}

	var got order.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got.Status != order.StatusDriverAssigned || got.DriverID == "" {
		t.Fatalf("order after race: status=%s driver=%q", got.Status, got.DriverID)
	}
	if len(got.OTPCode) != 6 {
		t.Fatalf("otp length = %d, want 6", len(got.OTPCode))
	}
	if got.AssignedAt == nil {
		t.Fatalf("assigned_at not set")
	}
}

func TestAcceptRequiresInvitation(t *testing.T) {
	broker, db := newTestBroker(t)
	ctx := context.Background()
	o := seedAwaitingOrder(t, db, "driver-1")

	if _, err := broker.Accept(ctx, o.ID, "driver-9"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("uninvited accept: err = %v, want ErrNotFound", err)
	}
}

func TestDeclineShrinksInviteSet(t *testing.T) {
	broker, db := newTestBroker(t)
	ctx := context.Background()
	o := seedAwaitingOrder(t, db, "driver-1", "driver-2")

	after, err := broker.Decline(ctx, o.ID, "driver-1")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if after.Status != order.StatusAwaitingDriverAccept {
		t.Fatalf("status after partial decline = %s", after.Status)
	}
	if after.Invited("driver-1") || !after.Invited("driver-2") {
		t.Fatalf("invite set after decline: %q", after.InvitedDrivers)
	}

	// 最后一个司机也拒绝：回到 paid，农户可重新邀请
	last, err := broker.Decline(ctx, o.ID, "driver-2")
	if err != nil {
		t.Fatalf("final decline: %v", err)
	}
	if last.Status != order.StatusPaid {
		t.Fatalf("status after all declined = %s, want paid", last.Status)
	}

	var rows []order.Order
	if err := db.Where("status = ?", order.StatusAwaitingDriverAccept).Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("no order should remain awaiting acceptance")
	}
}

func TestDeclineStaleInviteSetConflicts(t *testing.T) {
	broker, db := newTestBroker(t)
	ctx := context.Background()
	o := seedAwaitingOrder(t, db, "driver-1", "driver-2")

	repo := order.NewRepo(db)
	stale, err := repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := broker.Decline(ctx, o.ID, "driver-1"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// 基于拒单前的快照重放 driver-2 的移除：名单守卫必须拦下过期写入
	prev := stale.InvitedDrivers
	stale.InvitedDrivers = "driver-1"
	rows, err := repo.UpdateInvited(ctx, stale, order.StatusAwaitingDriverAccept, prev, "invited_drivers")
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if rows != 0 {
		t.Fatalf("stale invite-set write affected %d rows, want 0", rows)
	}

	var got order.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Invited("driver-1") || !got.Invited("driver-2") {
		t.Fatalf("invite set after stale replay: %q", got.InvitedDrivers)
	}
	if got.Status != order.StatusAwaitingDriverAccept {
		t.Fatalf("status after stale replay = %s", got.Status)
	}
}

func TestDeclineConcurrentNoLostUpdate(t *testing.T) {
	broker, db := newTestBroker(t)
	ctx := context.Background()

	drivers := []string{"driver-1", "driver-2", "driver-3"}
	o := seedAwaitingOrder(t, db, drivers...)

	var wg sync.WaitGroup
	errs := make([]error, len(drivers))
	for i, id := range drivers {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = broker.Decline(ctx, o.ID, id)
		}(i, id)
	}
	wg.Wait()

	declined := 0
	for i, err := range errs {
		switch {
		case err == nil:
			declined++
		case errors.Is(err, apperr.ErrConflict):
			// 过期快照被守卫拦下，司机留在名单里
		default:
			t.Fatalf("decline %s: %v", drivers[i], err)
		}
	}
	if declined == 0 {
		t.Fatalf("no decline went through")
	}

	var got order.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	for i, id := range drivers {
		if errs[i] == nil && got.Invited(id) {
			t.Fatalf("driver %s declined but is back in the invite set %q", id, got.InvitedDrivers)
		}
		if errs[i] != nil && !got.Invited(id) {
			t.Fatalf("driver %s got a conflict yet left the invite set %q", id, got.InvitedDrivers)
		}
	}
	if want := len(drivers) - declined; len(got.InvitedSlice()) != want {
		t.Fatalf("invite set %q has %d drivers, want %d", got.InvitedDrivers, len(got.InvitedSlice()), want)
	}
	if declined == len(drivers) && got.Status != order.StatusPaid {
		t.Fatalf("all declined, status = %s, want paid", got.Status)
	}
}

func TestAvailableListsOnlyInvited(t *testing.T) {
	broker, db := newTestBroker(t)
	ctx := context.Background()
	seedAwaitingOrder(t, db, "driver-1")
	seedAwaitingOrder(t, db, "driver-2")

	rows, err := broker.Available(ctx, "driver-1")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(rows) != 1 || !rows[0].Invited("driver-1") {
		t.Fatalf("available for driver-1 = %d rows", len(rows))
	}
}
