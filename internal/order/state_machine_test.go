package order

import (
	"errors"
	"testing"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
)

func TestCanTransitionAndApply(t *testing.T) {
	if !CanTransition(StatusPendingPayment, StatusPaid) {
		t.Fatalf("expected pending_payment -> paid allowed")
	}
	if !CanTransition(StatusPendingPayment, StatusCancelled) {
		t.Fatalf("expected pending_payment -> cancelled allowed")
	}
	if CanTransition(StatusPaid, StatusCancelled) {
		t.Fatalf("expected paid -> cancelled not allowed")
	}
	if CanTransition(StatusCompleted, StatusPendingPayment) {
		t.Fatalf("expected completed -> pending_payment not allowed")
	}

	o := &Order{Status: StatusPendingPayment}
	now := time.Now()
	if err := ApplyTransition(o, StatusPaid, now); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if o.Status != StatusPaid {
		t.Fatalf("expected status paid, got %s", o.Status)
	}
	if o.PaidAt == nil {
		t.Fatalf("expected PaidAt to be set")
	}

	if err := ApplyTransition(o, StatusDelivered, now); err == nil {
		t.Fatalf("expected invalid shortcut transition to fail")
	} else if !errors.Is(err, apperr.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestCancelledOnlyFromPendingPayment(t *testing.T) {
	for _, from := range []Status{
		StatusPaid, StatusAwaitingDriverAccept, StatusDriverAssigned,
		StatusOTPVerified, StatusDelivered, StatusCompleted,
	} {
		if CanTransition(from, StatusCancelled) {
			t.Fatalf("expected %s -> cancelled not allowed", from)
		}
	}
}

func TestDeclineRevertEdge(t *testing.T) {
	// 受邀司机全部拒单后允许回退到 paid 重新邀请
	if !CanTransition(StatusAwaitingDriverAccept, StatusPaid) {
		t.Fatalf("expected awaiting_driver_accept -> paid allowed")
	}
	if CanTransition(StatusDriverAssigned, StatusPaid) {
		t.Fatalf("expected driver_assigned -> paid not allowed")
	}
}

func TestSelfTransitionIsIdempotent(t *testing.T) {
	if !CanTransition(StatusCompleted, StatusCompleted) {
		t.Fatalf("expected completed -> completed allowed (idempotent replay)")
	}
}

func TestInvitedHelpers(t *testing.T) {
	o := Order{InvitedDrivers: InvitedJoin([]string{"d-1", " d-2", "d-1", ""})}
	got := o.InvitedSlice()
	if len(got) != 2 {
		t.Fatalf("expected 2 invited drivers, got %v", got)
	}
	if !o.Invited("d-2") {
		t.Fatalf("expected d-2 to be invited")
	}
	if o.Invited("d-3") {
		t.Fatalf("expected d-3 not invited")
	}
}
