package offer

import (
	"testing"
	"time"
)

func newPendingOffer() *Offer {
	return &Offer{
		ID:           "offer-1",
		ListingID:    "listing-1",
		BuyerID:      "buyer-1",
		FarmerID:     "farmer-1",
		Quantity:     50,
		OfferPrice:   20,
		Status:       StatusPending,
		LastActionBy: ActorBuyer,
	}
}

func TestCanRespondTurnTaking(t *testing.T) {
	o := newPendingOffer()

	if CanRespond(o, ActorBuyer) {
		t.Fatalf("buyer should not respond to own pending offer")
	}
	if !CanRespond(o, ActorFarmer) {
		t.Fatalf("farmer should be able to respond to pending offer")
	}

	if err := ApplyCounter(o, ActorFarmer, 25, time.Now()); err != nil {
		t.Fatalf("farmer counter: %v", err)
	}
	if CanRespond(o, ActorFarmer) {
		t.Fatalf("farmer should not respond twice in a row")
	}
	if !CanRespond(o, ActorBuyer) {
		t.Fatalf("buyer should respond after farmer counter")
	}
}

func TestApplyCounterAlternates(t *testing.T) {
	o := newPendingOffer()
	now := time.Now()

	if err := ApplyCounter(o, ActorFarmer, 25, now); err != nil {
		t.Fatalf("farmer counter: %v", err)
	}
	if err := ApplyCounter(o, ActorBuyer, 22, now); err != nil {
		t.Fatalf("buyer counter: %v", err)
	}
	if err := ApplyCounter(o, ActorFarmer, 23, now); err != nil {
		t.Fatalf("second farmer counter: %v", err)
	}

	if got := o.CurrentPrice(); got != 23 {
		t.Fatalf("current price = %d, want 23", got)
	}
	if len(o.Counters) != 3 {
		t.Fatalf("counters = %d, want 3", len(o.Counters))
	}
	if o.Status != StatusCountered {
		t.Fatalf("status = %s, want countered", o.Status)
	}
}

func TestApplyCounterRejectsOutOfTurn(t *testing.T) {
	o := newPendingOffer()

	if err := ApplyCounter(o, ActorBuyer, 21, time.Now()); err == nil {
		t.Fatalf("buyer countering own pending offer should fail")
	}
	if len(o.Counters) != 0 {
		t.Fatalf("rejected counter must not be recorded")
	}
}

func TestApplyCounterRejectsNonPositivePrice(t *testing.T) {
	o := newPendingOffer()

	for _, price := range []int64{0, -5} {
		if err := ApplyCounter(o, ActorFarmer, price, time.Now()); err == nil {
			t.Fatalf("counter price %d should be rejected", price)
		}
	}
}

func TestAcceptAndRejectAreTerminal(t *testing.T) {
	o := newPendingOffer()
	if err := ApplyAccept(o, ActorFarmer); err != nil {
		t.Fatalf("farmer accept: %v", err)
	}
	if o.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted", o.Status)
	}
	if err := ApplyCounter(o, ActorBuyer, 19, time.Now()); err == nil {
		t.Fatalf("counter on accepted offer should fail")
	}
	if err := ApplyReject(o, ActorBuyer); err == nil {
		t.Fatalf("reject on accepted offer should fail")
	}

	o = newPendingOffer()
	if err := ApplyReject(o, ActorFarmer); err != nil {
		t.Fatalf("farmer reject: %v", err)
	}
	if err := ApplyAccept(o, ActorBuyer); err == nil {
		t.Fatalf("accept on rejected offer should fail")
	}
}

func TestCurrentPriceFallsBackToInitialOffer(t *testing.T) {
	o := newPendingOffer()
	if got := o.CurrentPrice(); got != 20 {
		t.Fatalf("current price = %d, want initial 20", got)
	}
}
