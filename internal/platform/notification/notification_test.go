package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestPublishAndList(t *testing.T) {
	hub := NewHub(0)
	claimID := uuid.New()
	otherID := uuid.New()

	hub.Publish(context.Background(), Event{Type: ClaimCreated, ClaimID: &claimID})
	hub.Publish(context.Background(), Event{Type: ClaimCreated, ClaimID: &otherID})
	hub.Publish(context.Background(), Event{Type: HospitalSubmitted, ClaimID: &claimID})

	events, total := hub.List(&claimID, "", 0, 0)
	if total != 2 || len(events) != 2 {
		t.Fatalf("got %d events (total %d), want 2", len(events), total)
	}
	if events[0].Type != ClaimCreated || events[1].Type != HospitalSubmitted {
		t.Errorf("events for one claim must keep publish order, got %s then %s",
			events[0].Type, events[1].Type)
	}
}

func TestListByType(t *testing.T) {
	hub := NewHub(0)
	claimID := uuid.New()
	amount := int64(28)

	hub.Publish(context.Background(), Event{Type: ClaimApproved, ClaimID: &claimID})
	hub.Publish(context.Background(), Event{Type: PaymentSent, ClaimID: &claimID, Amount: &amount})

	events, total := hub.List(nil, PaymentSent, 0, 0)
	if total != 1 {
		t.Fatalf("got total %d, want 1", total)
	}
	if events[0].Amount == nil || *events[0].Amount != 28 {
		t.Errorf("payment event must carry the amount")
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	hub := NewHub(2)
	first := uuid.New()
	second := uuid.New()
	third := uuid.New()

	hub.Publish(context.Background(), Event{Type: ClaimCreated, ClaimID: &first})
	hub.Publish(context.Background(), Event{Type: ClaimCreated, ClaimID: &second})
	hub.Publish(context.Background(), Event{Type: ClaimCreated, ClaimID: &third})

	if _, total := hub.List(&first, "", 0, 0); total != 0 {
		t.Error("oldest event should have been dropped")
	}
	if _, total := hub.List(&third, "", 0, 0); total != 1 {
		t.Error("newest event should be retained")
	}
}

func TestSubscribe(t *testing.T) {
	hub := NewHub(0)
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	claimID := uuid.New()
	hub.Publish(context.Background(), Event{Type: ClaimCreated, ClaimID: &claimID})

	select {
	case e := <-ch:
		if e.Type != ClaimCreated {
			t.Errorf("got %s, want %s", e.Type, ClaimCreated)
		}
	default:
		t.Fatal("subscriber did not receive the event")
	}

	// A full subscriber buffer must not block Publish.
	hub.Publish(context.Background(), Event{Type: HospitalSubmitted, ClaimID: &claimID})
	hub.Publish(context.Background(), Event{Type: PatientConfirmed, ClaimID: &claimID})
}
