package prefs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestBroadcasterExcludesOriginatingSurface(t *testing.T) {
	b := NewBroadcaster(nil)
	received := map[Origin][]string{}
	for _, surface := range []Origin{OriginQuickStrip, OriginSettingsPanel, OriginMenu} {
		surface := surface
		b.Subscribe(surface, func(m Mutation) {
			received[surface] = append(received[surface], m.Path)
		})
	}

	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})

	if len(received[OriginQuickStrip]) != 0 {
		t.Fatalf("expected originating surface to be skipped, got %v", received[OriginQuickStrip])
	}
	if len(received[OriginSettingsPanel]) != 1 || len(received[OriginMenu]) != 1 {
		t.Fatalf("expected other surfaces notified, got %v", received)
	}
}

func TestBroadcasterDeliversNonSurfaceOriginsToEveryone(t *testing.T) {
	b := NewBroadcaster(nil)
	var qss, monitor int
	b.Subscribe(OriginQuickStrip, func(Mutation) { qss++ })
	b.Subscribe(OriginUnspecified, func(Mutation) { monitor++ })

	b.OnMutation(Mutation{Path: "volume", Origin: OriginUnspecified})
	b.OnMutation(Mutation{Path: "volume", Origin: OriginFromUndo})
	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})

	if qss != 2 {
		t.Fatalf("expected quick strip to receive unspecified and undo mutations, got %d", qss)
	}
	if monitor != 3 {
		t.Fatalf("expected unconditional monitor to receive everything, got %d", monitor)
	}
}

func TestBroadcasterPathFilter(t *testing.T) {
	b := NewBroadcaster(nil)
	var tooltip, widget []string
	b.Subscribe(OriginTooltip, func(m Mutation) { tooltip = append(tooltip, m.Path) }, ForPath("volume"))
	b.Subscribe(OriginWidget, func(m Mutation) { widget = append(widget, m.Path) }, ForPath("volume"), Unconditional())

	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})
	b.OnMutation(Mutation{Path: "contrast", Origin: OriginQuickStrip})

	if diff := cmp.Diff([]string{"volume"}, tooltip); diff != "" {
		t.Fatalf("tooltip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"volume", "contrast"}, widget); diff != "" {
		t.Fatalf("widget mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster(nil)
	calls := 0
	sub := b.Subscribe(OriginMenu, func(Mutation) { calls++ })
	if sub.ID == uuid.Nil {
		t.Fatalf("expected subscription id")
	}
	if b.Len() != 1 {
		t.Fatalf("expected one subscription, got %d", b.Len())
	}

	sub.Close()
	sub.Close()
	var nilSub *Subscription
	nilSub.Close()

	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})
	if calls != 0 || b.Len() != 0 {
		t.Fatalf("expected closed subscription removed, calls=%d len=%d", calls, b.Len())
	}
}

func TestSubscriptionCanCloseItselfDuringDelivery(t *testing.T) {
	b := NewBroadcaster(nil)
	var order []string
	var first *Subscription
	first = b.Subscribe(OriginMenu, func(Mutation) {
		order = append(order, "first")
		first.Close()
	})
	b.Subscribe(OriginSettingsPanel, func(Mutation) { order = append(order, "second") })

	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})
	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})

	if diff := cmp.Diff([]string{"first", "second", "second"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBroadcasterRecoversHandlerPanics(t *testing.T) {
	b := NewBroadcaster(nil)
	delivered := false
	b.Subscribe(OriginMenu, func(Mutation) { panic("render failed") })
	b.Subscribe(OriginSettingsPanel, func(Mutation) { delivered = true })

	b.OnMutation(Mutation{Path: "volume", Origin: OriginQuickStrip})
	if !delivered {
		t.Fatalf("expected remaining handlers to run after a panic")
	}
}
