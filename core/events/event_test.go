package events

import "testing"

type recorder struct {
	got []Event
}

func (r *recorder) Emit(e Event) { r.got = append(r.got, e) }

func TestBufferFlushesInOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(BootstrapPaused{Timestamp: 1})
	buf.Emit(BootstrapUnpaused{Timestamp: 2})
	buf.Emit(nil)

	sink := &recorder{}
	buf.Flush(sink)
	if len(sink.got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.got))
	}
	if sink.got[0].EventType() != TypeBootstrapPaused || sink.got[1].EventType() != TypeBootstrapUnpaused {
		t.Fatalf("unexpected order: %v", sink.got)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("expected buffer to be empty after flush")
	}
}

func TestBufferDiscard(t *testing.T) {
	var buf Buffer
	buf.Emit(BootstrapPaused{})
	buf.Discard()
	sink := &recorder{}
	buf.Flush(sink)
	if len(sink.got) != 0 {
		t.Fatalf("expected discarded events to stay unpublished")
	}
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	first := &recorder{}
	second := &recorder{}
	cancel := b.Subscribe(first)
	b.Subscribe(second)

	b.Emit(DispenserPaused{})
	cancel()
	b.Emit(DispenserUnpaused{})

	if len(first.got) != 1 {
		t.Fatalf("expected first subscriber to see 1 event, got %d", len(first.got))
	}
	if len(second.got) != 2 {
		t.Fatalf("expected second subscriber to see 2 events, got %d", len(second.got))
	}
}

func TestContributionAcceptedAttributes(t *testing.T) {
	evt := ContributionAccepted{
		Amount:         5,
		Tokens:         50,
		RateUsed:       10,
		NextRate:       25,
		Shares:         []PayeeShare{{Amount: 4}, {Amount: 0}},
		GlobalProgress: 50,
	}
	attrs := evt.Event().Attributes
	if attrs["rateUsed"] != "10" || attrs["nextRate"] != "25" {
		t.Fatalf("unexpected rate attributes: %v", attrs)
	}
	if attrs["share0Amount"] != "4" || attrs["globalProgress"] != "50" {
		t.Fatalf("unexpected share attributes: %v", attrs)
	}
	if attrs["contributor"] != "" {
		t.Fatalf("expected zero contributor to render empty")
	}
}
