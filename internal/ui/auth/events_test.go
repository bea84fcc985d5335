package auth

import (
	"sync/atomic"
	"testing"
)

func TestNotifier_PublishAndUnsubscribe(t *testing.T) {
	n := NewNotifier(testLogger())

	var got []SessionEvent
	sub := n.Subscribe(func(ev SessionEvent) { got = append(got, ev) })

	n.Publish(SessionEvent{Kind: SessionStarted, Subject: "u"})
	sub.Unsubscribe()
	sub.Unsubscribe()
	n.Publish(SessionEvent{Kind: SessionEnded, Subject: "u"})

	if len(got) != 1 || got[0].Kind != SessionStarted || got[0].At.IsZero() {
		t.Errorf("события = %+v", got)
	}
	if n.Subscribers() != 0 {
		t.Errorf("подписчиков = %d, ожидалось 0", n.Subscribers())
	}
}

func TestWatcher_RebindKeepsSingleSubscription(t *testing.T) {
	n := NewNotifier(testLogger())
	w := NewWatcher(n)

	var first, second atomic.Int32
	w.Rebind(func(SessionEvent) { first.Add(1) })
	w.Rebind(func(SessionEvent) { second.Add(1) })

	if n.Subscribers() != 1 {
		t.Fatalf("подписчиков = %d, ожидался 1", n.Subscribers())
	}
	n.Publish(SessionEvent{Kind: SessionRefreshed, Subject: "u"})
	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("first = %d, second = %d", first.Load(), second.Load())
	}

	w.Close()
	w.Close()
	if n.Subscribers() != 0 {
		t.Errorf("после Close подписчиков = %d", n.Subscribers())
	}
}

func TestCurrentUserFrom(t *testing.T) {
	if u := CurrentUserFrom(nil); u.Authenticated {
		t.Error("nil сессия — аноним")
	}
	u := CurrentUserFrom(&SessionData{Subject: "u", Email: "u@example.com"})
	if !u.Authenticated || u.Subject != "u" || u.Display != "u@example.com" {
		t.Errorf("CurrentUser = %+v", u)
	}
}
