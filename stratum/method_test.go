package stratum

import "testing"

func TestParseMethod(t *testing.T) {
	cases := []struct {
		in   string
		want Method
	}{
		{"mining.subscribe", MethodSubscribe},
		{"mining.notify", MethodNotify},
		{"client.reconnect", MethodReconnect},
		{"mining.bogus", MethodUnknown},
		{"", MethodUnknown},
	}
	for _, c := range cases {
		if got := ParseMethod(c.in); got != c.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsNotification(t *testing.T) {
	notifications := []Method{MethodNotify, MethodSetDifficulty, MethodSetExtranonce, MethodReconnect}
	for _, m := range notifications {
		if !m.IsNotification() {
			t.Errorf("%q.IsNotification() = false, want true", m)
		}
	}
	calls := []Method{MethodSubscribe, MethodAuthorize, MethodSubmit, MethodSuggestDifficulty}
	for _, m := range calls {
		if m.IsNotification() {
			t.Errorf("%q.IsNotification() = true, want false", m)
		}
	}
}
