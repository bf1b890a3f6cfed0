package target

import (
	"net"
	"testing"
)

func TestAddRejectsDuplicateIP(t *testing.T) {
	tb := NewTable()
	ip := net.IPv4(10, 0, 0, 1)
	if _, err := tb.Add("a", "a.example", ip, &net.IPAddr{IP: ip}); err != nil {
		t.Fatal(err)
	}
	if _, err := tb.Add("b", "b.example", ip, &net.IPAddr{IP: ip}); err == nil {
		t.Fatal("expected duplicate IP error")
	}
}

func TestHopEstimate(t *testing.T) {
	cases := []struct {
		observed int
		want     int
	}{
		{64, 1},
		{60, 5},
		{128, 1},
		{120, 9},
		{255, 2},
		{0, 0},
	}
	for _, c := range cases {
		tg := New("t", "t", net.IPv4(1, 1, 1, 1), &net.IPAddr{IP: net.IPv4(1, 1, 1, 1)})
		tg.SetReplyTTL(c.observed)
		if got := tg.HopEstimate(); got != c.want {
			t.Errorf("HopEstimate(ttl=%d) = %d, want %d", c.observed, got, c.want)
		}
	}
}

func TestLastRTTSentinel(t *testing.T) {
	tg := New("t", "t", net.IPv4(1, 1, 1, 1), &net.IPAddr{IP: net.IPv4(1, 1, 1, 1)})
	if tg.LastRTT() != NoRTT {
		t.Fatalf("fresh target LastRTT = %v, want %v", tg.LastRTT(), float64(NoRTT))
	}
	tg.SetLastRTT(12.5)
	if tg.LastRTT() != 12.5 {
		t.Fatalf("LastRTT = %v, want 12.5", tg.LastRTT())
	}
	tg.ClearLastRTT()
	if tg.LastRTT() != NoRTT {
		t.Fatalf("LastRTT after clear = %v, want %v", tg.LastRTT(), float64(NoRTT))
	}
}
