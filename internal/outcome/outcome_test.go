package outcome

import "testing"

func TestEncodeBuckets(t *testing.T) {
	cases := []struct {
		dt   float64
		want Outcome
	}{
		{0, 0x00},
		{9, 0x09},
		{10, 0x11},
		{99, 0x19},
		{100, 0x21},
		{500, 0x25},
		{999, 0x29},
		{1000, 0x31},
		{9000, 0x39},
		{9999, 0x39},
		{10000, Lost},
		{20000, Lost},
	}
	for _, c := range cases {
		if got := Encode(c.dt); got != c.want {
			t.Errorf("Encode(%v) = %#x, want %#x", c.dt, got, c.want)
		}
	}
}

func TestDecodeSentinels(t *testing.T) {
	for _, o := range []Outcome{NoPing, Lost, Late} {
		if _, _, ok := Decode(o); ok {
			t.Errorf("Decode(%#x) ok = true, want false", o)
		}
	}
}

func TestBucketContainsRoundedValue(t *testing.T) {
	for dt := 0.0; dt < 10000; dt += 37 {
		o := Encode(dt)
		lo, hi, ok := Bucket(o)
		if !ok {
			t.Fatalf("Bucket(Encode(%v)) not ok", dt)
		}
		r := float64(int(dt + 0.5))
		if r < lo || r >= hi {
			t.Errorf("dt=%v encoded to bucket [%v,%v) which excludes rounded value %v", dt, lo, hi, r)
		}
	}
}
