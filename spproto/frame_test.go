package spproto

import "testing"

func TestHeaderLenCombinations(t *testing.T) {
	cases := []struct {
		p    Params
		want int
	}{
		{Params{}, 0},
		{Params{HaveOTP: true}, OTPFieldLen},
		{Params{HaveHash: true, HashSize: 32}, 32},
		{Params{HaveOTP: true, HaveHash: true, HashSize: 32}, OTPFieldLen + 32},
	}
	for _, c := range cases {
		if got := c.p.HeaderLen(); got != c.want {
			t.Fatalf("HeaderLen(%+v) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestHeaderOffsetsOTPBeforeHash(t *testing.T) {
	p := Params{HaveOTP: true, HaveHash: true, HashSize: 32}
	if p.HeaderOTPOffset() != 0 {
		t.Fatalf("otp offset = %d, want 0", p.HeaderOTPOffset())
	}
	if p.HeaderHashOffset() != OTPFieldLen {
		t.Fatalf("hash offset = %d, want %d", p.HeaderHashOffset(), OTPFieldLen)
	}
}

func TestHeaderHashOffsetWithoutOTP(t *testing.T) {
	p := Params{HaveHash: true, HashSize: 32}
	if p.HeaderHashOffset() != 0 {
		t.Fatalf("hash offset = %d, want 0 when otp absent", p.HeaderHashOffset())
	}
}

func TestCarrierMTUNoEncryption(t *testing.T) {
	p := Params{HaveHash: true, HashSize: 32}
	got := p.CarrierMTU(1400)
	want := 32 + 1400
	if got != want {
		t.Fatalf("CarrierMTU = %d, want %d", got, want)
	}
}

func TestCarrierMTUWithEncryption(t *testing.T) {
	p := Params{HaveEncryption: true, BlockSize: 16, HaveHash: true, HashSize: 32}
	payloadMTU := 1400
	base := p.HeaderLen() + payloadMTU // 1432
	want := 16 + alignUp(base+1, 16)
	if got := p.CarrierMTU(payloadMTU); got != want {
		t.Fatalf("CarrierMTU = %d, want %d", got, want)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ n, align, want int }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
	}
	for _, c := range cases {
		if got := alignUp(c.n, c.align); got != c.want {
			t.Fatalf("alignUp(%d,%d) = %d, want %d", c.n, c.align, got, c.want)
		}
	}
}
