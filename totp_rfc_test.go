package goBroker

import (
	"testing"
	"time"
)

// RFC 6238 Appendix B test vectors.

func TestTOTPVerifyRFCVectorsSHA1(t *testing.T) {
	v := newTOTPVerifier(TOTPConfig{
		Issuer:    "goBroker",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      0,
	})
	secret := []byte("12345678901234567890")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	for _, tc := range cases {
		ok, _, err := v.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA1 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifyRFCVectorsSHA256(t *testing.T) {
	v := newTOTPVerifier(TOTPConfig{
		Issuer:    "goBroker",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA256",
		Skew:      0,
	})
	secret := []byte("12345678901234567890123456789012")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "46119246"},
		{1111111109, "68084774"},
		{1111111111, "67062674"},
		{1234567890, "91819424"},
		{2000000000, "90698825"},
		{20000000000, "77737706"},
	}

	for _, tc := range cases {
		ok, _, err := v.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA256 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifyRFCVectorsSHA512(t *testing.T) {
	v := newTOTPVerifier(TOTPConfig{
		Issuer:    "goBroker",
		Digits:    8,
		Period:    30,
		Algorithm: "SHA512",
		Skew:      0,
	})
	secret := []byte("1234567890123456789012345678901234567890123456789012345678901234")
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "90693936"},
		{1111111109, "25091201"},
		{1111111111, "99943326"},
		{1234567890, "93441116"},
		{2000000000, "38618901"},
		{20000000000, "47863826"},
	}

	for _, tc := range cases {
		ok, _, err := v.VerifyCode(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil || !ok {
			t.Fatalf("SHA512 vector failed at t=%d, ok=%v err=%v", tc.ts, ok, err)
		}
	}
}

func TestTOTPVerifySkewWindow(t *testing.T) {
	v := newTOTPVerifier(TOTPConfig{
		Issuer:    "goBroker",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111111, 0)
	base := now.Unix() / 30

	for _, offset := range []int64{-1, 0, 1} {
		code, err := hotpCode(secret, base+offset, 6, "SHA1")
		if err != nil {
			t.Fatalf("hotpCode failed: %v", err)
		}
		ok, counter, err := v.VerifyCode(secret, code, now)
		if err != nil || !ok {
			t.Fatalf("offset %d: expected match, ok=%v err=%v", offset, ok, err)
		}
		if counter != base+offset {
			t.Fatalf("offset %d: expected counter %d, got %d", offset, base+offset, counter)
		}
	}

	// Two steps out is beyond the window.
	code, err := hotpCode(secret, base+2, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	if ok, _, _ := v.VerifyCode(secret, code, now); ok {
		t.Fatal("expected code two steps ahead to be rejected")
	}
}

func TestTOTPVerifyRejectsMalformedCodes(t *testing.T) {
	v := newTOTPVerifier(TOTPConfig{
		Issuer:    "goBroker",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := []byte("12345678901234567890")
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12345a", "12 456"} {
		if ok, _, err := v.VerifyCode(secret, code, now); ok || err != nil {
			t.Fatalf("code %q: expected silent rejection, ok=%v err=%v", code, ok, err)
		}
	}
}
