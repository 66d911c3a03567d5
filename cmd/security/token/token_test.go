package token

import (
	"strings"
	"testing"
)

func TestHasher_Modes(t *testing.T) {
	t.Parallel()

	plain := Hasher{}
	if plain.HMACEnabled() {
		t.Fatalf("zero hasher must not be keyed")
	}
	if got, want := plain.Hex("abc"), HashSHA256Hex("abc"); got != want {
		t.Fatalf("sha mode digest=%q want=%q", got, want)
	}

	keyed := NewHasher("  0123456789abcdef0123456789abcdef  ")
	if !keyed.HMACEnabled() {
		t.Fatalf("expected keyed hasher")
	}
	d := keyed.Hex("abc")
	if len(d) != 64 {
		t.Fatalf("digest length=%d want 64", len(d))
	}
	if d == plain.Hex("abc") {
		t.Fatalf("keyed digest must differ from sha digest")
	}
	if d != HashHMACSHA256Hex("abc", []byte("0123456789abcdef0123456789abcdef")) {
		t.Fatalf("key must be trimmed before use")
	}
}

func TestCheckKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		key  string
		want error
	}{
		{name: "missing", key: "   ", want: ErrHMACKeyMissing},
		{name: "short", key: "tiny", want: ErrHMACKeyTooShort},
		{name: "ok", key: strings.Repeat("k", 32), want: nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := CheckKey(tc.key, 32); err != tc.want {
				t.Fatalf("CheckKey(%q)=%v want=%v", tc.key, err, tc.want)
			}
		})
	}
}
