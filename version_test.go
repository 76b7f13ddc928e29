package bootpack

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeOSVersion(t *testing.T) {
	cases := []struct {
		v    OSVersion
		p    PatchLevel
		want uint32
	}{
		{OSVersion{}, PatchLevel{}, 0},
		{OSVersion{11, 0, 0}, PatchLevel{2024, 5}, 11<<25 | 24<<4 | 5},
		{OSVersion{13, 2, 1}, PatchLevel{}, (13<<14 | 2<<7 | 1) << 11},
		{OSVersion{127, 127, 127}, PatchLevel{2127, 12}, 0x1fffff<<11 | 127<<4 | 12},
	}
	for _, c := range cases {
		got, err := encodeOSVersion(c.v, c.p)
		if err != nil {
			t.Fatalf("encodeOSVersion(%v, %v): %v", c.v, c.p, err)
		}
		if got != c.want {
			t.Fatalf("encodeOSVersion(%v, %v) = 0x%08x, want 0x%08x", c.v, c.p, got, c.want)
		}

		v, p := decodeOSVersion(got)
		if v != c.v || p != c.p {
			t.Fatalf("decodeOSVersion(0x%08x) = %v %v, want %v %v", got, v, p, c.v, c.p)
		}
	}
}

func TestEncodeOSVersionOverflowNamesField(t *testing.T) {
	_, err := encodeOSVersion(OSVersion{Minor: 128}, PatchLevel{})

	var e *Error
	if !errors.As(err, &e) || !errors.Is(err, ErrEncodingOverflow) {
		t.Fatalf("expected encoding overflow, got %v", err)
	}
	if e.Field != "os_version.minor" {
		t.Fatalf("field = %q", e.Field)
	}
}

func TestParseOSVersion(t *testing.T) {
	cases := map[string]OSVersion{
		"11":      {11, 0, 0},
		"11.0.0":  {11, 0, 0},
		"13.2":    {13, 2, 0},
		" 9.1.4 ": {9, 1, 4},
		"200.0.0": {200, 0, 0},
	}
	for in, want := range cases {
		got, err := ParseOSVersion(in)
		if err != nil {
			t.Fatalf("ParseOSVersion(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseOSVersion(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "a.b.c", "1.2.3.4", "-1"} {
		if _, err := ParseOSVersion(in); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("ParseOSVersion(%q): expected invalid config, got %v", in, err)
		}
	}
}

func TestParsePatchLevel(t *testing.T) {
	got, err := ParsePatchLevel("2024-05")
	if err != nil || got != (PatchLevel{2024, 5}) {
		t.Fatalf("ParsePatchLevel = %v, %v", got, err)
	}
	got, err = ParsePatchLevel("2023-12-01")
	if err != nil || got != (PatchLevel{2023, 12}) {
		t.Fatalf("ParsePatchLevel with day = %v, %v", got, err)
	}

	for _, in := range []string{"2024", "May 2024", "2024-xx"} {
		if _, err := ParsePatchLevel(in); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("ParsePatchLevel(%q): expected invalid config, got %v", in, err)
		}
	}
}

func TestPatchLevelFromTime(t *testing.T) {
	// The calendar date is taken as given, without converting zones.
	loc := time.FixedZone("UTC+14", 14*60*60)
	tm := time.Date(2024, time.June, 1, 1, 0, 0, 0, loc)

	if got := PatchLevelFromTime(tm); got != (PatchLevel{2024, 6}) {
		t.Fatalf("PatchLevelFromTime = %v", got)
	}
	if got := PatchLevelFromTime(tm.UTC()); got != (PatchLevel{2024, 5}) {
		t.Fatalf("PatchLevelFromTime(UTC) = %v", got)
	}
}
