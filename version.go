package bootpack

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bit widths of the packed os_version word. Header versions 0 through 2 share them.
const (
	versionBits    = 7
	patchYearBits  = 7
	patchMonthBits = 4

	patchYearBase = 2000
	patchBits     = patchYearBits + patchMonthBits
)

// OSVersion is an A.B.C operating system version.
type OSVersion struct {
	Major uint32
	Minor uint32
	Patch uint32
}

func (v OSVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// PatchLevel is the year and month of the security patch level.
type PatchLevel struct {
	Year  uint32
	Month uint32
}

func (p PatchLevel) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// IsZero reports whether no patch level is set.
func (p PatchLevel) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// PatchLevelFromTime takes the year and month of t as they read in t's own location.
func PatchLevelFromTime(t time.Time) PatchLevel {
	return PatchLevel{Year: uint32(t.Year()), Month: uint32(t.Month())}
}

// ParseOSVersion parses "A", "A.B" or "A.B.C". Range checks happen at encode time.
func ParseOSVersion(s string) (OSVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 3 {
		return OSVersion{}, errorf(ErrInvalidConfig, "parse os version", "os_version", "%q is not A.B.C", s)
	}

	var nums [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return OSVersion{}, newErr(ErrInvalidConfig, "parse os version", "os_version", err)
		}
		nums[i] = uint32(n)
	}

	return OSVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// ParsePatchLevel parses "YYYY-MM" or "YYYY-MM-DD". The day is ignored.
func ParsePatchLevel(s string) (PatchLevel, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 && len(parts) != 3 {
		return PatchLevel{}, errorf(ErrInvalidConfig, "parse patch level", "os_patch_level", "%q is not YYYY-MM", s)
	}

	year, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return PatchLevel{}, newErr(ErrInvalidConfig, "parse patch level", "os_patch_level.year", err)
	}
	month, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return PatchLevel{}, newErr(ErrInvalidConfig, "parse patch level", "os_patch_level.month", err)
	}

	return PatchLevel{Year: uint32(year), Month: uint32(month)}, nil
}

// encodeOSVersion packs version and patch level into the header word.
// Out of range components fail instead of being masked.
func encodeOSVersion(v OSVersion, p PatchLevel) (uint32, error) {
	const stage = "encode os version"
	limit := uint32(1) << versionBits

	if v.Major >= limit {
		return 0, errorf(ErrEncodingOverflow, stage, "os_version.major", "%d does not fit in %d bits", v.Major, versionBits)
	}
	if v.Minor >= limit {
		return 0, errorf(ErrEncodingOverflow, stage, "os_version.minor", "%d does not fit in %d bits", v.Minor, versionBits)
	}
	if v.Patch >= limit {
		return 0, errorf(ErrEncodingOverflow, stage, "os_version.patch", "%d does not fit in %d bits", v.Patch, versionBits)
	}

	ver := v.Major<<(2*versionBits) | v.Minor<<versionBits | v.Patch

	var lvl uint32
	if !p.IsZero() {
		if p.Year < patchYearBase || p.Year-patchYearBase >= 1<<patchYearBits {
			return 0, errorf(ErrEncodingOverflow, stage, "os_patch_level.year", "%d outside %d..%d",
				p.Year, patchYearBase, patchYearBase+1<<patchYearBits-1)
		}
		if p.Month < 1 || p.Month > 12 {
			return 0, errorf(ErrEncodingOverflow, stage, "os_patch_level.month", "%d outside 1..12", p.Month)
		}

		lvl = (p.Year-patchYearBase)<<patchMonthBits | p.Month
	}

	return ver<<patchBits | lvl, nil
}

// decodeOSVersion splits a header word back into version and patch level.
func decodeOSVersion(word uint32) (OSVersion, PatchLevel) {
	mask := uint32(1)<<versionBits - 1
	ver := word >> patchBits
	lvl := word & (1<<patchBits - 1)

	v := OSVersion{
		Major: ver >> (2 * versionBits) & mask,
		Minor: ver >> versionBits & mask,
		Patch: ver & mask,
	}

	var p PatchLevel
	if lvl != 0 {
		p = PatchLevel{
			Year:  lvl>>patchMonthBits + patchYearBase,
			Month: lvl & (1<<patchMonthBits - 1),
		}
	}

	return v, p
}
