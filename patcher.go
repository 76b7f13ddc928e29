package bootpack

import "go4.org/bytereplacer"

// Replacement directions
const (
	ReplNormal = iota
	ReplReverse
)

// Replacement is one equal-length byte substitution.
type Replacement struct {
	From string
	To   string
}

type replList struct {
	replacements []string
}

func newRepl(size int) *replList {
	return &replList{
		replacements: make([]string, 0, size*2),
	}
}

// add appends a pair. Lengths must match so the stub's fixed offsets stay valid.
func (r *replList) add(from string, to string, direction int) error {
	if len(from) != len(to) {
		return errorf(ErrInvalidConfig, "stamp firmware", "replacement",
			"replacement length %d != %d, from %q to %q", len(from), len(to), from, to)
	}
	if len(from) == 0 {
		return errorf(ErrInvalidConfig, "stamp firmware", "replacement", "empty replacement")
	}

	switch direction {
	case ReplNormal:
		r.replacements = append(r.replacements, from, to)
	case ReplReverse:
		r.replacements = append(r.replacements, to, from)
	default:
		return errorf(ErrInvalidConfig, "stamp firmware", "direction", "unknown replacement direction %d", direction)
	}

	return nil
}

func (r *replList) create() *bytereplacer.Replacer {
	return bytereplacer.New(r.replacements...)
}

// Stamp applies equal-length replacements to a segment, e.g. writing a
// build id over a placeholder in the firmware volume. The segment length
// never changes. ReplReverse undoes a previous stamp.
func Stamp(seg Segment, repls []Replacement, dir int) (Segment, error) {
	if len(repls) == 0 {
		return seg, nil
	}

	r := newRepl(len(repls))
	for _, repl := range repls {
		if err := r.add(repl.From, repl.To, dir); err != nil {
			return seg, err
		}
	}

	// Replace may reuse its argument.
	data := append([]byte(nil), seg.Data...)
	return NewSegment(seg.Origin, r.create().Replace(data)), nil
}
