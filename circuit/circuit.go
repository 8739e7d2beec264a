// Package circuit holds the artifact model: an ordered sequence of primitive
// operations over a fixed set of lanes, built incrementally and snapshotted
// before the terminal read-out is appended.
package circuit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidWidth   = errors.New("circuit: width must be at least 1")
	ErrLaneOutOfRange = errors.New("circuit: lane index out of range")
	ErrBadArity       = errors.New("circuit: instruction arity does not match kind")
	ErrMeasured       = errors.New("circuit: terminal read-out already appended")
	ErrBadKind        = errors.New("circuit: unknown instruction kind")
)

// Kind is the closed set of primitive operation kinds.
type Kind int32

const (
	KindIdentity Kind = iota
	KindPhase
	KindRotation
	KindRotation3
	KindCoupling
	KindMeasure
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "id"
	case KindPhase:
		return "phase"
	case KindRotation:
		return "rot"
	case KindRotation3:
		return "rot3"
	case KindCoupling:
		return "coupling"
	case KindMeasure:
		return "measure"
	default:
		return "unknown"
	}
}

// LaneCount returns how many lane operands the kind takes. KindMeasure
// consumes every lane and returns -1.
func (k Kind) LaneCount() int {
	switch k {
	case KindIdentity, KindPhase, KindRotation, KindRotation3:
		return 1
	case KindCoupling:
		return 2
	case KindMeasure:
		return -1
	default:
		return 0
	}
}

// ParamCount returns how many numeric parameters the kind takes.
func (k Kind) ParamCount() int {
	switch k {
	case KindPhase, KindRotation:
		return 1
	case KindRotation3:
		return 3
	default:
		return 0
	}
}

// Instruction is one step of the artifact's operation sequence.
type Instruction struct {
	Kind   Kind
	Lanes  []int
	Params []float64
}

func (in Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Kind.String())
	fmt.Fprintf(&b, " %v", in.Lanes)
	if len(in.Params) > 0 {
		fmt.Fprintf(&b, " %v", in.Params)
	}
	return b.String()
}

func (in Instruction) equal(other Instruction) bool {
	if in.Kind != other.Kind ||
		len(in.Lanes) != len(other.Lanes) ||
		len(in.Params) != len(other.Params) {
		return false
	}
	for i := range in.Lanes {
		if in.Lanes[i] != other.Lanes[i] {
			return false
		}
	}
	for i := range in.Params {
		if in.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

func (in Instruction) clone() Instruction {
	out := Instruction{Kind: in.Kind}
	if in.Lanes != nil {
		out.Lanes = append([]int(nil), in.Lanes...)
	}
	if in.Params != nil {
		out.Params = append([]float64(nil), in.Params...)
	}
	return out
}

// Circuit is a mutable builder over width lanes and width output slots.
// It is not safe for concurrent use; every task builds its own.
type Circuit struct {
	width    int
	ins      []Instruction
	measured bool
}

func New(width int) (*Circuit, error) {
	if width < 1 {
		return nil, errors.Wrapf(ErrInvalidWidth, "got %d", width)
	}
	return &Circuit{width: width}, nil
}

// Restore rebuilds a circuit from a previously recorded instruction
// sequence. A trailing KindMeasure is accepted and marks the circuit as
// measured; KindMeasure anywhere else is rejected.
func Restore(width int, ins []Instruction) (*Circuit, error) {
	c, err := New(width)
	if err != nil {
		return nil, err
	}
	for i, in := range ins {
		if in.Kind == KindMeasure {
			if i != len(ins)-1 {
				return nil, errors.Wrapf(ErrMeasured, "read-out at position %d of %d", i, len(ins))
			}
			if err := c.MeasureAll(); err != nil {
				return nil, err
			}
			break
		}
		if err := c.Append(in); err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
	}
	return c, nil
}

func (c *Circuit) Width() int { return c.width }

// Len counts appended instructions, the terminal read-out included.
func (c *Circuit) Len() int { return len(c.ins) }

func (c *Circuit) Measured() bool { return c.measured }

// Append adds one instruction after validating its lane and parameter
// arity. Identity instructions are dropped: they carry no state change and
// the artifact never records them.
func (c *Circuit) Append(in Instruction) error {
	if c.measured {
		return ErrMeasured
	}
	switch in.Kind {
	case KindIdentity:
		return nil
	case KindMeasure:
		return errors.Wrap(ErrBadKind, "terminal read-out is appended via MeasureAll")
	case KindPhase, KindRotation, KindRotation3, KindCoupling:
	default:
		return errors.Wrapf(ErrBadKind, "kind %d", in.Kind)
	}
	if len(in.Lanes) != in.Kind.LaneCount() || len(in.Params) != in.Kind.ParamCount() {
		return errors.Wrapf(ErrBadArity, "%v wants %d lanes and %d params",
			in.Kind, in.Kind.LaneCount(), in.Kind.ParamCount())
	}
	for _, lane := range in.Lanes {
		if lane < 0 || lane >= c.width {
			return errors.Wrapf(ErrLaneOutOfRange, "lane %d with width %d", lane, c.width)
		}
	}
	if in.Kind == KindCoupling && in.Lanes[0] == in.Lanes[1] {
		return errors.Wrapf(ErrLaneOutOfRange, "coupling lanes must differ, got %d twice", in.Lanes[0])
	}
	c.ins = append(c.ins, in.clone())
	return nil
}

// Snapshot returns an independent deep copy of the current state. Mutating
// either circuit afterwards never affects the other.
func (c *Circuit) Snapshot() *Circuit {
	out := &Circuit{
		width:    c.width,
		measured: c.measured,
		ins:      make([]Instruction, 0, len(c.ins)),
	}
	for _, in := range c.ins {
		out.ins = append(out.ins, in.clone())
	}
	return out
}

// MeasureAll appends the terminal read-out consuming every lane into its
// output slot. It may be applied at most once.
func (c *Circuit) MeasureAll() error {
	if c.measured {
		return ErrMeasured
	}
	lanes := make([]int, c.width)
	for i := range lanes {
		lanes[i] = i
	}
	c.ins = append(c.ins, Instruction{Kind: KindMeasure, Lanes: lanes})
	c.measured = true
	return nil
}

// Instructions returns a deep copy of the operation sequence.
func (c *Circuit) Instructions() []Instruction {
	out := make([]Instruction, 0, len(c.ins))
	for _, in := range c.ins {
		out = append(out, in.clone())
	}
	return out
}

func (c *Circuit) CountKind(k Kind) int {
	var n int
	for _, in := range c.ins {
		if in.Kind == k {
			n++
		}
	}
	return n
}

// Equal reports structural equality: same width and identical instruction
// sequences.
func (c *Circuit) Equal(other *Circuit) bool {
	if other == nil || c.width != other.width || len(c.ins) != len(other.ins) {
		return false
	}
	for i := range c.ins {
		if !c.ins[i].equal(other.ins[i]) {
			return false
		}
	}
	return true
}

func (c *Circuit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "circuit(width=%d, ops=%d)", c.width, len(c.ins))
	for _, in := range c.ins {
		b.WriteString("\n  ")
		b.WriteString(in.String())
	}
	return b.String()
}
