package metric

import (
	"encoding/json"
	"strconv"
)

// Value is a number that may be absent. Absent means "no data", which is
// different from a present zero.
type Value struct {
	v  float64
	ok bool
}

func Present(v float64) Value { return Value{v: v, ok: true} }

func Absent() Value { return Value{} }

// FromPtr maps nil to Absent.
func FromPtr(p *float64) Value {
	if p == nil {
		return Absent()
	}
	return Present(*p)
}

func (v Value) Get() (float64, bool) { return v.v, v.ok }

func (v Value) IsPresent() bool { return v.ok }

// Ptr returns nil for an absent value.
func (v Value) Ptr() *float64 {
	if !v.ok {
		return nil
	}
	f := v.v
	return &f
}

// Add sums two values. The result is absent only when both are absent.
func (v Value) Add(o Value) Value {
	switch {
	case v.ok && o.ok:
		return Present(v.v + o.v)
	case v.ok:
		return v
	default:
		return o
	}
}

// Scale multiplies a present value by k.
func (v Value) Scale(k float64) Value {
	if !v.ok {
		return v
	}
	return Present(v.v * k)
}

// Ratio divides num by den. Absent when either side is absent or den is zero.
func Ratio(num, den Value) Value {
	if !num.ok || !den.ok || den.v == 0 {
		return Absent()
	}
	return Present(num.v / den.v)
}

func (v Value) String() string {
	if !v.ok {
		return "absent"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Ptr())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var p *float64
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = FromPtr(p)
	return nil
}
