package control

import (
	"math"
	"testing"
)

func TestPIDProportional(t *testing.T) {
	p := NewPID(Gains{Kp: 2})
	if out := p.Compute(5, 3, 0.1); out != 4 {
		t.Fatalf("expected 4 got %v", out)
	}
}

func TestPIDIntegralAndDerivative(t *testing.T) {
	p := NewPID(Gains{Kp: 0.5, Ki: 0.1, Kd: 0.05})
	// e=5, integral=0.25, derivative=(5-0)/0.05=100
	out := p.Compute(5, 0, 0.05)
	want := 0.5*5 + 0.1*0.25 + 0.05*100
	if math.Abs(out-want) > 1e-12 {
		t.Fatalf("expected %v got %v", want, out)
	}
	// e=4, integral=0.45, derivative=(4-5)/0.05=-20
	out = p.Compute(5, 1, 0.05)
	want = 0.5*4 + 0.1*0.45 + 0.05*-20
	if math.Abs(out-want) > 1e-12 {
		t.Fatalf("expected %v got %v", want, out)
	}
}

func TestPIDZeroDT(t *testing.T) {
	p := NewPID(Gains{Kp: 1, Ki: 1, Kd: 10})
	out := p.Compute(1, 0, 0)
	if out != 1 {
		t.Fatalf("expected proportional term only, got %v", out)
	}
	out = p.Compute(1, 0, -1)
	if math.IsInf(out, 0) || math.IsNaN(out) {
		t.Fatalf("negative dt must not blow up: %v", out)
	}
}

func TestPIDReset(t *testing.T) {
	p := NewPID(Gains{Kp: 1, Ki: 1, Kd: 1})
	p.Compute(3, 1, 0.1)
	if i, e := p.State(); i == 0 || e == 0 {
		t.Fatalf("expected accumulated state, got %v %v", i, e)
	}
	p.Reset()
	if i, e := p.State(); i != 0 || e != 0 {
		t.Fatalf("expected zero state after reset, got %v %v", i, e)
	}
	fresh := NewPID(p.Gains())
	if a, b := p.Compute(2, 0, 0.1), fresh.Compute(2, 0, 0.1); a != b {
		t.Fatalf("reset regulator differs from fresh one: %v vs %v", a, b)
	}
}
