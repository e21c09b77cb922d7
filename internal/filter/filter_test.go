package filter

import "testing"

func TestBiquadLowpassDCGain(t *testing.T) {
	b := NewBiquad(Lowpass, 0.05)
	var out float64
	for i := 0; i < 500; i++ {
		out = b.Process(1.0)
	}
	if out < 0.99 || out > 1.01 {
		t.Fatalf("expected DC gain ~1.0 after settling, got %f", out)
	}
}

func TestBiquadHighpassBlocksDC(t *testing.T) {
	b := NewBiquad(Highpass, 0.05)
	var out float64
	for i := 0; i < 500; i++ {
		out = b.Process(1.0)
	}
	if out < -0.01 || out > 0.01 {
		t.Fatalf("expected DC to be blocked, got %f", out)
	}
}

func TestBiquadReset(t *testing.T) {
	b := NewBiquad(Lowpass, 0.1)
	for i := 0; i < 50; i++ {
		b.Process(1.0)
	}
	b.Reset()
	out := b.Process(0)
	if out != 0 {
		t.Fatalf("expected zero state after reset, got %f", out)
	}
}

func TestPT1ConvergesToStep(t *testing.T) {
	p := NewPT1(10, 1000)
	var out float64
	for i := 0; i < 2000; i++ {
		out = p.Process(5.0)
	}
	if out < 4.9 || out > 5.1 {
		t.Fatalf("expected PT1 to converge to 5.0, got %f", out)
	}
}

func TestPT1Reset(t *testing.T) {
	p := NewPT1(10, 1000)
	for i := 0; i < 100; i++ {
		p.Process(5.0)
	}
	p.Reset()
	if p.State() != 0 {
		t.Fatalf("expected zero state after reset, got %f", p.State())
	}
}
