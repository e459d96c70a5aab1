package gateway

import (
	"testing"
	"time"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
)

func TestSimulatorForcedOutcome(t *testing.T) {
	s := NewSimulator(Config{Simulation: SimulationConfig{Enabled: true, ForcedSuccess: true, ForcedDelay: 25 * time.Millisecond}})

	for i := 0; i < 10; i++ {
		if outcome := s.Settle(entity.PaymentMethodUPI); !outcome.Success {
			t.Fatal("forced success must never fail")
		}
	}
	if got := s.Delay(); got != 25*time.Millisecond {
		t.Fatalf("expected forced delay, got %v", got)
	}

	s = NewSimulator(Config{Simulation: SimulationConfig{Enabled: true, ForcedSuccess: false}})
	outcome := s.Settle(entity.PaymentMethodCard)
	if outcome.Success {
		t.Fatal("forced failure must never succeed")
	}
	if outcome.ErrorCode != FailureCode || outcome.ErrorDescription != FailureDescription {
		t.Fatalf("unexpected failure outcome %+v", outcome)
	}
}

func TestSimulatorDelayWithinRange(t *testing.T) {
	s := NewSimulator(Config{MinDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond})

	for i := 0; i < 100; i++ {
		d := s.Delay()
		if d < 10*time.Millisecond || d >= 20*time.Millisecond {
			t.Fatalf("delay %v outside [10ms,20ms)", d)
		}
	}
}

func TestSimulatorDefaults(t *testing.T) {
	s := NewSimulator(Config{})

	if s.cfg.MinDelay != 5*time.Second || s.cfg.MaxDelay != 5*time.Second {
		t.Fatalf("unexpected default delays %v-%v", s.cfg.MinDelay, s.cfg.MaxDelay)
	}
	if s.cfg.UPISuccessRate != 0.90 || s.cfg.CardSuccessRate != 0.95 {
		t.Fatalf("unexpected default rates %v/%v", s.cfg.UPISuccessRate, s.cfg.CardSuccessRate)
	}
}

func TestSimulatorMethodRates(t *testing.T) {
	// Degenerate rates make the outcome deterministic without reaching into
	// the random source.
	s := NewSimulator(Config{UPISuccessRate: 1.0, CardSuccessRate: 1.0})
	for i := 0; i < 50; i++ {
		if !s.Settle(entity.PaymentMethodUPI).Success || !s.Settle(entity.PaymentMethodCard).Success {
			t.Fatal("rate 1.0 must always succeed")
		}
	}
}
