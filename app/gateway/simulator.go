// Package gateway simulates the acquiring side of a payment network. There
// is no external call: outcomes and latency are drawn from configured
// distributions, or forced outright when simulation mode is enabled.
package gateway

import (
	"math/rand"
	"time"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
)

// Generic failure attached to declined payments; the simulation does not
// model granular decline reasons.
const (
	FailureCode        = "PAYMENT_FAILED"
	FailureDescription = "Automated processing failure"
)

// SimulationConfig forces deterministic settlement behavior. It is passed
// explicitly into the worker and the payment producer; nothing in the
// pipeline reads ambient process state.
type SimulationConfig struct {
	Enabled       bool
	ForcedSuccess bool
	ForcedDelay   time.Duration
}

type Config struct {
	Simulation SimulationConfig

	// Latency range of a simulated gateway round trip.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Method-dependent success probabilities. UPI declines more often than
	// card, mirroring real-world decline-rate asymmetry.
	UPISuccessRate  float64
	CardSuccessRate float64
}

type Outcome struct {
	Success          bool
	ErrorCode        string
	ErrorDescription string
}

type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 5 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.UPISuccessRate <= 0 {
		cfg.UPISuccessRate = 0.90
	}
	if cfg.CardSuccessRate <= 0 {
		cfg.CardSuccessRate = 0.95
	}
	return &Simulator{cfg: cfg}
}

func (s *Simulator) Simulation() SimulationConfig {
	return s.cfg.Simulation
}

// Delay returns how long the simulated gateway round trip takes.
func (s *Simulator) Delay() time.Duration {
	if s.cfg.Simulation.Enabled {
		return s.cfg.Simulation.ForcedDelay
	}
	spread := s.cfg.MaxDelay - s.cfg.MinDelay
	if spread <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + time.Duration(rand.Int63n(int64(spread)))
}

// Settle decides the settlement outcome for one payment.
func (s *Simulator) Settle(method entity.PaymentMethod) Outcome {
	if s.cfg.Simulation.Enabled {
		return outcomeFromSuccess(s.cfg.Simulation.ForcedSuccess)
	}

	rate := s.cfg.CardSuccessRate
	if method == entity.PaymentMethodUPI {
		rate = s.cfg.UPISuccessRate
	}
	return outcomeFromSuccess(rand.Float64() < rate)
}

func outcomeFromSuccess(success bool) Outcome {
	if success {
		return Outcome{Success: true}
	}
	return Outcome{
		Success:          false,
		ErrorCode:        FailureCode,
		ErrorDescription: FailureDescription,
	}
}
