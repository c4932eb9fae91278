// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tsl2561

import (
	"fmt"
	"math"
	"time"
)

// Package is the chip package, which changes the spectral response and so
// the lux coefficients.
type Package byte

const (
	// PackageAuto derives the package from the part number.
	PackageAuto Package = iota
	// PackageTFNCL covers the T, FN and CL packages.
	PackageTFNCL
	// PackageCS is the chipscale package.
	PackageCS
)

// segment is one piece of the empirical lux formula, valid for
// ch1/ch0 <= maxRatio.
type segment struct {
	maxRatio float64
	k0, k1   float64
	// power uses ch0*(k0 - k1*ratio^1.4) instead of k0*ch0 - k1*ch1.
	power bool
}

var (
	segmentsTFNCL = []segment{
		{0.50, 0.0304, 0.062, true},
		{0.61, 0.0224, 0.031, false},
		{0.80, 0.0128, 0.0153, false},
		{1.30, 0.00146, 0.00112, false},
	}
	segmentsCS = []segment{
		{0.52, 0.0315, 0.0593, true},
		{0.65, 0.0229, 0.0291, false},
		{0.80, 0.0157, 0.0180, false},
		{1.30, 0.00338, 0.00260, false},
	}
)

const (
	// The formula is specified for 16x gain and 402ms.
	nominalIntegration = 402 * time.Millisecond
	gainScale1x        = 16
)

// clipThreshold is the count above which a channel is considered
// saturated.
func (t IntegrationTime) clipThreshold() uint16 {
	switch t {
	case Integration13ms:
		return 4900
	case Integration101ms:
		return 37000
	default:
		return 65000
	}
}

// timeScale normalizes the counts to the nominal integration time.
func (t IntegrationTime) timeScale(manual time.Duration) float64 {
	switch t {
	case Integration13ms:
		return 1 / 0.034
	case Integration101ms:
		return 1 / 0.252
	case IntegrationManual:
		return float64(nominalIntegration) / float64(manual)
	default:
		return 1
	}
}

// settle is how long to wait after a settings change or power on before
// the channel registers hold a complete conversion.
func (t IntegrationTime) settle() time.Duration {
	switch t {
	case Integration13ms:
		return 15 * time.Millisecond
	case Integration101ms:
		return 120 * time.Millisecond
	case Integration402ms:
		return 450 * time.Millisecond
	default:
		return 0
	}
}

// Duration returns the nominal integration period, 0 for manual timing.
func (t IntegrationTime) Duration() time.Duration {
	switch t {
	case Integration13ms:
		return 13700 * time.Microsecond
	case Integration101ms:
		return 101 * time.Millisecond
	case Integration402ms:
		return nominalIntegration
	default:
		return 0
	}
}

func (t IntegrationTime) String() string {
	switch t {
	case Integration13ms:
		return "13.7ms"
	case Integration101ms:
		return "101ms"
	case Integration402ms:
		return "402ms"
	case IntegrationManual:
		return "manual"
	default:
		return fmt.Sprintf("IntegrationTime(%d)", byte(t))
	}
}

func (g Gain) String() string {
	switch g {
	case Gain1x:
		return "1x"
	case Gain16x:
		return "16x"
	default:
		return fmt.Sprintf("Gain(%d)", byte(g))
	}
}

func (p Package) String() string {
	switch p {
	case PackageAuto:
		return "auto"
	case PackageTFNCL:
		return "T/FN/CL"
	case PackageCS:
		return "CS"
	default:
		return fmt.Sprintf("Package(%d)", byte(p))
	}
}

// autoGainLimits returns the broadband window used by auto gain.
func autoGainLimits(t IntegrationTime) (lo, hi uint16) {
	switch t {
	case Integration13ms:
		return 100, 4850
	case Integration101ms:
		return 200, 36000
	default:
		return 500, 63000
	}
}

// ComputeLux converts raw counts taken at the given gain and fixed
// integration time into lux. It returns ErrUnderrange when the broadband
// channel is 0 and ErrOverrange when a channel is saturated.
//
// PackageAuto uses the T/FN/CL coefficients.
func ComputeLux(l Luminosity, g Gain, t IntegrationTime, p Package) (float64, error) {
	if g > Gain16x {
		return 0, fmt.Errorf("tsl2561: invalid gain %d", g)
	}
	if t > IntegrationManual {
		return 0, fmt.Errorf("tsl2561: invalid integration time %d", t)
	}
	if p > PackageCS {
		return 0, fmt.Errorf("tsl2561: invalid package %d", p)
	}
	if t == IntegrationManual {
		return 0, ErrManualIntegration
	}
	return computeLux(l, g, t, p, 0)
}

func computeLux(l Luminosity, g Gain, t IntegrationTime, p Package, manual time.Duration) (float64, error) {
	if t == IntegrationManual && manual <= 0 {
		return 0, ErrManualIntegration
	}
	if l.Broadband == 0 {
		return 0, ErrUnderrange
	}
	clip := t.clipThreshold()
	if l.Broadband > clip || l.Infrared > clip {
		return 0, ErrOverrange
	}
	segments := segmentsTFNCL
	if p == PackageCS {
		segments = segmentsCS
	}
	ch0 := float64(l.Broadband)
	ch1 := float64(l.Infrared)
	ratio := ch1 / ch0
	lux := 0.0
	for _, s := range segments {
		if ratio > s.maxRatio {
			continue
		}
		if s.power {
			lux = s.k0*ch0 - s.k1*ch0*math.Pow(ratio, 1.4)
		} else {
			lux = s.k0*ch0 - s.k1*ch1
		}
		break
	}
	if lux < 0 {
		lux = 0
	}
	if g == Gain1x {
		lux *= gainScale1x
	}
	return lux * t.timeScale(manual), nil
}
