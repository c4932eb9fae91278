// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tsl2561

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestComputeLux(t *testing.T) {
	tests := []struct {
		name     string
		l        Luminosity
		gain     Gain
		integ    IntegrationTime
		pkg      Package
		expected float64
	}{
		{"low ratio", Luminosity{1000, 200}, Gain16x, Integration402ms, PackageTFNCL, 23.8865},
		{"second segment", Luminosity{1000, 550}, Gain16x, Integration402ms, PackageTFNCL, 5.35},
		{"third segment", Luminosity{1000, 700}, Gain16x, Integration402ms, PackageTFNCL, 2.09},
		{"fourth segment", Luminosity{1000, 1000}, Gain16x, Integration402ms, PackageTFNCL, 0.34},
		{"mostly infrared", Luminosity{1000, 1400}, Gain16x, Integration402ms, PackageTFNCL, 0},
		{"gain 1x", Luminosity{1000, 550}, Gain1x, Integration402ms, PackageTFNCL, 85.6},
		{"101ms", Luminosity{1000, 550}, Gain16x, Integration101ms, PackageTFNCL, 21.2302},
		{"13ms", Luminosity{1000, 550}, Gain16x, Integration13ms, PackageTFNCL, 157.3529},
		{"chipscale", Luminosity{1000, 550}, Gain16x, Integration402ms, PackageCS, 6.895},
		{"dark", Luminosity{1, 0}, Gain16x, Integration402ms, PackageTFNCL, 0.0304},
	}
	for _, test := range tests {
		lux, err := ComputeLux(test.l, test.gain, test.integ, test.pkg)
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
			continue
		}
		if math.Abs(lux-test.expected) > 0.01 {
			t.Errorf("%s: ComputeLux(%+v)=%.4f expected %.4f", test.name, test.l, lux, test.expected)
		}
	}
}

func TestComputeLuxRange(t *testing.T) {
	tests := []struct {
		l        Luminosity
		integ    IntegrationTime
		expected error
	}{
		{Luminosity{0, 0}, Integration402ms, ErrUnderrange},
		{Luminosity{0, 10}, Integration101ms, ErrUnderrange},
		{Luminosity{5000, 100}, Integration13ms, ErrOverrange},
		{Luminosity{4000, 4901}, Integration13ms, ErrOverrange},
		{Luminosity{37001, 100}, Integration101ms, ErrOverrange},
		{Luminosity{65535, 100}, Integration402ms, ErrOverrange},
		{Luminosity{100, 10}, IntegrationManual, ErrManualIntegration},
	}
	for _, test := range tests {
		_, err := ComputeLux(test.l, Gain1x, test.integ, PackageTFNCL)
		if !errors.Is(err, test.expected) {
			t.Errorf("ComputeLux(%+v, %s) returned %v expected %v", test.l, test.integ, err, test.expected)
		}
	}
	invalid := []struct {
		g Gain
		t IntegrationTime
		p Package
	}{
		{Gain(7), Integration402ms, PackageTFNCL},
		{Gain1x, IntegrationTime(9), PackageTFNCL},
		{Gain1x, Integration402ms, Package(42)},
		{Gain(7), IntegrationTime(9), Package(42)},
	}
	for _, test := range invalid {
		if lux, err := ComputeLux(Luminosity{1000, 200}, test.g, test.t, test.p); err == nil {
			t.Errorf("ComputeLux(%s, %s, %s)=%.4f did not return an error", test.g, test.t, test.p, lux)
		}
	}
	// Right at the clip threshold is still valid.
	if _, err := ComputeLux(Luminosity{4900, 4900}, Gain1x, Integration13ms, PackageTFNCL); err != nil {
		t.Errorf("unexpected error at clip threshold %v", err)
	}
}

func TestComputeLuxManual(t *testing.T) {
	lux, err := computeLux(Luminosity{1000, 550}, Gain16x, IntegrationManual, PackageTFNCL, 201*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lux-10.7) > 0.01 {
		t.Errorf("manual lux=%.4f expected 10.7", lux)
	}
}

func TestAutoGainLimits(t *testing.T) {
	for _, integ := range []IntegrationTime{Integration13ms, Integration101ms, Integration402ms} {
		lo, hi := autoGainLimits(integ)
		if lo >= hi {
			t.Errorf("%s: invalid window %d-%d", integ, lo, hi)
		}
		if hi >= integ.clipThreshold() {
			t.Errorf("%s: high limit %d is above clip threshold %d", integ, hi, integ.clipThreshold())
		}
		if integ.settle() < integ.Duration() {
			t.Errorf("%s: settle time %s < integration %s", integ, integ.settle(), integ.Duration())
		}
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		s        string
		expected string
	}{
		{Gain1x.String(), "1x"},
		{Gain16x.String(), "16x"},
		{Gain(7).String(), "Gain(7)"},
		{Integration13ms.String(), "13.7ms"},
		{IntegrationManual.String(), "manual"},
		{PackageCS.String(), "CS"},
		{Reading{Luminosity: Luminosity{10, 2}, Lux: 1.5, Valid: true}.String(), "Broadband: 10 Infrared: 2 Lux: 1.50"},
		{Reading{Luminosity: Luminosity{0, 0}}.String(), "Broadband: 0 Infrared: 0 Lux: n/a"},
	}
	for _, test := range tests {
		if test.s != test.expected {
			t.Errorf("got %q expected %q", test.s, test.expected)
		}
	}
}
