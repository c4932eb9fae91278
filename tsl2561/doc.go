// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Package tsl2561 controls a TAOS/AMS TSL2561 (and TSL2560) I²C light to
// digital converter, as found on the Adafruit TSL2561 breakout board.
//
// The device has two photodiodes. Channel 0 (broadband) responds to visible
// and infrared light, channel 1 responds to infrared light only. The driver
// combines both channels with the empirical datasheet formula to approximate
// the illuminance perceived by the human eye, in lux.
//
// Range: 0.1 - 40,000+ lux
//
// Gain: 1x or 16x
//
// Integration time: 13.7ms, 101ms, 402ms or manually timed
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/TSL2561.pdf
//
// # Product
//
// https://www.adafruit.com/product/439
//
// A command line example is available in cmd/tsl2561.
package tsl2561
