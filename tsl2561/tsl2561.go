// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tsl2561

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// Gain is the analog gain applied to both channels.
type Gain byte

// IntegrationTime is the ADC integration period.
type IntegrationTime byte

// InterruptMode selects how the INT pin reports threshold crossings.
type InterruptMode byte

const (
	Gain1x  Gain = 0
	Gain16x Gain = 1

	Integration13ms   IntegrationTime = 0
	Integration101ms  IntegrationTime = 1
	Integration402ms  IntegrationTime = 2
	IntegrationManual IntegrationTime = 3

	InterruptDisabled InterruptMode = 0
	// InterruptLevel asserts INT until ClearInterrupt is called.
	InterruptLevel InterruptMode = 1
	// InterruptSMBAlert uses the SMBus alert response protocol.
	InterruptSMBAlert InterruptMode = 2
	// InterruptTest asserts INT immediately, for wiring checks.
	InterruptTest InterruptMode = 3

	// Addresses selected by the ADDR SEL pin.
	AddressLow     i2c.Addr = 0x29
	AddressFloat   i2c.Addr = 0x39
	AddressHigh    i2c.Addr = 0x49
	DefaultAddress i2c.Addr = AddressFloat
)

const (
	cmdBit   byte = 0x80
	clearBit byte = 0x40
	wordBit  byte = 0x20

	regControl    byte = 0x00
	regTiming     byte = 0x01
	regThreshLow  byte = 0x02
	regThreshHigh byte = 0x04
	regInterrupt  byte = 0x06
	regID         byte = 0x0a
	regData0      byte = 0x0c
	regData1      byte = 0x0e

	controlPowerOn  byte = 0x03
	controlPowerOff byte = 0x00

	timingGainBit   byte = 1 << 4
	timingManualBit byte = 1 << 3
	timingIntegMask byte = 0x03

	interruptModePos = 4
	maxPersist       = 15

	// Part numbers in the high nibble of the ID register.
	partTSL2560CS    byte = 0x0
	partTSL2561CS    byte = 0x1
	partTSL2560TFNCL byte = 0x4
	partTSL2561TFNCL byte = 0x5
)

var (
	// ErrUnknownDevice is returned when the ID register does not hold a
	// TSL2560 or TSL2561 part number.
	ErrUnknownDevice = errors.New("tsl2561: unknown device")
	// ErrUnderrange is returned when channel 0 reads zero and no ratio can
	// be computed.
	ErrUnderrange = errors.New("tsl2561: sensor underrange")
	// ErrOverrange is returned when either channel is saturated for the
	// selected integration time.
	ErrOverrange = errors.New("tsl2561: sensor overrange")
	// ErrInvalidInterval is returned by SenseContinuous when the interval is
	// shorter than a conversion.
	ErrInvalidInterval = errors.New("tsl2561: sample interval is < integration time")
	// ErrManualIntegration is returned when lux is requested in manual mode
	// before a manual integration has completed.
	ErrManualIntegration = errors.New("tsl2561: no completed manual integration")
)

// Opts holds the configuration options for the device.
type Opts struct {
	Gain        Gain
	Integration IntegrationTime
	// Package selects the lux coefficients. PackageAuto derives it from the
	// part number.
	Package Package
	// AutoGain switches between 1x and 16x when the broadband channel falls
	// outside the usable range, and re-reads once.
	AutoGain bool
	// PowerDownAfterSense turns the ADC off after every Sense to save power.
	// Each Sense then waits for a full integration period.
	PowerDownAfterSense bool
}

// DefaultOpts are the power on settings of the device, with the longest
// integration time.
var DefaultOpts = Opts{
	Gain:        Gain1x,
	Integration: Integration402ms,
	Package:     PackageAuto,
}

// Luminosity holds the raw ADC counts of both channels.
type Luminosity struct {
	// Broadband is channel 0, visible and infrared.
	Broadband uint16
	// Infrared is channel 1.
	Infrared uint16
}

// Reading is the result of a Sense call.
type Reading struct {
	Luminosity
	// Lux is the computed illuminance. It is 0 when Valid is false.
	Lux float64
	// Valid is false when a channel was saturated or channel 0 read zero.
	Valid       bool
	Gain        Gain
	Integration IntegrationTime
}

func (r Reading) String() string {
	if !r.Valid {
		return fmt.Sprintf("Broadband: %d Infrared: %d Lux: n/a", r.Broadband, r.Infrared)
	}
	return fmt.Sprintf("Broadband: %d Infrared: %d Lux: %.2f", r.Broadband, r.Infrared, r.Lux)
}

// Dev represents a TSL2561 light sensor.
type Dev struct {
	d    *i2c.Dev
	opts Opts
	mu   sync.Mutex

	enabled bool
	gain    Gain
	integ   IntegrationTime
	pkg     Package
	// readyAt is when the channel registers hold a conversion made with the
	// current settings.
	readyAt     time.Time
	manualStart time.Time
	manual      time.Duration

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewI2C returns a new TSL2561 sensor using the specified bus and address.
// The device's power state is left untouched; Sense powers it on when
// needed. If opts is nil, DefaultOpts is used.
func NewI2C(b i2c.Bus, addr i2c.Addr, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Gain > Gain16x {
		return nil, fmt.Errorf("tsl2561: invalid gain %d", opts.Gain)
	}
	if opts.Integration >= IntegrationManual {
		return nil, fmt.Errorf("tsl2561: invalid integration time %d", opts.Integration)
	}
	if opts.Package > PackageCS {
		return nil, fmt.Errorf("tsl2561: invalid package %d", opts.Package)
	}
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: uint16(addr)}, opts: *opts}
	if err := dev.start(); err != nil {
		return nil, err
	}
	return dev, nil
}

// start identifies the device and writes the configured timing.
func (dev *Dev) start() error {
	id, err := dev.readRegister(regID)
	if err != nil {
		return fmt.Errorf("tsl2561: reading id %w", err)
	}
	part := id >> 4
	switch part {
	case partTSL2560CS, partTSL2561CS:
		dev.pkg = PackageCS
	case partTSL2560TFNCL, partTSL2561TFNCL:
		dev.pkg = PackageTFNCL
	default:
		return fmt.Errorf("%w: id 0x%02x", ErrUnknownDevice, id)
	}
	if dev.opts.Package != PackageAuto {
		dev.pkg = dev.opts.Package
	}

	control, err := dev.readRegister(regControl)
	if err != nil {
		return fmt.Errorf("tsl2561: reading control %w", err)
	}
	dev.enabled = control&controlPowerOn == controlPowerOn

	timing := byte(dev.opts.Integration)
	if dev.opts.Gain == Gain16x {
		timing |= timingGainBit
	}
	if err := dev.writeRegister(regTiming, timing); err != nil {
		return fmt.Errorf("tsl2561: writing timing %w", err)
	}
	dev.gain = dev.opts.Gain
	dev.integ = dev.opts.Integration
	dev.touch()
	return nil
}

func (dev *Dev) readRegister(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := dev.d.Tx([]byte{cmdBit | reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// readWord reads a little endian register pair.
func (dev *Dev) readWord(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := dev.d.Tx([]byte{cmdBit | wordBit | reg}, r); err != nil {
		return 0, err
	}
	return uint16(r[1])<<8 | uint16(r[0]), nil
}

func (dev *Dev) writeRegister(reg, value byte) error {
	return dev.d.Tx([]byte{cmdBit | reg, value}, nil)
}

func (dev *Dev) writeWord(reg byte, value uint16) error {
	return dev.d.Tx([]byte{cmdBit | wordBit | reg, byte(value), byte(value >> 8)}, nil)
}

// touch marks the channel data stale until a full conversion has elapsed.
func (dev *Dev) touch() {
	dev.readyAt = time.Now().Add(dev.integ.settle())
}

// settle blocks until the channel registers are valid.
func (dev *Dev) settle() {
	if wait := time.Until(dev.readyAt); wait > 0 {
		time.Sleep(wait)
	}
}

// ChipID returns the part number and the revision number.
func (dev *Dev) ChipID() (partNo, revNo byte, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	id, err := dev.readRegister(regID)
	if err != nil {
		return 0, 0, fmt.Errorf("tsl2561: reading id %w", err)
	}
	return (id >> 4) & 0x0f, id & 0x0f, nil
}

// Enabled returns true if the ADC is powered on.
func (dev *Dev) Enabled() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.enabled
}

// Enable powers the ADC on. The first conversion is available after one
// integration period.
func (dev *Dev) Enable() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.enable()
}

// Disable powers the ADC off.
func (dev *Dev) Disable() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.disable()
}

func (dev *Dev) enable() error {
	if err := dev.writeRegister(regControl, controlPowerOn); err != nil {
		return fmt.Errorf("tsl2561: power on %w", err)
	}
	dev.enabled = true
	dev.touch()
	return nil
}

func (dev *Dev) disable() error {
	if err := dev.writeRegister(regControl, controlPowerOff); err != nil {
		return fmt.Errorf("tsl2561: power off %w", err)
	}
	dev.enabled = false
	return nil
}

// Gain returns the gain currently set in the device.
func (dev *Dev) Gain() (Gain, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	timing, err := dev.readRegister(regTiming)
	if err != nil {
		return Gain1x, fmt.Errorf("tsl2561: reading timing %w", err)
	}
	dev.gain = Gain((timing >> 4) & 0x01)
	return dev.gain, nil
}

// SetGain changes the gain. The integration time is left unchanged.
func (dev *Dev) SetGain(g Gain) error {
	if g > Gain16x {
		return fmt.Errorf("tsl2561: invalid gain %d", g)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.setGain(g)
}

func (dev *Dev) setGain(g Gain) error {
	current, err := dev.readRegister(regTiming)
	if err != nil {
		return fmt.Errorf("tsl2561: reading timing %w", err)
	}
	timing := current &^ timingGainBit
	if g == Gain16x {
		timing |= timingGainBit
	}
	if err := dev.writeRegister(regTiming, timing); err != nil {
		return fmt.Errorf("tsl2561: writing timing %w", err)
	}
	dev.gain = g
	dev.touch()
	return nil
}

// IntegrationTime returns the integration time currently set in the device.
func (dev *Dev) IntegrationTime() (IntegrationTime, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	timing, err := dev.readRegister(regTiming)
	if err != nil {
		return Integration13ms, fmt.Errorf("tsl2561: reading timing %w", err)
	}
	dev.integ = IntegrationTime(timing & timingIntegMask)
	return dev.integ, nil
}

// SetIntegrationTime changes the integration time. The gain is left
// unchanged. Use StartManualIntegration for manual timing.
func (dev *Dev) SetIntegrationTime(t IntegrationTime) error {
	if t >= IntegrationManual {
		return fmt.Errorf("tsl2561: invalid integration time %d", t)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	current, err := dev.readRegister(regTiming)
	if err != nil {
		return fmt.Errorf("tsl2561: reading timing %w", err)
	}
	timing := current&^(timingIntegMask|timingManualBit) | byte(t)
	if err := dev.writeRegister(regTiming, timing); err != nil {
		return fmt.Errorf("tsl2561: writing timing %w", err)
	}
	dev.integ = t
	dev.manual = 0
	dev.touch()
	return nil
}

// StartManualIntegration opens a manually timed integration window,
// powering the device on if needed. Close it with StopManualIntegration.
func (dev *Dev) StartManualIntegration() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return errors.New("tsl2561: SenseContinuous is running")
	}
	if !dev.enabled {
		if err := dev.enable(); err != nil {
			return err
		}
	}
	current, err := dev.readRegister(regTiming)
	if err != nil {
		return fmt.Errorf("tsl2561: reading timing %w", err)
	}
	timing := current | byte(IntegrationManual) | timingManualBit
	if err := dev.writeRegister(regTiming, timing); err != nil {
		return fmt.Errorf("tsl2561: writing timing %w", err)
	}
	dev.integ = IntegrationManual
	dev.manual = 0
	dev.manualStart = time.Now()
	return nil
}

// StopManualIntegration closes the integration window and returns its
// duration. The channel registers then hold the accumulated counts.
func (dev *Dev) StopManualIntegration() (time.Duration, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.integ != IntegrationManual || dev.manualStart.IsZero() {
		return 0, errors.New("tsl2561: manual integration not started")
	}
	current, err := dev.readRegister(regTiming)
	if err != nil {
		return 0, fmt.Errorf("tsl2561: reading timing %w", err)
	}
	timing := current&^timingManualBit | byte(IntegrationManual)
	if err := dev.writeRegister(regTiming, timing); err != nil {
		return 0, fmt.Errorf("tsl2561: writing timing %w", err)
	}
	dev.manual = time.Since(dev.manualStart)
	dev.manualStart = time.Time{}
	dev.readyAt = time.Now()
	return dev.manual, nil
}

// Broadband returns the channel 0 count.
func (dev *Dev) Broadband() (uint16, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	v, err := dev.readWord(regData0)
	if err != nil {
		return 0, fmt.Errorf("tsl2561: reading broadband %w", err)
	}
	return v, nil
}

// Infrared returns the channel 1 count.
func (dev *Dev) Infrared() (uint16, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	v, err := dev.readWord(regData1)
	if err != nil {
		return 0, fmt.Errorf("tsl2561: reading infrared %w", err)
	}
	return v, nil
}

// Luminosity returns both channel counts.
func (dev *Dev) Luminosity() (Luminosity, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.readLuminosity()
}

func (dev *Dev) readLuminosity() (Luminosity, error) {
	var l Luminosity
	var err error
	if l.Broadband, err = dev.readWord(regData0); err != nil {
		return l, fmt.Errorf("tsl2561: reading broadband %w", err)
	}
	if l.Infrared, err = dev.readWord(regData1); err != nil {
		return l, fmt.Errorf("tsl2561: reading infrared %w", err)
	}
	return l, nil
}

// Lux reads both channels and returns the computed illuminance using the
// current gain and integration time. It returns ErrUnderrange or
// ErrOverrange when the counts can't be converted.
func (dev *Dev) Lux() (float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	l, err := dev.readLuminosity()
	if err != nil {
		return 0, err
	}
	return computeLux(l, dev.gain, dev.integ, dev.pkg, dev.manual)
}

// Sense powers the device on if needed, waits for a valid conversion and
// reads it into r. Raw counts are filled in even when the lux computation
// fails with ErrUnderrange or ErrOverrange.
func (dev *Dev) Sense(r *Reading) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.integ == IntegrationManual {
		if dev.manual == 0 {
			return ErrManualIntegration
		}
	} else if !dev.enabled {
		if err := dev.enable(); err != nil {
			return err
		}
	}
	dev.settle()
	l, err := dev.readLuminosity()
	if err != nil {
		return err
	}
	if dev.opts.AutoGain && dev.integ != IntegrationManual {
		if l, err = dev.autoGain(l); err != nil {
			return err
		}
	}
	r.Luminosity = l
	r.Gain = dev.gain
	r.Integration = dev.integ
	r.Lux, err = computeLux(l, dev.gain, dev.integ, dev.pkg, dev.manual)
	r.Valid = err == nil
	if dev.opts.PowerDownAfterSense && dev.integ != IntegrationManual {
		if errOff := dev.disable(); errOff != nil {
			return errOff
		}
	}
	return err
}

// autoGain retries the conversion once at the other gain when the
// broadband count is outside the usable window.
func (dev *Dev) autoGain(l Luminosity) (Luminosity, error) {
	lo, hi := autoGainLimits(dev.integ)
	var target Gain
	switch {
	case dev.gain == Gain1x && l.Broadband < lo:
		target = Gain16x
	case dev.gain == Gain16x && l.Broadband > hi:
		target = Gain1x
	default:
		return l, nil
	}
	if err := dev.setGain(target); err != nil {
		return l, err
	}
	dev.settle()
	return dev.readLuminosity()
}

// SenseContinuous reads the sensor every interval and sends the readings
// on the returned channel. Readings whose lux could not be computed are
// sent with Valid set to false. To terminate, call Halt().
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan Reading, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, errors.New("tsl2561: SenseContinuous already running")
	}
	if dev.integ == IntegrationManual {
		return nil, errors.New("tsl2561: SenseContinuous requires a fixed integration time")
	}
	if interval < dev.integ.Duration() {
		return nil, ErrInvalidInterval
	}
	dev.shutdown = make(chan struct{})
	ch := make(chan Reading, 16)
	dev.wg.Add(1)
	go dev.senseLoop(interval, ch, dev.shutdown)
	return ch, nil
}

func (dev *Dev) senseLoop(interval time.Duration, ch chan<- Reading, shutdown <-chan struct{}) {
	defer dev.wg.Done()
	defer close(ch)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			r := Reading{}
			err := dev.Sense(&r)
			if err != nil && !errors.Is(err, ErrUnderrange) && !errors.Is(err, ErrOverrange) {
				continue
			}
			select {
			case ch <- r:
			default:
			}
		}
	}
}

// SetThresholds sets the channel 0 interrupt window. An interrupt is
// generated when the broadband count falls outside [low, high].
func (dev *Dev) SetThresholds(low, high uint16) error {
	if low > high {
		return errors.New("tsl2561: invalid threshold range")
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.writeWord(regThreshLow, low); err != nil {
		return fmt.Errorf("tsl2561: writing low threshold %w", err)
	}
	if err := dev.writeWord(regThreshHigh, high); err != nil {
		return fmt.Errorf("tsl2561: writing high threshold %w", err)
	}
	return nil
}

// Thresholds returns the channel 0 interrupt window.
func (dev *Dev) Thresholds() (low, high uint16, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if low, err = dev.readWord(regThreshLow); err != nil {
		return 0, 0, fmt.Errorf("tsl2561: reading low threshold %w", err)
	}
	if high, err = dev.readWord(regThreshHigh); err != nil {
		return 0, 0, fmt.Errorf("tsl2561: reading high threshold %w", err)
	}
	return low, high, nil
}

// SetInterrupt configures the interrupt output. persist is the number of
// consecutive out of window conversions required, 0 interrupts after every
// conversion. Refer to the interrupt control register section of the
// datasheet.
func (dev *Dev) SetInterrupt(mode InterruptMode, persist byte) error {
	if mode > InterruptTest {
		return fmt.Errorf("tsl2561: invalid interrupt mode %d", mode)
	}
	if persist > maxPersist {
		return fmt.Errorf("tsl2561: invalid persistence %d", persist)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.writeRegister(regInterrupt, byte(mode)<<interruptModePos|persist); err != nil {
		return fmt.Errorf("tsl2561: writing interrupt control %w", err)
	}
	return nil
}

// Interrupt returns the interrupt mode and persistence.
func (dev *Dev) Interrupt() (InterruptMode, byte, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	v, err := dev.readRegister(regInterrupt)
	if err != nil {
		return InterruptDisabled, 0, fmt.Errorf("tsl2561: reading interrupt control %w", err)
	}
	return InterruptMode((v >> interruptModePos) & 0x03), v & maxPersist, nil
}

// ClearInterrupt clears a pending level interrupt.
func (dev *Dev) ClearInterrupt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.d.Tx([]byte{cmdBit | clearBit}, nil); err != nil {
		return fmt.Errorf("tsl2561: clearing interrupt %w", err)
	}
	return nil
}

// Halt stops a running SenseContinuous and powers the device down.
// Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	dev.mu.Unlock()
	dev.wg.Wait()

	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.disable()
}

func (dev *Dev) String() string {
	return fmt.Sprintf("tsl2561: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
