package actuator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// ServoHz is the standard hobby servo frame rate.
const ServoHz = 50 * physic.Hertz

// outputPin is the part of gpio.PinIO the driver uses.
type outputPin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
	Halt() error
	String() string
}

// GPIODriver drives the TB6612 and the servos through periph.io.
// It has no internal locking; the scheduler serializes its users.
type GPIODriver struct {
	log      *slog.Logger
	maxSpeed float64
	motorHz  physic.Frequency
	settle   time.Duration
	sleep    func(time.Duration)

	aFwd, aBack outputPin
	bFwd, bBack outputPin
	standby     outputPin    // nil when not wired
	servos      [2]outputPin // nil when the subsystem is disabled
}

// NewGPIO initializes the host and claims every configured pin.
func NewGPIO(cfg Config) (*GPIODriver, error) {
	cfg.setDefaults()
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHost, err)
	}

	lookup := func(name string) (outputPin, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
		}
		return p, nil
	}

	pins := make(map[string]outputPin)
	for _, name := range []string{cfg.Motors.AForward, cfg.Motors.ABackward, cfg.Motors.BForward, cfg.Motors.BBackward} {
		p, err := lookup(name)
		if err != nil {
			return nil, err
		}
		pins[name] = p
	}

	var standby outputPin
	if cfg.Motors.Standby != "" {
		p, err := lookup(cfg.Motors.Standby)
		if err != nil {
			return nil, err
		}
		standby = p
	}

	var servos [2]outputPin
	if cfg.ServosEnabled {
		for i, name := range []string{cfg.Servo1, cfg.Servo2} {
			p, err := lookup(name)
			if err != nil {
				return nil, err
			}
			servos[i] = p
		}
	}

	d := newGPIODriver(cfg, pins[cfg.Motors.AForward], pins[cfg.Motors.ABackward],
		pins[cfg.Motors.BForward], pins[cfg.Motors.BBackward], standby, servos)

	if d.standby != nil {
		if err := d.standby.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("enable standby %s: %w", d.standby, err)
		}
	}
	d.StopMotors()
	d.DetachServos()
	return d, nil
}

func newGPIODriver(cfg Config, aFwd, aBack, bFwd, bBack, standby outputPin, servos [2]outputPin) *GPIODriver {
	cfg.setDefaults()
	return &GPIODriver{
		log:      cfg.Logger.With("component", "gpio"),
		maxSpeed: cfg.MaxSpeed,
		motorHz:  physic.Frequency(cfg.MotorHz) * physic.Hertz,
		settle:   cfg.Settle,
		sleep:    time.Sleep,
		aFwd:     aFwd,
		aBack:    aBack,
		bFwd:     bFwd,
		bBack:    bBack,
		standby:  standby,
		servos:   servos,
	}
}

// duty converts a fraction in [0, 1] to a periph duty cycle.
func duty(fraction float64) gpio.Duty {
	return gpio.Duty(clamp(fraction, 0, 1) * float64(gpio.DutyMax))
}

// DriveMotors applies the safety cap, then sets direction and magnitude.
func (d *GPIODriver) DriveMotors(speedA, speedB float64) {
	d.driveChannel("A", d.aFwd, d.aBack, speedA)
	d.driveChannel("B", d.bFwd, d.bBack, speedB)
}

func (d *GPIODriver) driveChannel(name string, fwd, back outputPin, speed float64) {
	speed = clamp(speed, -d.maxSpeed, d.maxSpeed)

	var err error
	switch {
	case speed > 0:
		err = errors.Join(back.Out(gpio.Low), fwd.PWM(duty(speed), d.motorHz))
	case speed < 0:
		err = errors.Join(fwd.Out(gpio.Low), back.PWM(duty(-speed), d.motorHz))
	default:
		err = errors.Join(fwd.Out(gpio.Low), back.Out(gpio.Low))
	}
	if err != nil {
		d.log.Warn("motor write failed", "channel", name, "speed", speed, "error", err)
	}
}

// StopMotors pulls every motor input low.
func (d *GPIODriver) StopMotors() {
	d.driveChannel("A", d.aFwd, d.aBack, 0)
	d.driveChannel("B", d.bFwd, d.bBack, 0)
}

// SetServoAngles drives each servo for the settle interval, then releases it
// to prevent jitter between commands.
func (d *GPIODriver) SetServoAngles(angle1, angle2 float64) {
	if !d.HasServos() {
		return
	}
	for i, angle := range [2]float64{angle1, angle2} {
		pin := d.servos[i]
		pct := ServoDutyPercent(angle)
		if err := pin.PWM(duty(pct/100), ServoHz); err != nil {
			d.log.Warn("servo write failed", "pin", pin.String(), "angle", angle, "error", err)
			continue
		}
		d.sleep(d.settle)
		if err := pin.Out(gpio.Low); err != nil {
			d.log.Warn("servo release failed", "pin", pin.String(), "error", err)
		}
	}
}

// DetachServos stops the PWM signal on both servos.
func (d *GPIODriver) DetachServos() {
	if !d.HasServos() {
		return
	}
	for _, pin := range d.servos {
		if err := pin.Out(gpio.Low); err != nil {
			d.log.Warn("servo detach failed", "pin", pin.String(), "error", err)
		}
	}
}

// Mode reports ModeLive.
func (d *GPIODriver) Mode() Mode { return ModeLive }

// HasServos reports whether servo pins were claimed.
func (d *GPIODriver) HasServos() bool {
	return d.servos[0] != nil && d.servos[1] != nil
}

// Close stops the motors, detaches the servos, disables the TB6612 and
// halts every pin. All steps run; errors are joined.
func (d *GPIODriver) Close() error {
	d.StopMotors()
	d.DetachServos()

	var errs []error
	if d.standby != nil {
		if err := d.standby.Out(gpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("disable standby: %w", err))
		}
	}
	pins := []outputPin{d.aFwd, d.aBack, d.bFwd, d.bBack, d.standby, d.servos[0], d.servos[1]}
	for _, p := range pins {
		if p == nil {
			continue
		}
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
