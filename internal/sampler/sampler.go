// Package sampler implements the inputs sampler (spec.md §4.1, component
// C2): it reads the IMU, motor and pad ports and derives the per-tick
// signals (yaw rate, roll aggregate, acceleration window, switch state)
// every downstream component consumes.
package sampler

import (
	"fmt"

	"github.com/relabs-tech/balance-core/internal/imu"
	"github.com/relabs-tech/balance-core/internal/motor"
	"github.com/relabs-tech/balance-core/internal/pad"
)

const accelWindow = 40

// Sample is one tick's derived input state (spec.md §4.1).
type Sample struct {
	Pitch, Roll, Yaw float64
	Gyro             [3]float64

	ERPM         float64
	AbsERPM      float64
	DutyNow      float64
	MotorCurrent float64
	FetTemp      float64
	Voltage      float64

	YawChange      float64
	YawAggregate   float64
	RollAggregate  float64
	Acceleration   float64

	Pad1Volts, Pad2Volts float64 // raw ADC volts, consumed by the lock gesture and the debug dashboard

	Switch      pad.SwitchState
	SwitchAlert bool // forced audible alert: OFF while riding fast
}

// Sampler owns the per-tick derived state (spec.md §3 runtime state:
// yaw_change, yaw_aggregate, roll_aggregate, accelhist/accelavg, switch
// debouncing inputs).
type Sampler struct {
	imuSrc   imu.IMU
	motorSrc motor.Controller
	padSrc   pad.Reader

	invertDirection bool
	padThreshold1   float64
	padThreshold2   float64
	faultADCHalfERPM float64

	lastYaw       float64
	haveLastYaw   bool
	yawChange     float64
	lastRawChange float64
	yawAggregate  float64

	rollAggregate float64

	lastSmoothERPM float64
	haveLastSmooth bool
	accelHist      [accelWindow]float64
	accelIdx       int
	accelFilled    int
	accelSum       float64
}

func New(imuSrc imu.IMU, motorSrc motor.Controller, padSrc pad.Reader, invertDirection bool, padThreshold1, padThreshold2, faultADCHalfERPM float64) *Sampler {
	return &Sampler{
		imuSrc:           imuSrc,
		motorSrc:         motorSrc,
		padSrc:           padSrc,
		invertDirection:  invertDirection,
		padThreshold1:    padThreshold1,
		padThreshold2:    padThreshold2,
		faultADCHalfERPM: faultADCHalfERPM,
	}
}

// Reset zeroes every accumulated signal (yaw change/aggregate, roll
// aggregate, the acceleration ring buffer), mirroring reset_vars()'s
// clearing of accelhist[]/accelidx/accelavg/last_yaw_angle/
// last_yaw_change/yaw_aggregate/roll_aggregate on every STARTUP->RUNNING
// or fault->RUNNING transition (app_balance.c:619-693). Call it from the
// same onReset path that reinitializes the director/PID/shapers.
func (s *Sampler) Reset() {
	s.lastYaw = 0
	s.haveLastYaw = false
	s.yawChange = 0
	s.lastRawChange = 0
	s.yawAggregate = 0

	s.rollAggregate = 0

	s.lastSmoothERPM = 0
	s.haveLastSmooth = false
	s.accelHist = [accelWindow]float64{}
	s.accelIdx = 0
	s.accelFilled = 0
	s.accelSum = 0
}

// Sample reads all inputs and derives this tick's Sample.
func (s *Sampler) Sample() (Sample, error) {
	imuSample, err := s.imuSrc.Read()
	if err != nil {
		return Sample{}, fmt.Errorf("sampler: imu read: %w", err)
	}
	telem, err := s.motorSrc.Telemetry()
	if err != nil {
		return Sample{}, fmt.Errorf("sampler: motor telemetry: %w", err)
	}
	pad1, pad2, err := s.padSrc.ReadVolts()
	if err != nil {
		return Sample{}, fmt.Errorf("sampler: pad read: %w", err)
	}

	out := Sample{
		Pitch:        imuSample.Pitch,
		Roll:         imuSample.Roll,
		Yaw:          imuSample.Yaw,
		Gyro:         imuSample.Gyro,
		ERPM:         telem.ERPM,
		AbsERPM:      abs(telem.ERPM),
		DutyNow:      telem.DutyNow,
		MotorCurrent: telem.TotalCurrentDirectional,
		FetTemp:      telem.FetTempFiltered,
		Voltage:      telem.BatteryVoltage,
	}

	s.sampleYaw(imuSample.Yaw, &out)
	s.sampleRoll(imuSample.Roll)
	out.RollAggregate = s.rollAggregate

	s.sampleAcceleration(telem.SmoothERPM, &out)

	out.Pad1Volts = pad1
	out.Pad2Volts = pad2

	sw := pad.Decode(pad1, pad2, s.padThreshold1, s.padThreshold2)
	out.Switch = sw
	out.SwitchAlert = sw == pad.Off && out.AbsERPM > s.faultADCHalfERPM

	return out, nil
}

func (s *Sampler) sampleYaw(yaw float64, out *Sample) {
	if !s.haveLastYaw {
		s.lastYaw = yaw
		s.haveLastYaw = true
	}

	rawChange := yaw - s.lastYaw
	s.lastYaw = yaw

	unchanged := false
	if rawChange == 0 || abs(rawChange) > 100 {
		rawChange = clamp(s.lastRawChange, -0.10, 0.10)
		unchanged = true
	}
	s.lastRawChange = rawChange

	prevSign := sign(s.yawChange)
	s.yawChange = 0.8*s.yawChange + 0.2*rawChange
	newSign := sign(s.yawChange)

	if newSign != 0 && prevSign != 0 && newSign != prevSign {
		s.yawAggregate = 0
	}
	if abs(s.yawChange) > 0.04 && !unchanged {
		s.yawAggregate += s.yawChange
	}

	out.YawChange = s.yawChange
	out.YawAggregate = s.yawAggregate
}

func (s *Sampler) sampleRoll(rollAngle float64) {
	if abs(rollAngle) > 8 {
		s.rollAggregate += rollAngle
	} else {
		s.rollAggregate = 0
	}
}

func (s *Sampler) sampleAcceleration(smoothERPM float64, out *Sample) {
	smooth := smoothERPM
	if s.invertDirection {
		smooth = -smooth
	}
	if !s.haveLastSmooth {
		s.lastSmoothERPM = smooth
		s.haveLastSmooth = true
	}

	accRaw := smooth - s.lastSmoothERPM
	s.lastSmoothERPM = smooth

	if s.accelFilled == accelWindow {
		s.accelSum -= s.accelHist[s.accelIdx]
	} else {
		s.accelFilled++
	}
	s.accelHist[s.accelIdx] = accRaw
	s.accelSum += accRaw
	s.accelIdx = (s.accelIdx + 1) % accelWindow

	out.Acceleration = s.accelSum / float64(s.accelFilled)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
