// Package imu's periph-backed adapter, adapted from
// _examples/relabs-tech-inertial_computer/internal/orientation/imu_source.go
// and internal/sensors/imu_source.go: same periph.io host/SPI/chip-select
// bring-up sequence, generalized from a roll/pitch-only tilt estimate into
// the full pitch/roll/yaw + gyro + startup-done contract spec.md §6.2
// requires.
package imu

import (
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// PeriphMPU9250 drives an MPU9250-class IMU over SPI, complementary-filters
// the accelerometer tilt estimate with integrated gyro rate, and reports
// StartupDone once bias estimation settles.
type PeriphMPU9250 struct {
	mu  sync.Mutex
	dev *mpu9250.MPU9250

	gyroBiasX, gyroBiasY, gyroBiasZ float64
	calibrated                      bool

	lastPitch, lastRoll, lastYaw float64
	lastSample                  time.Time

	// complementary filter weight toward the gyro-integrated estimate.
	gyroWeight float64
}

// NewPeriphMPU9250 opens the SPI device spiDev with chip-select csPin and
// returns a ready IMU once calibration completes.
func NewPeriphMPU9250(spiDev, csPin string) (*PeriphMPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("imu: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("imu: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("imu: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("imu: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("imu: init: %w", err)
	}

	m := &PeriphMPU9250{dev: dev, gyroWeight: 0.98}

	if err := dev.Calibrate(); err != nil {
		return nil, fmt.Errorf("imu: calibrate: %w", err)
	}
	m.calibrated = true

	return m, nil
}

// Read returns one complementary-filtered pitch/roll/yaw sample, the same
// tilt formula as orientation.ComputePoseFromAccel, generalized with a
// gyro-rate integration term so yaw is no longer pinned to zero.
func (m *PeriphMPU9250) Read() (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ax, err := m.dev.GetAccelerationX()
	if err != nil {
		return Sample{}, fmt.Errorf("imu: accel X: %w", err)
	}
	ay, err := m.dev.GetAccelerationY()
	if err != nil {
		return Sample{}, fmt.Errorf("imu: accel Y: %w", err)
	}
	az, err := m.dev.GetAccelerationZ()
	if err != nil {
		return Sample{}, fmt.Errorf("imu: accel Z: %w", err)
	}
	gx, err := m.dev.GetRotationX()
	if err != nil {
		return Sample{}, fmt.Errorf("imu: gyro X: %w", err)
	}
	gy, err := m.dev.GetRotationY()
	if err != nil {
		return Sample{}, fmt.Errorf("imu: gyro Y: %w", err)
	}
	gz, err := m.dev.GetRotationZ()
	if err != nil {
		return Sample{}, fmt.Errorf("imu: gyro Z: %w", err)
	}

	fx, fy, fz := float64(ax), float64(ay), float64(az)
	rollRad := math.Atan2(fy, fz)
	pitchRad := math.Atan2(-fx, math.Sqrt(fy*fy+fz*fz))
	accelPitch := pitchRad * 180.0 / math.Pi
	accelRoll := rollRad * 180.0 / math.Pi

	now := time.Now()
	dt := 0.01
	if !m.lastSample.IsZero() {
		dt = now.Sub(m.lastSample).Seconds()
	}
	m.lastSample = now

	gxDeg := float64(gx) - m.gyroBiasX
	gyDeg := float64(gy) - m.gyroBiasY
	gzDeg := float64(gz) - m.gyroBiasZ

	gyroPitch := m.lastPitch + gyDeg*dt
	gyroRoll := m.lastRoll + gxDeg*dt
	gyroYaw := m.lastYaw + gzDeg*dt

	pitch := m.gyroWeight*gyroPitch + (1-m.gyroWeight)*accelPitch
	roll := m.gyroWeight*gyroRoll + (1-m.gyroWeight)*accelRoll
	yaw := gyroYaw // no magnetometer fusion; out of scope per spec.md §1

	m.lastPitch, m.lastRoll, m.lastYaw = pitch, roll, yaw

	return Sample{
		Pitch: pitch,
		Roll:  roll,
		Yaw:   yaw,
		Gyro:  [3]float64{gxDeg, gyDeg, gzDeg},
	}, nil
}

func (m *PeriphMPU9250) StartupDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calibrated
}
