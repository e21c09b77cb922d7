// Package imu defines the IMU capability set the balance core depends on
// (spec.md §6.2): filtered pitch/roll/yaw in degrees, raw gyro rate, and a
// startup-done flag. The hardware-backed implementation lives in
// internal/imu/periphimu; Mock is used by tests and the bench tool.
package imu

// Sample is a single tick's IMU reading. Pitch/Roll/Yaw are already
// filtered (fused) degrees, as produced by the out-of-scope IMU driver
// (spec.md §1); Gyro is raw deg/s.
type Sample struct {
	Pitch, Roll, Yaw float64
	Gyro             [3]float64
}

// IMU is the capability set spec.md §6.2 requires of the IMU driver.
type IMU interface {
	Read() (Sample, error)
	StartupDone() bool
}
