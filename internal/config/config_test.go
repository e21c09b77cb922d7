package config

import "testing"

func TestSetValueParsesHardwareAndTelemetryKeys(t *testing.T) {
	c := &Config{}
	keys := map[string]string{
		"HERTZ":                  "1000",
		"MQTT_BROKER":            "tcp://localhost:1883",
		"MQTT_CLIENT_ID_BOARD":   "board-01",
		"MQTT_CLIENT_ID_CONSOLE": "board-01-console",
		"TOPIC_TELEMETRY":        "board/01/telemetry",
		"TOPIC_EVENTS":           "board/01/events",
		"DASHBOARD_LISTEN_ADDR":  ":8090",
		"DISPLAY_I2C_ADDR":       "0x3C",
		"MOTOR_SERIAL_PORT":      "/dev/ttyUSB0",
		"MOTOR_BAUD_RATE":        "115200",
		"IMU_SPI_DEVICE":         "/dev/spidev0.0",
		"IMU_CS_PIN":             "GPIO8",
		"PAD1_PIN":               "GPIO17",
		"PAD2_PIN":               "GPIO27",
		"INVERT_DIRECTION":       "true",
	}
	for k, v := range keys {
		if err := c.setValue(k, v); err != nil {
			t.Fatalf("setValue(%q, %q): %v", k, v, err)
		}
	}

	if c.Raw.Hertz != 1000 {
		t.Errorf("Hertz = %d, want 1000", c.Raw.Hertz)
	}
	if c.Raw.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("MQTTBroker = %q", c.Raw.MQTTBroker)
	}
	if c.Raw.DisplayI2CAddr != 0x3C {
		t.Errorf("DisplayI2CAddr = %#x, want 0x3C", c.Raw.DisplayI2CAddr)
	}
	if c.Raw.MotorBaudRate != 115200 {
		t.Errorf("MotorBaudRate = %d, want 115200", c.Raw.MotorBaudRate)
	}
	if !c.Raw.InvertDirection {
		t.Errorf("InvertDirection = false, want true")
	}
}

func TestSetValueRejectsUnknownKey(t *testing.T) {
	c := &Config{}
	if err := c.setValue("NOT_A_REAL_KEY", "1"); err == nil {
		t.Fatalf("expected an error for an unknown config key")
	}
}
