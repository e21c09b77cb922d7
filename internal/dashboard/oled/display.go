// Package oled drives a single SSD1306 status display showing the board's
// current ride state, setpoint and motor current, adapted from
// inertial-computer's display.go (its MQTT subscriber and font-drawing
// idiom) but collapsed to one display and one content type.
package oled

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/telemetry"
)

// Run initializes the SSD1306 over I2C, subscribes to the board's telemetry
// topic, and redraws the display at a fixed interval.
func Run() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("oled: failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("oled: failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("oled: failed to initialize display: %w", err)
	}
	log.Printf("oled: display initialized at 0x%02X", cfg.Raw.DisplayI2CAddr)

	if err := showSplash(dev); err != nil {
		log.Printf("oled: error showing splash: %v", err)
	}

	var (
		mu         sync.RWMutex
		lastSample telemetry.Sample
		haveSample bool
	)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Raw.MQTTBroker).
		SetClientID(cfg.Raw.MQTTClientIDBoard + "-oled")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("oled: connected to MQTT broker at %s", cfg.Raw.MQTTBroker)

	token := client.Subscribe(cfg.Raw.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s telemetry.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("oled: telemetry unmarshal error: %v", err)
			return
		}
		mu.Lock()
		lastSample = s
		haveSample = true
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	log.Println("oled: starting update loop")
	for range ticker.C {
		mu.RLock()
		snapshot := lastSample
		have := haveSample
		mu.RUnlock()

		if err := updateStatusDisplay(dev, snapshot, have); err != nil {
			log.Printf("oled: error updating display: %v", err)
		}
	}
	return nil
}

func blank() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}
	return img
}

func updateStatusDisplay(dev *ssd1306.Dev, s telemetry.Sample, have bool) error {
	img := blank()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !have {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("board"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(s.State.String()))

	drawer.Dot = fixed.P(0, 28)
	drawer.DrawBytes([]byte(fmt.Sprintf("pitch  %6.2f", s.Pitch)))

	drawer.Dot = fixed.P(0, 41)
	drawer.DrawBytes([]byte(fmt.Sprintf("setpt  %6.2f", s.Setpoint)))

	drawer.Dot = fixed.P(0, 54)
	drawer.DrawBytes([]byte(fmt.Sprintf("curr   %6.1f", s.Current)))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := blank()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("balance-core"))
	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("starting up..."))
	return dev.Draw(dev.Bounds(), img, image.Point{})
}
