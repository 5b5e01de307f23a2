package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vibration_computer/internal/config"
)

// Env is a single environmental measurement from the BMP sensor.
type Env struct {
	Temperature float64 `json:"temp_c"`       // °C
	Pressure    float64 `json:"pressure_hpa"` // hPa
}

var (
	bmpDev     *bmxx80.Dev
	bmpOnce    sync.Once
	bmpInitErr error
)

// initBMP initializes the BMP sensor once. Missing hardware is reported,
// not fatal; exposure metrics work without the temperature channel.
func initBMP() {
	bmpOnce.Do(func() {
		cfg := config.Get()

		if cfg.EnvSPIDevice == "" {
			bmpInitErr = fmt.Errorf("env: no ENV_SPI_DEVICE configured")
			return
		}

		if _, err := host.Init(); err != nil {
			bmpInitErr = fmt.Errorf("env: periph host init: %w", err)
			return
		}

		bus, err := spireg.Open(cfg.EnvSPIDevice)
		if err != nil {
			bmpInitErr = fmt.Errorf("env: BMP SPI open: %w", err)
			return
		}

		bmpDev, err = bmxx80.NewSPI(bus, &bmxx80.DefaultOpts)
		if err != nil {
			bmpInitErr = fmt.Errorf("env: BMP init: %w", err)
			return
		}
	})
}

// ReadEnv reads the BMP sensor (temperature + pressure).
func ReadEnv() (Env, error) {
	initBMP()
	if bmpInitErr != nil {
		return Env{}, bmpInitErr
	}

	var e physic.Env
	if err := bmpDev.Sense(&e); err != nil {
		return Env{}, fmt.Errorf("env: BMP sense: %w", err)
	}

	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return Env{
		Temperature: e.Temperature.Celsius(),
		Pressure:    pressurePa / 100.0, // 1 hPa = 100 Pa
	}, nil
}
