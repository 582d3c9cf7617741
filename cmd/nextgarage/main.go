// Command nextgarage runs the single-lane garage controller on a
// Raspberry Pi: barrier state machine, parking spot occupancy, gas
// watchdog, ambient light, MQTT, and an HTTP status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bove903/NextGarage-IoT-System/internal/buzzer"
	"github.com/bove903/NextGarage-IoT-System/internal/config"
	"github.com/bove903/NextGarage-IoT-System/internal/controller"
	"github.com/bove903/NextGarage-IoT-System/internal/gas"
	"github.com/bove903/NextGarage-IoT-System/internal/gate"
	"github.com/bove903/NextGarage-IoT-System/internal/hal"
	"github.com/bove903/NextGarage-IoT-System/internal/mqtt"
	"github.com/bove903/NextGarage-IoT-System/internal/occupancy"
	"github.com/bove903/NextGarage-IoT-System/internal/status"
	"github.com/bove903/NextGarage-IoT-System/internal/web"
)

func main() {
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	configPath := flag.String("config", "/etc/nextgarage/config.json", "Config file path")

	flag.Parse()

	err := run(*broker, *httpAddr, *configPath)
	if errors.Is(err, controller.ErrResetRequested) {
		// Non-zero so systemd restarts the unit with a fresh process.
		log.Printf("exiting for restart: %v", err)
		os.Exit(3)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(broker, httpAddr, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Digital lines.
	chip, err := hal.OpenChip()
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	entrance, err := chip.NewIRSensor(cfg.Pins.IREntrance, "entrance")
	if err != nil {
		return err
	}
	exitSensor, err := chip.NewIRSensor(cfg.Pins.IRExit, "exit")
	if err != nil {
		return err
	}
	gateButton, err := chip.NewPushButton(cfg.Pins.GateButton, "gate button")
	if err != nil {
		return err
	}
	masterButton, err := chip.NewPushButton(cfg.Pins.MasterButton, "master button")
	if err != nil {
		return err
	}
	traffic, err := chip.NewTrafficLight(cfg.Pins.TrafficRed, cfg.Pins.TrafficYellow, cfg.Pins.TrafficGreen)
	if err != nil {
		return err
	}
	spotLEDs, err := chip.NewSpotIndicator(cfg.Pins.SpotRed, cfg.Pins.SpotGreen)
	if err != nil {
		return err
	}
	alarmLED, err := chip.NewOutputPin(cfg.Pins.AlarmLED)
	if err != nil {
		return err
	}
	ultrasonic, err := chip.NewHCSR04(cfg.Pins.UltrasonicTrig, cfg.Pins.UltrasonicEcho)
	if err != nil {
		return err
	}

	// PWM and bus devices.
	servo, err := hal.NewServoPWM(cfg.Pins.Servo)
	if err != nil {
		return fmt.Errorf("init servo: %w", err)
	}
	buzzerOut, err := hal.NewBuzzerPWM(cfg.Pins.Buzzer)
	if err != nil {
		return fmt.Errorf("init buzzer: %w", err)
	}
	lamp, err := hal.NewLampPWM(cfg.Pins.Lamp)
	if err != nil {
		return fmt.Errorf("init lamp: %w", err)
	}
	mq2, err := hal.NewMQ2(cfg.Pins.MQ2SPIPort, cfg.Pins.MQ2Channel)
	if err != nil {
		return fmt.Errorf("init gas sensor: %w", err)
	}
	defer mq2.Close()
	log.Printf("gas sensor clean-air baseline: %d", mq2.Baseline())

	// The lux sensor is optional kit; without it the lamp just follows
	// the manual modes.
	var lux hal.LuxSensor
	if t, err := hal.NewTSL2561(cfg.Pins.I2CBus, cfg.Pins.TSL2561Addr); err != nil {
		log.Printf("lux sensor unavailable: %v", err)
	} else {
		lux = t
		defer t.Close()
	}

	buzz := buzzer.New(buzzerOut)
	defer buzz.Stop()

	filter := occupancy.NewFilter(ultrasonic, cfg)
	spot := occupancy.NewDetector(cfg, filter, buzz, spotLEDs)
	watchdog := gas.NewWatchdog(cfg, mq2, buzz, alarmLED)

	gateCtl := gate.New(gate.Config{
		OpenAngle:     cfg.OpenAngleDeg,
		ClosedAngle:   cfg.ClosedAngleDeg,
		Step:          cfg.StepDeg,
		StepInterval:  cfg.StepInterval(),
		BlinkInterval: cfg.BlinkInterval(),
		SafeDelay:     cfg.SafeDelay(),
		PulseMin:      cfg.PulseMin,
		PulseSpan:     cfg.PulseSpan,
	}, entrance, exitSensor, gateButton, traffic, servo, spot)

	var (
		publisher  mqtt.Publisher
		connStatus mqtt.ConnectionStatus
		commands   <-chan mqtt.Command
	)
	if broker != "" {
		client, err := mqtt.NewRealClient(broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		publisher = client
		connStatus = client
		commands = client.Commands()
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:     broker,
		HTTPAddr:   httpAddr,
		ConfigPath: configPath,
	})

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	loop := controller.New(controller.Deps{
		Config:      cfg,
		ConfigPath:  configPath,
		Gate:        gateCtl,
		Spot:        spot,
		Gas:         watchdog,
		Buzzer:      buzz,
		Lux:         lux,
		Lamp:        lamp,
		ResetButton: masterButton,
		Commands:    commands,
		Publisher:   publisher,
		ConnStatus:  connStatus,
		Tracker:     tracker,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("started: broker=%s http=%s config=%s", broker, httpAddr, configPath)
	return loop.Run(ctx)
}
