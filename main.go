package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/home_hub/hub"
	. "github.com/elijahnyp/home_hub/util"
	"github.com/spf13/cobra"
)

const ( // ids of the built-in applications
	bridgeAppID = 100
	wsAppID     = 101
)

var (
	configFile string
	logLevel   string
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

func Execute() error {
	root := &cobra.Command{
		Use:          "home_hub",
		Short:        "Home automation hub routing events between devices and apps",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			LogInit(logLevel)
			SetupConfig(configFile, cmd.Flags())
			LogInit(Config.GetString("log_level"))
		},
		RunE: serve,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default searches for home_hub.{yaml,json,toml})")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")

	root.AddCommand(serveCmd(), demoCmd(), sampleConfigCmd())
	return root.Execute()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the hub with its MQTT, websocket and HTTP transports",
		RunE:  serve,
	}
}

func demoCmd() *cobra.Command {
	var pause time.Duration
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play a scripted session against the default home",
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, err := NewDemo(Logger, pause)
			if err != nil {
				return err
			}
			if err := demo.Run(cmd.Context()); err != nil {
				return err
			}
			return demo.Report(cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&pause, "pause", time.Second, "delay between scripted steps")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if Config.GetBool("embedded_broker.enabled") {
		broker := NewBroker(Config.GetString("embedded_broker.address"))
		if err := broker.Start(); err != nil {
			return fmt.Errorf("starting embedded broker: %w", err)
		}
		defer func() { _ = broker.Close() }() //nolint:errcheck // shutdown
	}

	ws := NewHub(wsAppID)
	go ws.Run()
	hubLogger := Logger.With().Str("component", "hub").Logger()
	coord := hub.New(
		hub.WithLogger(hubLogger),
		hub.WithObserver(hub.MultiObserver{hub.LogObserver{Logger: hubLogger}, wsAlerts{ws: ws}}),
	)

	var model Model
	if err := model.BuildModel(); err != nil {
		return err
	}
	home, err := model.Populate(coord, Logger)
	if err != nil {
		return err
	}

	if err := coord.LinkApplication(ws); err != nil {
		return err
	}

	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })
	if Config.GetBool("mqtt_enabled") {
		bridge := NewMQTTBridge(bridgeAppID, MQTTClient)
		if err := coord.LinkApplication(bridge); err != nil {
			return err
		}
		bridge.Subscribe()
		RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
			advertise(coord, client)
		})
		RegisterNewConfigListener(connectMQTT)
	}
	OnNewConfig()

	monitor := NewMonitorServer()
	(&API{coord: coord, ws: ws}).Routes(monitor)
	if err := monitor.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
	RegisterNewConfigListener(func() { monitor.Restart() })

	sim := NewSimulator(home)
	if sim.Enabled {
		sim.Start(ctx)
	}

	Logger.Info().Msg("ready")
	go OnlinePinger(ctx)
	go HAAdvertiser(ctx, coord)
	<-ctx.Done()

	Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := monitor.Shutdown(shutdownCtx); err != nil {
		Logger.Warn().Msgf("Error shutting down monitor server: %v", err)
	}
	if client := MQTTClient(); client != nil && client.IsConnected() {
		client.Disconnect(1000)
	}
	return nil
}

func connectMQTT() {
	if err := MqttInit(); err != nil {
		Logger.Error().Msgf("mqtt unavailable: %v", err)
	}
}

func advertise(coord *hub.Coordinator, client MQTT.Client) {
	if err := AdvertiseHA(coord.Devices(), client); err != nil {
		Logger.Error().Msgf("Error advertising to Home Assistant: %v", err)
	}
}

// online pinger
func OnlinePinger(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		if client := MQTTClient(); client != nil && client.IsConnected() {
			if token := client.Publish(OnlineTopic(), 0, false, "online"); token.Wait() && token.Error() != nil {
				Logger.Error().Msgf("Error publishing online message: %v", token.Error())
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// HAAdvertiser - advertises Home Assistant discovery messages every 5 minutes
func HAAdvertiser(ctx context.Context, coord *hub.Coordinator) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if client := MQTTClient(); client != nil && client.IsConnected() {
				Logger.Debug().Msg("Advertising Home Assistant discovery messages")
				advertise(coord, client)
			}
		}
	}
}
