package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drowsisense/internal/config"
	"drowsisense/internal/detector"
	"drowsisense/internal/monitor"
	"drowsisense/internal/notify"
	"drowsisense/internal/store"
	"drowsisense/internal/telegram"
	"drowsisense/internal/vision"
	"drowsisense/internal/ws"
)

// hubDisplay forwards annotated frames to WebSocket viewers. Broadcasting is
// skipped entirely when no viewer is connected.
type hubDisplay struct {
	hub *ws.AlertHub
}

func (d *hubDisplay) ShowFrame(driverID string, frame *vision.Frame) {
	if !d.hub.HasClients(driverID) {
		return
	}
	msg := ws.NewFrameMessage(driverID, frame.Width, frame.Height,
		base64.StdEncoding.EncodeToString(frame.Data))
	d.hub.BroadcastFrame(driverID, msg)
}

func main() {
	// Define command line flags. Flags override environment configuration.
	var (
		driverF   = flag.String("driver", "", "Driver ID (overrides DRIVER_ID)")
		emailF    = flag.String("email", "", "Driver contact email (overrides DRIVER_EMAIL)")
		nameF     = flag.String("name", "", "Driver first name (overrides DRIVER_NAME)")
		deviceF   = flag.String("device", "", "Video device or URL (overrides CAMERA_DEVICE)")
		cloudF    = flag.Bool("cloud", false, "Force simulated detection backend")
		httpPortF = flag.String("http-port", "", "HTTP port (overrides HTTP_PORT)")
	)
	flag.Parse()

	// Setup logger
	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[drowsisense] ", log.Ltime)
	}

	// Load configuration from environment, then apply flag overrides
	cfg := config.Load()
	if *deviceF != "" {
		cfg.CameraDevice = *deviceF
	}
	if *cloudF {
		cfg.CloudMode = true
	}
	if *httpPortF != "" {
		cfg.HTTPPort = *httpPortF
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %s", err)
	}

	contact := notify.Contact{
		DriverID:  envDefault(*driverF, "DRIVER_ID", "driver-1"),
		FirstName: envDefault(*nameF, "DRIVER_NAME", ""),
		Email:     envDefault(*emailF, "DRIVER_EMAIL", ""),
	}

	// Open the alert store and run migrations
	db, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("failed to open alert store: %s", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		logger.Fatalf("failed to migrate alert store: %s", err)
	}

	// Select the detection backend via the fallback chain
	provider := detector.NewProvider(detector.ProviderConfig{
		CloudMode:        cfg.CloudMode,
		LandmarkEndpoint: cfg.LandmarkEndpoint,
		EARThreshold:     cfg.EARThreshold,
		FacemeshWorker:   cfg.FacemeshWorker,
		SimulatedSeed:    cfg.SimulatedSeed,
	})
	backend, err := provider.Select()
	if err != nil {
		logger.Fatalf("no detection backend available: %s", err)
	}
	defer backend.Close()
	logger.Printf("detection backend: %s", backend.Name())

	// Notification channels
	hub := ws.NewAlertHub()
	audio := notify.NewAudioPlayer(cfg.AudioFile)
	tts := notify.NewEspeakSpeaker()
	// A disabled mailer must stay a nil interface, not a typed nil pointer
	var mailer notify.Mailer
	if m := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}); m != nil {
		mailer = m
	}

	// Operator chat alerts via Telegram, optional
	var messenger notify.Messenger
	tgCfg := telegram.Config{
		BotToken:        cfg.TelegramBotToken,
		ChatID:          cfg.TelegramChatID,
		Enabled:         cfg.TelegramEnabled,
		CooldownSeconds: cfg.TelegramCooldown,
	}
	if err := telegram.ValidateConfig(tgCfg); err != nil {
		logger.Fatalf("invalid telegram configuration: %s", err)
	}
	if tgCfg.Enabled {
		messenger = telegram.NewBot(tgCfg)
		logger.Printf("telegram alerts enabled for chat %s", tgCfg.ChatID)
	}

	dispatcher := notify.NewDispatcher(db, hub, audio, tts, mailer, messenger)

	// Monitoring loop
	loop := monitor.New(backend, dispatcher, &hubDisplay{hub: hub}, nil)

	// Create channel used by both the signal handler and server goroutine to
	// notify the main goroutine when to stop.
	errc := make(chan error)

	// Setup interrupt handler so SIGINT and SIGTERM stop monitoring gracefully
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	// WebSocket server for live alerts and frames
	mux := http.NewServeMux()
	mux.Handle("/ws/alerts/", ws.NewHandler(hub))
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Printf("WebSocket server listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	err = loop.Start(monitor.Config{
		CameraIndex:  cfg.CameraIndex,
		Device:       cfg.CameraDevice,
		EARThreshold: cfg.EARThreshold,
		DrowsyFrames: cfg.DrowsyFrames,
		YawnFrames:   cfg.YawnFrames,
		Cooldown:     cfg.Cooldown,
	}, contact)
	if err != nil {
		logger.Fatalf("failed to start monitoring: %s", err)
	}

	// Wait for a signal or server failure
	logger.Printf("exiting (%v)", <-errc)

	loop.Stop()
	dispatcher.Wait()
	srv.Close()

	logger.Println("exited")
}

// envDefault returns the flag value, then the environment variable, then the
// fallback.
func envDefault(flagVal, envKey, fallback string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}
