package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/internal/core/services"
	signalws "github.com/dhruvshibhare/droulette/internal/infrastructure/signal"
	webrtcinfra "github.com/dhruvshibhare/droulette/internal/infrastructure/webrtc"
	"github.com/dhruvshibhare/droulette/pkg/config"
	"github.com/dhruvshibhare/droulette/pkg/logger"
)

func main() {
	cfg := config.LoadFirst(
		"configs/config.yaml",
		"/etc/droulette/config.yaml",
		"config.yaml",
	)

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := logger.Named(zapLogger, "client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local media: synthetic tracks, a headless client has no camera
	media := webrtcinfra.NewSampleSource(webrtcinfra.SourceConfig{
		Audio:     cfg.Media.Audio.Enabled,
		Video:     cfg.Media.Video.Enabled,
		Width:     cfg.Media.Video.Width,
		Height:    cfg.Media.Video.Height,
		FrameRate: cfg.Media.Video.FrameRate,
	}, log)

	// Signaling
	channel, err := signalws.Dial(ctx, cfg.Client.ServerURL, signalws.ClientOptions{
		DialTimeout:  cfg.Client.DialTimeout,
		DialAttempts: cfg.Client.DialAttempts,
	}, log)
	if err != nil {
		log.Fatalw("failed to reach signaling server", "error", err)
	}
	defer channel.Close()

	// Peer connections
	linkCfg := webrtcinfra.DefaultLinkConfig()
	if len(cfg.WebRTC.ICEServers) > 0 {
		linkCfg.ICEServers = nil
		for _, s := range cfg.WebRTC.ICEServers {
			linkCfg.ICEServers = append(linkCfg.ICEServers, webrtc.ICEServer{
				URLs:       s.URLs,
				Username:   s.Username,
				Credential: s.Credential,
			})
		}
	}
	newLink := webrtcinfra.NewPionLinkFactory(linkCfg, log)
	sink := webrtcinfra.NewTrackSink(log)

	engineFactory := func(onCandidate func(webrtc.ICECandidateInit)) ports.NegotiationEngine {
		return webrtcinfra.NewEngine(newLink, media.Tracks(), onCandidate, sink.HandleTrack, log)
	}

	controller := services.NewSessionController(channel, media, engineFactory, log)

	runErr := make(chan error, 1)
	go func() { runErr <- controller.Run(ctx) }()

	if err := controller.Start(ctx); err != nil {
		log.Fatalw("failed to start chatting", "error", err)
	}
	fmt.Println("Looking for a stranger. Type to chat, /skip for the next one, /quit to leave.")

	go readCommands(controller, media, cancel)
	go printIncoming(ctx, controller)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
		// stop while the loop is still draining actions, then let Run exit
		controller.Stop()
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			log.Errorw("session loop failed", "error", err)
		}
	}

	log.Info("client stopped")
}

func readCommands(controller *services.SessionController, media *webrtcinfra.SampleSource, quit context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit":
			quit()
			return
		case "/skip":
			controller.Skip()
		case "/mute":
			media.SetAudioEnabled(false)
		case "/unmute":
			media.SetAudioEnabled(true)
		case "/video":
			media.SetVideoEnabled(!media.VideoEnabled())
		default:
			controller.SendMessage(line)
		}
	}
}

// printIncoming tails the chat thread to stdout.
func printIncoming(ctx context.Context, controller *services.SessionController) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			messages := controller.Messages()
			if seen > len(messages) {
				// thread was cleared by a skip or stop
				seen = 0
			}
			for ; seen < len(messages); seen++ {
				m := messages[seen]
				fmt.Printf("[%s] %s\n", m.Sender, m.Text)
			}
		}
	}
}
