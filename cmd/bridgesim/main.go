// Bridgesim is a local stand-in for the real-time transport bridge. It
// accepts one coordinator link per websocket connection and replays the
// scripted user and agent utterances as transport frames.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":7880", "listen address")
	step := flag.Duration("step", 400*time.Millisecond, "delay between replayed frames")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("Upgrade failed")
			return
		}
		serve(r.Context(), conn, *step)
	})

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", *addr).Msg("Bridge simulator listening on /bridge")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Bridge simulator failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// serve runs one link: wait for the join frame, then replay until the
// coordinator closes the connection.
func serve(parent context.Context, conn *websocket.Conn, step time.Duration) {
	defer conn.Close()

	var join transport.Frame
	if err := conn.ReadJSON(&join); err != nil || join.Type != transport.FrameJoin {
		log.Warn().Err(err).Str("type", join.Type).Msg("Expected join frame")
		return
	}
	log.Info().Str("url", join.URL).Msg("Coordinator joined")

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	defer cancel()

	mic := newMicSwitch()
	go func() {
		defer cancel()
		for {
			var f transport.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Type == transport.FrameMicrophone && f.Enabled != nil {
				mic.set(*f.Enabled)
				log.Info().Bool("enabled", *f.Enabled).Msg("Microphone toggled")
			}
		}
	}()

	emit := func(f transport.Frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(f)
	}
	if err := replay(ctx, emit, mic, step); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("Replay stopped")
	}
	log.Info().Msg("Coordinator left")
}
