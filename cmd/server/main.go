// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/mkarman/tilerush/internal/auth"
	"github.com/mkarman/tilerush/internal/cache"
	"github.com/mkarman/tilerush/internal/database"
	"github.com/mkarman/tilerush/internal/engine"
	"github.com/mkarman/tilerush/internal/middleware"
	"github.com/mkarman/tilerush/internal/scoring"
	"github.com/mkarman/tilerush/internal/transport"
)

const reconnectInterval = 5 * time.Second

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	auth.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Storage collaborators come up in the background; the rooms run fine in
	// memory while they retry.
	go database.ConnectLoop(ctx, logger, reconnectInterval)
	go cache.ConnectLoop(ctx, logger, reconnectInterval)

	maxRooms := 0
	if v := os.Getenv("TILERUSH_MAX_ROOMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxRooms = n
		}
	}

	eng := engine.New(
		engine.Config{
			RequiredClientVersion: os.Getenv("TILERUSH_CLIENT_VERSION"),
			MaxRooms:              maxRooms,
		},
		engine.NewClock(),
		logger,
		scoring.Score,
		scoring.TimeBonus,
		engine.Hooks{
			CreateSession: database.CreateSession,
			RecordMatch: func(ctx context.Context, sessionID uuid.UUID, snap engine.RoomSnapshot, ranking []engine.RankEntry) error {
				if err := cache.PublishMatch(ctx, cache.MatchRecord{
					SessionID:  sessionID,
					Mode:       string(snap.Mode),
					RoomID:     snap.ID,
					MatchNo:    snap.MatchCount,
					TileLayout: snap.TileLayout,
					Ranking:    ranking,
					Timestamp:  time.Now().Unix(),
				}); err != nil {
					logger.Warnf("historian publish failed: %v", err)
				}
				return database.RecordMatch(ctx, sessionID, snap, ranking)
			},
		},
	)

	srv := transport.NewServer(eng, logger)

	mux := http.NewServeMux()
	mux.Handle("/play/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		transport.PlayHandler(logger, srv),
	)))
	mux.Handle("/rooms", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.RoomsHandler)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("running on %s", addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case <-ctx.Done():
		logger.Info("terminating")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown error: %v", err)
		}
	}
	if database.DB != nil {
		database.DB.Close()
	}
}
