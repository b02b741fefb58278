package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/warfront/client/internal/authority"
	"github.com/freeeve/warfront/client/internal/config"
	"github.com/freeeve/warfront/client/internal/logger"
	"github.com/freeeve/warfront/client/internal/session"
)

func main() {
	cfg := config.Load()
	url := flag.String("url", cfg.AuthorityURL, "authority base URL")
	email := flag.String("email", cfg.Email, "player email")
	password := flag.String("password", cfg.Password, "player password")
	gameID := flag.String("game", cfg.GameID, "game id to join")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger.Init()
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *gameID == "" {
		log.Fatal().Msg("No game id given (flag -game or GAME_ID)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithSessionID(ctx, logger.NewSessionID())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	client := authority.NewClient(*url)
	if err := client.Login(ctx, *email, *password); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	sess := session.New(*gameID, client, session.NewTimerScheduler(nil), logger.ForSession(ctx))
	if err := sess.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Game load failed")
	}
	log.Info().
		Str("phase", string(sess.Phase())).
		Str("faction", sess.Faction()).
		Bool("canAct", sess.CanAct()).
		Msg("Game loaded")

	feed, err := client.ConnectFeed()
	if err != nil {
		log.Fatal().Err(err).Msg("Feed connect failed")
	}
	defer feed.Close()
	if err := feed.Subscribe(*gameID); err != nil {
		log.Fatal().Err(err).Msg("Feed subscribe failed")
	}

	printed := 0
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Client stopped")
			return
		case ev, ok := <-feed.Events():
			if !ok {
				log.Warn().Msg("Feed closed, reloading once and exiting")
				return
			}
			if ev.GameID != *gameID {
				continue
			}
			if !client.TokenValid(time.Now()) {
				if err := client.Login(ctx, *email, *password); err != nil {
					log.Error().Err(err).Msg("Re-login failed")
					continue
				}
			}
			// A battle mid-reveal owns its own snapshot timing; refresh
			// everything else eagerly.
			if sess.Combat().Active() {
				continue
			}
			if err := sess.Load(ctx); err != nil {
				log.Error().Err(err).Msg("Refresh failed")
				continue
			}
			entries := sess.Events().Entries()
			for ; printed < len(entries); printed++ {
				log.Info().Str("kind", entries[printed].Kind).Msg(entries[printed].Message)
			}
			if sess.Snapshot().Winner != "" {
				log.Info().Str("winner", sess.Snapshot().Winner).Msg("Game over")
				return
			}
		}
	}
}
