package main

import (
	"embed"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatterbox-studio/internal/bootstrap"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if os.Getenv("CHATTERBOX_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	app, err := bootstrap.NewWithAssets(appAssets)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap app")
	}

	if err := app.Run(); err != nil {
		log.Fatal().Err(err).Msg("run app")
	}
}
