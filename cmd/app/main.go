package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatterbox-studio/internal/bootstrap"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	app, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap app")
	}

	if err := app.Run(); err != nil {
		log.Fatal().Err(err).Msg("run app")
	}
}
