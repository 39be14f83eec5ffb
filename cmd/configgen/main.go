package main

import (
	"flag"

	"github.com/danmuck/syntaxworker/internal/config"
	"github.com/danmuck/syntaxworker/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	output := flag.String("output", "cmd/syntaxworker/config.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "cmd/syntaxworker/config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()
	logging.ConfigureRuntime()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Fatal().Err(err).Msg("configgen validation failed")
		}
		log.Info().Str("path", *input).Msg("configgen validated syntaxworker config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("configgen write failed")
	}
	log.Info().Str("path", *output).Msg("configgen wrote syntaxworker config template")
}
