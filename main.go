package main

import (
	"github.com/kinnrichard/image-uploader/cmd"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Info().Str("version", config.Version).Str("commit", config.CommitHash).Msg("image uploader")
	cmd.Execute()
}
