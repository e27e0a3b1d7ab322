package main

import (
	cmd "github.com/emotibot/emotibot/cmd/emotibot"
	"github.com/emotibot/emotibot/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting emotibot")
	cmd.Execute()
}
