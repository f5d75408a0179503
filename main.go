package main

import (
	"context"
	"os"

	"github.com/tphakala/mediscan/cmd"
	"github.com/tphakala/mediscan/internal/conf"
)

func main() {
	settings := &conf.Settings{}
	if err := cmd.RootCommand(settings).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
