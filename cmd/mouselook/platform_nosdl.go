//go:build !sdl

package main

import (
	"errors"

	"github.com/Versifine/mouselook/internal/config"
	"github.com/Versifine/mouselook/internal/platform"
)

var errNoSDL = errors.New("built without sdl support (rebuild with -tags sdl)")

func runMain(run func()) {
	run()
}

func openSDL(cfg *config.Config) (platform.Device, error) {
	return nil, errNoSDL
}
