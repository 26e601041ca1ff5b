//go:build sdl

package main

import (
	gosdl "github.com/veandco/go-sdl2/sdl"

	"github.com/Versifine/mouselook/internal/config"
	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/platform/sdl"
)

// SDL wants its calls on the main OS thread.
func runMain(run func()) {
	gosdl.Main(run)
}

func openSDL(cfg *config.Config) (platform.Device, error) {
	return sdl.OpenWindow("mouselook", 640, 480)
}
