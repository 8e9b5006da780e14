//go:build js && wasm

// Command navwasm runs the navigation bar in the browser:
//
//	GOOS=js GOARCH=wasm go build -o public/assets/wasm/nav.wasm ./cmd/navwasm
package main

import (
	"go.uber.org/zap"

	"kulhadcafe.in/site/internal/content"
	"kulhadcafe.in/site/internal/dom"
	"kulhadcafe.in/site/internal/navbar"
)

func main() {
	logger := zap.NewNop()
	site, err := content.Default()
	if err != nil {
		panic(err)
	}

	bar := navbar.New(dom.NewWindow(), dom.BodyLock{}, site.Nav, logger)
	bar.Mount()
	dom.Bind(bar)

	// The bar lives as long as the page.
	select {}
}
