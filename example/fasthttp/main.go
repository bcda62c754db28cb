package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/rotalog/rotalog"
	"github.com/rotalog/rotalog/compat"
)

func main() {
	// Create and configure a direct sink with a rotation observer
	sink, err := rotalog.NewBuilder().
		Directory("/var/log/fasthttp").
		Name("server").
		RotationThresholdKB(100 * 1000).
		MaxArchivedFiles(14).
		OnRotation(func(ev rotalog.RotationEvent) {
			fmt.Printf("rotation #%d archived %s\n", ev.Index, ev.ArchivePath)
		}).
		BuildDirect()
	if err != nil {
		panic(err)
	}

	core := rotalog.NewCore(nil)
	core.RegisterSink(sink)
	defer core.Close()

	// Create fasthttp adapter with custom level detection
	fasthttpAdapter := compat.NewFastHTTPAdapter(
		core,
		compat.WithDefaultLevel(rotalog.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	// Configure fasthttp server
	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  fasthttpAdapter,

		// Other server settings
		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	// Start server
	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

func customLevelDetector(msg string) int64 {
	// Custom logic to detect log levels
	if strings.Contains(msg, "connection cannot be served") {
		return rotalog.LevelWarn
	}
	if strings.Contains(msg, "error when serving connection") {
		return rotalog.LevelError
	}
	return 0 // Fall through to default level
}
