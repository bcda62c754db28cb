package main

import (
	"github.com/panjf2000/gnet/v2"

	"github.com/rotalog/rotalog"
	"github.com/rotalog/rotalog/compat"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	c.Write(buf)
	return gnet.None
}

func main() {
	cfg, err := rotalog.NewConfigFromDefaults(
		"directory=/var/log/gnet",
		"name=echo",
		"level=-4", // Debug level
		"format=json",
		"rotation_threshold_kb=10000",
		"max_archived_files=7",
	)
	if err != nil {
		panic(err)
	}

	sink, err := rotalog.NewQueuedSink(cfg, nil)
	if err != nil {
		panic(err)
	}

	core := rotalog.NewCore(cfg)
	core.RegisterSink(sink)
	defer core.Close()

	gnetAdapter := compat.NewGnetAdapter(core)

	// Configure gnet server with the logger
	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
