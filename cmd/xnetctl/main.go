// Command xnetctl is a small diagnostic client/server for the xnet
// stream driver: it either listens on an address and logs every
// message it receives, or connects to one and sends a single payload.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/atsika/xnet"
)

func main() {
	modeFlag := flag.String("mode", "listen", "listen or dial")
	addrFlag := flag.String("addr", "127.0.0.1:9000", "host:port")
	payloadFlag := flag.String("payload", "hello", "payload to send in dial mode")
	flag.Parse()

	f := xnet.NewFacade()
	drv := xnet.NewStreamDriver()

	err := f.Init(xnet.Callbacks{
		OnMessage: func(payload []byte, info xnet.MsgExternInfo) {
			log.Printf("message from %d: %q", info.Remote, payload)
		},
		OnPeerConnected: func(local, peer xnet.Handle) {
			log.Printf("peer connected: listener=%d peer=%d", local, peer)
		},
		OnPeerClosed: func(local, peer xnet.Handle) {
			log.Printf("peer closed: listener=%d peer=%d", local, peer)
		},
		OnClosed: func(h xnet.Handle) {
			log.Printf("closed: %d", h)
		},
	})
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	if err := f.AddDriver(drv); err != nil {
		log.Fatalf("add driver: %v", err)
	}

	switch *modeFlag {
	case "listen":
		h, err := f.Bind("tcp://" + *addrFlag)
		if err != nil {
			log.Fatalf("bind: %v", err)
		}
		log.Printf("listening on %s (handle %d)", *addrFlag, h)
	case "dial":
		h, err := f.Connect("tcp://" + *addrFlag)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		log.Printf("dialing %s (handle %d)", *addrFlag, h)
		if err := f.Send(h, []byte(*payloadFlag)); err != nil {
			log.Fatalf("send: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *modeFlag)
	}

	for {
		if _, err := f.Update(); err != nil {
			log.Fatalf("update: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
