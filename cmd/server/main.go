// Command server boots Sonar's engine and serves its three concurrent
// wire surfaces — the native RPC API, the OpenSubsonic-compatible
// adapter, and the admin API — each on its own configured address.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"sonar/internal/config"
	"sonar/internal/engine"
	"sonar/internal/rpc"
	"sonar/internal/subsonic"
	"sonar/internal/web"
)

func main() {
	cfg := config.Load()

	e, err := engine.New(cfg)
	if err != nil {
		log.Fatal("failed to initialize engine:", err)
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	e.RunScheduler(ctx)

	rpcServer := rpc.New(e)
	subsonicServer := subsonic.New(e)
	webServer := web.New(e)

	errc := make(chan error, 3)
	go func() {
		fmt.Printf("sonar: native RPC listening on %s\n", cfg.Address)
		errc <- http.ListenAndServe(cfg.Address, rpcServer.Router())
	}()
	go func() {
		fmt.Printf("sonar: OpenSubsonic adapter listening on %s\n", cfg.OpenSubsonicAddress)
		errc <- http.ListenAndServe(cfg.OpenSubsonicAddress, subsonicServer.Router())
	}()
	go func() {
		fmt.Printf("sonar: admin API listening on %s\n", cfg.AdminAddress)
		errc <- http.ListenAndServe(cfg.AdminAddress, webServer.Router())
	}()

	select {
	case err := <-errc:
		log.Fatal("server exited:", err)
	case <-ctx.Done():
		log.Println("sonar: shutting down")
	}
}
