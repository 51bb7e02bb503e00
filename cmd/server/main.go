package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ontomap/ontomap-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		application.Close()
		os.Exit(0)
	}()

	application.Log.Info("starting http server", "port", application.Cfg.Port)
	if err := application.Run(); err != nil {
		application.Log.Error("http server exited", "error", err)
		os.Exit(1)
	}
}
