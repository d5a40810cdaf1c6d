package main

import (
	"log"

	"brewos-server/confs"
	"brewos-server/db"
	"brewos-server/server"
)

func main() {
	cfg, err := confs.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Printf("Starting server on %s (dispatch mode: %s)", cfg.Addr, cfg.DispatchMode)
	srv := server.NewServer(database, cfg)
	srv.Start()
}
