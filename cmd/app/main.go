package main

import (
	"context"
	"flag"

	"bitbucket.org/calmisland/playstore-verifier/internal/config"
	"bitbucket.org/calmisland/playstore-verifier/internal/global"
	"bitbucket.org/calmisland/playstore-verifier/internal/routers"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path of the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	services, err := global.Setup(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	echo := routers.SetupRouter(services)

	// Start server
	echo.Logger.Fatal(echo.Start(cfg.Server.ListenAddress))
}
