package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harborfin/tradegate/internal/config"
	"github.com/harborfin/tradegate/internal/event"
	"github.com/harborfin/tradegate/internal/gateway"
	"github.com/harborfin/tradegate/internal/gateway/coinbase"
	"github.com/harborfin/tradegate/internal/logging"
	"github.com/harborfin/tradegate/internal/monitor"
	"github.com/harborfin/tradegate/internal/oms"
	"github.com/harborfin/tradegate/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)
	logger := logging.Component("main")

	engine := event.NewEngine(time.Second)
	service := oms.New(engine)
	engine.Start()

	gw := coinbase.New(gateway.EngineSink{Engine: engine})
	setting := gateway.ConnectSetting{
		Key:        cfg.Gateway.Key,
		Secret:     cfg.Gateway.Secret,
		Passphrase: cfg.Gateway.Passphrase,
		Sessions:   cfg.Gateway.Sessions,
		Server:     cfg.Gateway.Server,
		ProxyHost:  cfg.Gateway.ProxyHost,
		ProxyPort:  cfg.Gateway.ProxyPort,
	}
	if err := gw.Connect(setting); err != nil {
		log.Fatal().Err(err).Msg("gateway connect failed")
	}
	service.AddGateway(gw)

	for _, symbol := range cfg.Gateway.Symbols {
		req := types.SubscribeRequest{Symbol: symbol, Exchange: types.ExchangeCoinbase}
		if err := gw.Subscribe(req); err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("subscribe failed")
		}
	}

	var mon *monitor.Server
	if cfg.Monitor.Enabled {
		mon = monitor.NewServer(cfg.Monitor.Addr, service)
		mon.Start()
	}

	logger.Info().Str("server", cfg.Gateway.Server).Msg("tradegate running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	if mon != nil {
		mon.Stop()
	}
	gw.Close()
	engine.Stop()
}
