package main

import (
	"github.com/accredmap/backend/internal/server"
	"github.com/accredmap/backend/internal/util"
	"github.com/accredmap/backend/pkg/logger"
	"github.com/accredmap/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
