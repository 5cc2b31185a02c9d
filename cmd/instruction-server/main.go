// Instruction server daemon.
//
// Usage:
//
//	instruction-server [-config=config.yaml]   Serve on $PORT (default 3000)
package main

import (
	"net/http"
	"sync"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-instruction-server/pkg/app"
	"github.com/code-payments/code-instruction-server/pkg/code/server/web/instruction"
)

type instructionApp struct {
	server *instruction.Server

	stopOnce   sync.Once
	shutdownCh chan struct{}
}

func (a *instructionApp) Init(_ app.Config, _ *newrelic.Application) error {
	a.server = instruction.NewInstructionServer(instruction.WithEnvConfigs())
	return nil
}

func (a *instructionApp) GetHandlers() map[string]http.HandlerFunc {
	return a.server.GetHandlers()
}

func (a *instructionApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

func (a *instructionApp) Stop() {
	a.stopOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func main() {
	err := app.Run(&instructionApp{
		shutdownCh: make(chan struct{}),
	})
	if err != nil {
		logrus.WithError(err).Fatal("error running instruction server")
	}
}
