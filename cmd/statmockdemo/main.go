// Command statmockdemo exercises the statmock core end-to-end outside of
// a test binary: registering a few mocks, popping them, and tearing down,
// logging each step. It exists to give the public API a runnable example
// the way a library README would, not as a user-facing tool.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/wdstat/statmock/config"
	"github.com/wdstat/statmock/harness"
	"github.com/wdstat/statmock/internal/statlog"
	"github.com/wdstat/statmock/mockcore"
	"go.uber.org/zap"
)

func main() {
	runID := uuid.New().String()
	log := statlog.Default("statmockdemo")
	log.Info("starting demo run", zap.String("run_id", runID))

	var failed bool
	h := harness.Func{
		FailFunc:   func(msg string) { failed = true; log.Warn("harness fail", zap.String("run_id", runID), zap.String("message", msg)) },
		IgnoreFunc: func(msg string) { log.Info("harness ignore", zap.String("run_id", runID), zap.String("message", msg)) },
	}

	m, err := mockcore.New(config.Config{ArenaSize: 4096}, h, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := m.Add("ReadSensor", []byte{0x2A}, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := m.AddReusable("ReadSensor", []byte{0x2B}, 3, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for i := 0; i < 4; i++ {
		payload, err := m.Pop("ReadSensor", []byte{byte(i)})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}
		log.Info("popped ReadSensor", zap.Int("iteration", i), zap.Binary("payload", payload))
	}

	if err := m.TearDown(); err != nil {
		log.Warn("teardown reported unconsumed mocks", zap.Error(err))
	}

	if failed {
		os.Exit(1)
	}
}
