// services/rproc/cmd/selftest/main.go
//
// Host selftest: wires the bus, the config service and the lifecycle service
// against an emulated SoC, drives an enable/disable cycle for both
// subsystems and prints the backend transcript.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"rproc-go/bus"
	cfgsvc "rproc-go/services/config"
	"rproc-go/services/rproc"
	"rproc-go/services/rproc/internal/emul"
	"rproc-go/types"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	b := bus.NewBus(16)
	soc := emul.NewSoC(true)
	boot := soc.BootRegister("dsp")

	svc := rproc.NewService(
		b.NewConnection("rproc"),
		rproc.Backends{Reset: soc, Power: soc, Timers: soc},
		rproc.Platform{
			Modules:     soc,
			IOMMUs:      soc,
			Mem:         soc,
			BootSetters: map[string]rproc.BootAddressSetter{"dsp": boot},
		},
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfgsvc.NewService(path, log).Start(ctx, b.NewConnection("config"))

	cli := b.NewConnection("selftest")
	if !waitReady(cli) {
		log.Fatal().Msg("lifecycle service never became ready")
	}

	bootAddr := uint32(0x98800000)
	cycle(cli, log, "ipu", types.TransitionRequest{Configure: true})
	cycle(cli, log, "dsp", types.TransitionRequest{Configure: true, BootAddr: &bootAddr})

	fmt.Println("--- backend transcript ---")
	for _, line := range soc.Transcript() {
		fmt.Println(line)
	}
}

func waitReady(cli *bus.Connection) bool {
	sub := cli.Subscribe(bus.T("rproc", "state"))
	defer sub.Unsubscribe()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			if st, ok := msg.Payload.(types.ServiceState); ok && st.Level == "ready" {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func cycle(cli *bus.Connection, log zerolog.Logger, name string, req types.TransitionRequest) {
	for _, verb := range []string{"enable", "disable"} {
		sub := cli.Request(bus.T("rproc", "sub", name, "control", verb), req)
		select {
		case msg := <-sub.Channel():
			switch p := msg.Payload.(type) {
			case types.OKReply:
				log.Info().Str("subsystem", name).Str("verb", verb).Msg("ok")
			case types.ErrorReply:
				log.Error().Str("subsystem", name).Str("verb", verb).Str("code", p.Error).Msg("failed")
			}
		case <-time.After(time.Second):
			log.Error().Str("subsystem", name).Str("verb", verb).Msg("no reply")
		}
		sub.Unsubscribe()
	}
}
