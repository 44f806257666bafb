package main

import (
	"fmt"

	"github.com/ngrantham/pluto"
	"github.com/spf13/cobra"
)

var (
	strategyFlag string
	scenarioFlag string
)

// scenarios are small, self-contained fiber programs used to exercise the
// scheduler from the CLI without a real code generator in front of it
// (spec §8's test scenarios, reduced to something runnable standalone).
var scenarios = map[string]func(rt *pluto.Runtime, sched *pluto.Scheduler){
	"producer-consumer": func(rt *pluto.Runtime, sched *pluto.Scheduler) {
		ch := rt.ChanCreate(nil, 1)
		sched.Spawn(func(m *pluto.Mutator) (pluto.Value, error) {
			for i := 0; i < 5; i++ {
				if err := rt.ChanSend(m, ch, pluto.Value{Prim: uint64(i)}); err != nil {
					return pluto.Value{}, err
				}
			}
			rt.ChanSenderDec(ch)
			return pluto.Value{}, nil
		})
		sched.Spawn(func(m *pluto.Mutator) (pluto.Value, error) {
			for {
				v, err := rt.ChanRecv(m, ch)
				if err != nil {
					return pluto.Value{}, nil
				}
				_ = v
			}
		})
	},
	"rendezvous": func(rt *pluto.Runtime, sched *pluto.Scheduler) {
		ch := rt.ChanCreate(nil, 1)
		sched.Spawn(func(m *pluto.Mutator) (pluto.Value, error) {
			return pluto.Value{}, rt.ChanSend(m, ch, pluto.Value{Prim: 1})
		})
		sched.Spawn(func(m *pluto.Mutator) (pluto.Value, error) {
			_, err := rt.ChanRecv(m, ch)
			return pluto.Value{}, err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a registered scenario under a scheduling strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, ok := scenarios[scenarioFlag]
		if !ok {
			return fmt.Errorf("unknown scenario %q", scenarioFlag)
		}

		var strategy pluto.Strategy
		switch strategyFlag {
		case "sequential":
			strategy = pluto.StrategySequential
		case "roundrobin":
			strategy = pluto.StrategyRoundRobin
		case "random":
			strategy = pluto.StrategyRandom
		case "exhaustive":
			strategy = pluto.StrategyExhaustive
		default:
			return fmt.Errorf("unknown strategy %q", strategyFlag)
		}

		rt, err := pluto.NewRuntime(strategy)
		if err != nil {
			return err
		}

		if strategy == pluto.StrategyExhaustive {
			return rt.RunExhaustive(func(s *pluto.Scheduler) { scenario(rt, s) })
		}

		sched := rt.NewScheduler()
		scenario(rt, sched)
		return sched.Run()
	},
}

func init() {
	runCmd.Flags().StringVar(&strategyFlag, "strategy", "roundrobin", "sequential|roundrobin|random|exhaustive")
	runCmd.Flags().StringVar(&scenarioFlag, "scenario", "producer-consumer", "registered scenario name")
}
