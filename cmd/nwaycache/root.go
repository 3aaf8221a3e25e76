package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	configFile string
	v          *viper.Viper
	cfg        *Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nwaycache",
		Short: "Drive an N-way set-associative in-memory cache",
		Long: `nwaycache builds a sharded cache in which every shard is an independent
bounded cache with its own LRU, MRU or SF (smallest key first) eviction.

Settings come from flags, NWAYCACHE_* environment variables (e.g.
NWAYCACHE_STRATEGY, NWAYCACHE_LOG_LEVEL) and an optional config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}
			v, cfg, err := loadConfig(cmd.Flags(), a.configFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			a.v, a.cfg, a.log = v, cfg, log
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	pf.String("strategy", "LRU", "eviction strategy: LRU | MRU | SF")
	pf.Int("shards", 0, "number of shards (0 = auto)")
	pf.Int("capacity", 3, "entries per shard")
	pf.String("hasher", "fnv", "shard hash: fnv | xxhash")
	pf.String("log-level", "info", "log level: debug | info | warn | error")
	pf.String("log-format", "console", "log format: console | json")

	root.AddCommand(newTraceCmd(a), newBenchCmd(a))
	return root
}
