package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/nwaycache/cache"
)

type traceOp struct {
	line     int
	put      bool
	key, val string
}

func newTraceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [script]",
		Short: "Replay a put/get script and print every shard's contents",
		Long: `Replay a script of operations, one per line:

  put <key> <value>
  get <key>
  # comment

The script is read from the named file, or from stdin when omitted or "-".
Values are strings; keys are ints or strings depending on --key-type.
With --shard-func=mod integer keys go to shard key mod N.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			ops, err := parseScript(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch keyType := a.v.GetString("key-type"); keyType {
			case "int":
				opt := traceOptions[int](a, out)
				switch sf := a.v.GetString("shard-func"); sf {
				case "mod":
					opt.ShardFunc = func(k, n int) int { return ((k % n) + n) % n }
				case "hash":
				default:
					return fmt.Errorf("unknown shard function %q (use hash or mod)", sf)
				}
				return runTrace(out, opt, ops, strconv.Atoi)
			case "string":
				if a.v.GetString("shard-func") == "mod" {
					return fmt.Errorf("--shard-func=mod needs --key-type=int")
				}
				opt := traceOptions[string](a, out)
				return runTrace(out, opt, ops, func(s string) (string, error) { return s, nil })
			default:
				return fmt.Errorf("unknown key type %q (use int or string)", keyType)
			}
		},
	}
	cmd.Flags().String("key-type", "int", "key type: int | string")
	cmd.Flags().String("shard-func", "hash", "shard function: hash | mod (int keys)")
	return cmd
}

func traceOptions[K comparable](a *app, out io.Writer) cache.Options[K, string] {
	return cache.Options[K, string]{
		Strategy: a.cfg.kind(),
		Shards:   a.cfg.Shards,
		Capacity: a.cfg.Capacity,
		Hasher:   hasherFor[K](a.cfg.Hasher),
		Logger:   a.log,
		OnEvict: func(k K, v string) {
			fmt.Fprintf(out, "evict %v=%s\n", k, v)
		},
	}
}

func parseScript(r io.Reader) ([]traceOp, error) {
	var ops []traceOp
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		switch {
		case strings.EqualFold(f[0], "put") && len(f) == 3:
			ops = append(ops, traceOp{line: n, put: true, key: f[1], val: f[2]})
		case strings.EqualFold(f[0], "get") && len(f) == 2:
			ops = append(ops, traceOp{line: n, key: f[1]})
		default:
			return nil, fmt.Errorf("line %d: want \"put <key> <value>\" or \"get <key>\", got %q", n, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ops, nil
}

func runTrace[K comparable](out io.Writer, opt cache.Options[K, string], ops []traceOp, parseKey func(string) (K, error)) error {
	c, err := cache.New(opt)
	if err != nil {
		return err
	}
	opt.Logger.Debug("replaying script", zap.Int("ops", len(ops)))

	for _, op := range ops {
		k, err := parseKey(op.key)
		if err != nil {
			return fmt.Errorf("line %d: key %q: %w", op.line, op.key, err)
		}
		if op.put {
			if err := c.Put(k, op.val); err != nil {
				return fmt.Errorf("line %d: %w", op.line, err)
			}
			continue
		}
		if v, err := c.Get(k); err != nil {
			fmt.Fprintf(out, "get %v: miss\n", k)
		} else {
			fmt.Fprintf(out, "get %v = %s\n", k, v)
		}
	}

	for i, entries := range c.Snapshot() {
		parts := make([]string, len(entries))
		for j, e := range entries {
			parts[j] = fmt.Sprintf("%v=%s", e.Key, e.Value)
		}
		fmt.Fprintf(out, "shard %d [%s]: %s\n", i, c.Strategy(), strings.Join(parts, " "))
	}
	return nil
}
