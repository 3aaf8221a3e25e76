package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/nwaycache/cache"
	"github.com/IvanBrykalov/nwaycache/policy"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const lruScript = `
# two shards of three, odd keys in shard 1
put 1 1
put 2 2
put 3 3
put 4 4
get 2
put 5 5
put 4 41
put 6 6
put 7 7
get 1
get 3
put 3 31
get 3
`

func TestTrace_TwoShardLRU(t *testing.T) {
	out, err := execute(t, lruScript,
		"trace", "--strategy", "lru", "--shards", "2", "--capacity", "3", "--shard-func", "mod", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"get 2 = 2",
		"evict 1=1",
		"get 1: miss",
		"get 3 = 3",
		"get 3 = 31",
		"shard 0 [LRU]: 6=6 4=41 2=2",
		"shard 1 [LRU]: 3=31 7=7 5=5",
	}, "\n")+"\n", out)
}

func TestTrace_MRUFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mru.trace")
	script := "put 1 a\nput 2 b\nput 3 c\nput 4 d\nget 2\nput 5 e\nput 4 f\nput 6 g\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))

	out, err := execute(t, "", "trace", path, "--strategy", "MRU", "--shards", "1", "--capacity", "3", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "evict 3=c\n")
	assert.True(t, strings.HasSuffix(out, "shard 0 [MRU]: 1=a 5=e 6=g\n"), out)
}

func TestTrace_ConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nwaycache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: SF\nshards: 1\ncapacity: 2\nlog-level: error\n"), 0o600))

	out, err := execute(t, "put 5 x\nput 1 y\nput 9 z\n", "trace", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "evict 1=y\n")
	assert.Contains(t, out, "shard 0 [SF]:")

	// Environment beats the config file.
	t.Setenv("NWAYCACHE_CAPACITY", "3")
	out, err = execute(t, "put 5 x\nput 1 y\nput 9 z\n", "trace", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "evict")
}

func TestTrace_Errors(t *testing.T) {
	_, err := execute(t, "", "trace", "--strategy", "LFU", "--log-level", "error")
	require.ErrorIs(t, err, policy.ErrUnknownKind)

	_, err = execute(t, "put 1\n", "trace", "--log-level", "error")
	require.ErrorContains(t, err, "line 1")

	_, err = execute(t, "put x 1\n", "trace", "--log-level", "error")
	require.ErrorContains(t, err, `key "x"`)

	_, err = execute(t, "", "trace", "--key-type", "string", "--shard-func", "mod", "--log-level", "error")
	require.Error(t, err)

	_, err = execute(t, "", "trace", "--hasher", "md5", "--log-level", "error")
	require.ErrorContains(t, err, "unknown hasher")
}

func TestTrace_StringKeysXXHash(t *testing.T) {
	out, err := execute(t, "put b 1\nput a 2\nput c 3\nget a\n",
		"trace", "--key-type", "string", "--strategy", "SF", "--shards", "1", "--capacity", "2",
		"--hasher", "xxhash", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "evict a=2\n")
	assert.Contains(t, out, "get a: miss\n")
}

func TestRunBench(t *testing.T) {
	t.Parallel()

	c, err := cache.New(cache.Options[string, string]{Shards: 4, Capacity: 64})
	require.NoError(t, err)

	res, err := runBench(context.Background(), c, benchParams{
		workers:  4,
		duration: 50 * time.Millisecond,
		readPct:  80,
		keys:     1_000,
		zipfS:    1.1,
		zipfV:    1,
		seed:     1,
		preload:  -1,
	})
	require.NoError(t, err)
	assert.Positive(t, res.ops)
	assert.Equal(t, res.ops, res.reads+res.writes)
	assert.Equal(t, res.reads, res.hits+res.misses)
	assert.LessOrEqual(t, res.entries, 4*64)

	_, err = runBench(context.Background(), c, benchParams{keys: 0, zipfS: 1, duration: time.Second})
	require.Error(t, err)
}
