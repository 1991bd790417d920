package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hypercache/kvcore/internal/filter"
	"github.com/hypercache/kvcore/internal/logging"
	"github.com/hypercache/kvcore/internal/obs"
	"github.com/hypercache/kvcore/internal/ring"
	"github.com/hypercache/kvcore/internal/store"
	"github.com/hypercache/kvcore/pkg/config"
)

var (
	configPath = flag.String("config", "configs/kvcore.yaml", "Path to configuration file")
	nodeID     = flag.String("node-id", "", "Unique node identifier")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *nodeID != "" {
		cfg.Node.ID = *nodeID
	}

	logger, err := logging.InitializeFromConfig(cfg.Node.ID, logging.LogConfig{
		Level:         cfg.Logging.Level,
		EnableConsole: cfg.Logging.EnableConsole,
		EnableFile:    cfg.Logging.EnableFile,
		LogFile:       cfg.Logging.LogFile,
		BufferSize:    cfg.Logging.BufferSize,
		LogDir:        cfg.Logging.LogDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	startupCorrelationID := logging.NewCorrelationID()
	ctx := logging.WithCorrelationID(context.Background(), startupCorrelationID)

	logging.Info(ctx, logging.ComponentMain, logging.ActionStart, "kvcore node starting", map[string]interface{}{
		"node_id":     cfg.Node.ID,
		"config_file": *configPath,
	})

	rec, err := obs.NewRecorder(cfg.Node.ID)
	if err != nil {
		logging.Fatal(ctx, logging.ComponentMain, logging.ActionStart, "failed to start metrics recorder", err)
		os.Exit(1)
	}
	obs.SetGlobalRecorder(rec)

	facade, err := buildFacade(cfg, rec)
	if err != nil {
		logging.Fatal(ctx, logging.ComponentMain, logging.ActionStart, "failed to build storage facade", err)
		os.Exit(1)
	}

	logging.Info(ctx, logging.ComponentMain, logging.ActionStart, "storage facade ready", map[string]interface{}{
		"ring_enabled": cfg.Ring.Enabled,
		"footprint":    facade.Size(),
	})

	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go runREPL(shutdownCtx, facade, rec)

	<-sig
	fmt.Printf("shutting down kvcore node: %s\n", cfg.Node.ID)
	cancel()
	fmt.Println("kvcore shutdown complete")
}

func buildFacade(cfg *config.Config, rec *obs.Recorder) (*store.Facade, error) {
	users, err := newFilter(cfg.Filters.Users)
	if err != nil {
		return nil, fmt.Errorf("building user filter: %w", err)
	}

	if !cfg.Ring.Enabled {
		items, err := newFilter(cfg.Filters.Items)
		if err != nil {
			return nil, fmt.Errorf("building item filter: %w", err)
		}

		return store.New(users, items, rec), nil
	}

	items, err := ring.New(ring.Config{
		RingSize:        cfg.Ring.RingSize,
		NumServers:      cfg.Ring.NumServers,
		IndexKind:       ring.IndexKind(cfg.Ring.IndexKind),
		LookupCacheSize: cfg.Ring.LookupCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("building ring: %w", err)
	}

	return store.New(users, items, rec), nil
}

func newFilter(fc config.FilterConfig) (filter.ProbabilisticFilter, error) {
	switch fc.Kind {
	case "bloom":
		return filter.NewSimpleBloom(fc.ExpectedItems, fc.FalsePositiveFPP)
	case "counting_bloom":
		return filter.NewCountingBloom(fc.ExpectedItems, fc.FalsePositiveFPP)
	case "cuckoo":
		return filter.NewCuckooFilter(filter.CuckooConfig{
			BucketSize:       fc.BucketSize,
			NumBuckets:       fc.NumBuckets,
			FingerprintBytes: fc.FingerprintBytes,
			MaxEvictions:     fc.MaxEvictions,
		}, 0)
	default:
		return nil, fmt.Errorf("unknown filter kind %q", fc.Kind)
	}
}

// runREPL offers a minimal line-oriented demonstration of the facade's
// operations from a terminal, standing in for the teacher's RESP/HTTP
// servers (both dropped as out-of-scope network transport).
func runREPL(ctx context.Context, f *store.Facade, rec *obs.Recorder) {
	fmt.Println("commands: add_user <name> | has_user <name> | add_item <item> | get_item <item> | remove_item <item> | size | metrics")
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "add_user":
			if len(fields) < 2 {
				fmt.Println("usage: add_user <name>")
				continue
			}
			ok, err := f.AddUser([]byte(fields[1]))
			printResult(ok, err)
		case "has_user":
			if len(fields) < 2 {
				fmt.Println("usage: has_user <name>")
				continue
			}
			fmt.Println(f.HasUser([]byte(fields[1])))
		case "add_item":
			if len(fields) < 2 {
				fmt.Println("usage: add_item <item>")
				continue
			}
			ok, err := f.AddItem([]byte(fields[1]))
			printResult(ok, err)
		case "get_item":
			if len(fields) < 2 {
				fmt.Println("usage: get_item <item>")
				continue
			}
			fmt.Println(f.GetItem([]byte(fields[1])))
		case "remove_item":
			if len(fields) < 2 {
				fmt.Println("usage: remove_item <item>")
				continue
			}
			fmt.Println(f.RemoveItem([]byte(fields[1])))
		case "size":
			fmt.Println(f.Size())
		case "metrics":
			snap := rec.Snapshot()
			if snap == nil {
				fmt.Println("no metrics recorded yet")
				continue
			}
			for name, count := range snap.Counters {
				fmt.Printf("%s: %d\n", name, count.Sum)
			}
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

func printResult(ok bool, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(ok)
}
