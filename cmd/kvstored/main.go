package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mickamy/kvstored/command"
	"github.com/mickamy/kvstored/config"
	"github.com/mickamy/kvstored/rdb"
	"github.com/mickamy/kvstored/replication"
	"github.com/mickamy/kvstored/server"
	"github.com/mickamy/kvstored/storage"
)

const dialTimeout = 5 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := storage.New()

	var node *replication.Node
	if cfg.IsReplica() {
		node = replication.NewReplica()
	} else {
		node = replication.NewPrimary()
	}

	dispatcher := command.NewDispatcher(store, node, cfg.Dir, cfg.DBFilename)
	srv := server.New(dispatcher, node)

	go func() {
		for ev := range srv.Events() {
			log.Printf("conn %s: %s %s", ev.ConnID, ev.Kind, ev.Addr)
		}
	}()

	if cfg.IsReplica() {
		primaryAddr, err := replicaAddr(cfg.ReplicaOf)
		if err != nil {
			return fmt.Errorf("replicaof: %w", err)
		}

		conn, hr, err := node.DialAndHandshake(ctx, primaryAddr, fmt.Sprintf("%d", cfg.Port), dialTimeout)
		if err != nil {
			return fmt.Errorf("replica: connect to primary %s: %w", primaryAddr, err)
		}

		entries, err := rdb.Read(bytes.NewReader(hr.Snapshot), time.Now())
		if err != nil {
			return fmt.Errorf("replica: load snapshot from primary %s: %w", primaryAddr, err)
		}
		snapshot := make([]storage.SnapshotEntry, 0, len(entries))
		for _, e := range entries {
			snapshot = append(snapshot, storage.SnapshotEntry{Key: string(e.Key), Value: e.Value, Expire: e.Expire})
		}
		store.Restore(snapshot)
		log.Printf("replica: loaded %d key(s) from primary %s (replid %s)", len(snapshot), primaryAddr, hr.ReplID)

		go func() {
			if err := node.RunReplicaLoop(ctx, conn, dispatcher); err != nil && ctx.Err() == nil {
				log.Printf("replica: apply loop: %v", err)
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("kvstored listening on %s (role=%s)", addr, node.Role())
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// replicaAddr turns Config.ReplicaOf's "host port" form into a dial
// address, matching the --replicaof flag's documented syntax.
func replicaAddr(replicaOf string) (string, error) {
	fields := strings.Fields(replicaOf)
	if len(fields) != 2 {
		return "", fmt.Errorf("want \"host port\", got %q", replicaOf)
	}
	return fields[0] + ":" + fields[1], nil
}
