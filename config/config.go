// Package config parses the kvstored daemon's command-line flags into a
// Config, following the teacher's flag.NewFlagSet + fs.Usage daemon style
// (cmd/sql-tapd/main.go).
package config

import (
	"flag"
	"fmt"
	"os"
)

// Config holds kvstored's startup configuration.
type Config struct {
	Port       int
	Dir        string
	DBFilename string

	// ReplicaOf is "host port" naming the primary to replicate from, or
	// empty for a standalone/primary server.
	ReplicaOf string
}

// Parse parses args (typically os.Args[1:]) into a Config.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("kvstored", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "kvstored — in-memory key/value store with streams and replication\n\nUsage:\n  kvstored [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	port := fs.Int("port", 6380, "TCP port to listen on")
	dir := fs.String("dir", ".", "directory for the RDB snapshot file")
	dbfilename := fs.String("dbfilename", "dump.rdb", "RDB snapshot file name")
	replicaof := fs.String("replicaof", "", `"host port" of a primary to replicate from`)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Config{
		Port:       *port,
		Dir:        *dir,
		DBFilename: *dbfilename,
		ReplicaOf:  *replicaof,
	}, nil
}

// IsReplica reports whether this Config configures a replica.
func (c *Config) IsReplica() bool { return c.ReplicaOf != "" }
