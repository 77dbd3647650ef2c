package command

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mickamy/kvstored/rdb"
	"github.com/mickamy/kvstored/resp"
	"github.com/mickamy/kvstored/storage"
)

// doInfo implements INFO replication (the only section this server serves).
func (d *Dispatcher) doInfo(cmd *Command, w io.Writer) error {
	var b strings.Builder
	b.WriteString("# Replication\r\n")
	if d.Node == nil {
		b.WriteString("role:master\r\n")
	} else {
		fmt.Fprintf(&b, "role:%s\r\n", d.Node.Role())
		fmt.Fprintf(&b, "master_replid:%s\r\n", d.Node.ReplID())
		fmt.Fprintf(&b, "master_repl_offset:%d\r\n", d.Node.Offset())
	}
	return resp.WriteBulkString(w, []byte(b.String()))
}

// doConfig implements CONFIG GET dir|dbfilename, the two parameters the
// replication snapshot handshake needs to agree on a file name.
func (d *Dispatcher) doConfig(cmd *Command, w io.Writer) error {
	sub, ok := cmd.arg(0)
	if !ok || !strings.EqualFold(sub, "GET") {
		return ErrSyntax
	}
	param, ok := cmd.arg(1)
	if !ok {
		return ErrSyntax
	}

	var value string
	switch strings.ToLower(param) {
	case "dir":
		value = d.Dir
	case "dbfilename":
		value = d.DBFilename
	default:
		return resp.WriteArrayHeader(w, 0)
	}

	if err := resp.WriteArrayHeader(w, 2); err != nil {
		return err
	}
	if err := resp.WriteBulkString(w, []byte(param)); err != nil {
		return err
	}
	return resp.WriteBulkString(w, []byte(value))
}

// doReplconf implements REPLCONF listening-port <port> / capa psync2 /
// GETACK * / ACK <offset>. Only listening-port is remembered, on the
// Dispatcher so the following PSYNC can hand it to AttachReplica.
func (d *Dispatcher) doReplconf(cmd *Command, w io.Writer) error {
	sub, ok := cmd.arg(0)
	if !ok {
		return ErrSyntax
	}
	switch strings.ToUpper(sub) {
	case "LISTENING-PORT":
		port, ok := cmd.arg(1)
		if !ok {
			return ErrSyntax
		}
		d.pendingListeningPort = port
		return resp.WriteSimpleString(w, "OK")
	case "CAPA":
		return resp.WriteSimpleString(w, "OK")
	case "GETACK", "ACK":
		// A primary only ever issues GETACK, and only a replica's apply
		// loop (replication.RunReplicaLoop) answers ACK; neither reaches
		// the command dispatcher in normal operation.
		return nil
	default:
		return resp.WriteSimpleString(w, "OK")
	}
}

// doWait implements WAIT numreplicas timeout.
func (d *Dispatcher) doWait(cmd *Command, w io.Writer) error {
	numArg, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("wait")
	}
	timeoutArg, ok := cmd.arg(1)
	if !ok {
		return errWrongArity("wait")
	}
	num, err := strconv.Atoi(numArg)
	if err != nil {
		return newError(KindNotInteger, storage.ErrNotInteger.Error())
	}
	timeoutMs, err := strconv.Atoi(timeoutArg)
	if err != nil {
		return newError(KindNotInteger, storage.ErrNotInteger.Error())
	}

	if d.Node == nil {
		return resp.WriteInteger(w, 0)
	}

	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeoutMs == 0 {
		timeout = 24 * time.Hour
	}
	n := d.Node.Wait(num, timeout)
	return resp.WriteInteger(w, int64(n))
}

// doPsync implements PSYNC ? -1: replies FULLRESYNC, writes a point-in-time
// snapshot, then hands conn over to the replication Node as an attached
// replica (spec.md §6.2).
func (d *Dispatcher) doPsync(w io.Writer, conn net.Conn) error {
	if d.Node == nil {
		return newError(KindSyntax, "ERR this server is not configured as a replication primary")
	}

	if err := resp.WriteSimpleString(w, fmt.Sprintf("FULLRESYNC %s %d", d.Node.ReplID(), d.Node.Offset())); err != nil {
		return err
	}

	entries := make([]rdb.Entry, 0, 64)
	for _, e := range d.Store.Snapshot() {
		entries = append(entries, rdb.Entry{Key: []byte(e.Key), Value: e.Value, Expire: e.Expire})
	}

	var buf strings.Builder
	if err := rdb.Write(&buf, entries); err != nil {
		return fmt.Errorf("command: psync: build snapshot: %w", err)
	}
	if err := resp.WriteSnapshotFrame(w, []byte(buf.String())); err != nil {
		return err
	}

	d.Node.AttachReplica(conn, d.pendingListeningPort)
	d.pendingListeningPort = ""
	return nil
}
