package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/mickamy/kvstored/replication"
	"github.com/mickamy/kvstored/resp"
	"github.com/mickamy/kvstored/storage"
)

// Dispatcher executes Commands against the storage engine and, when
// attached, the replication Node. It holds no package-global state,
// matching the dependency-injected construction the rest of this repo
// uses for its long-lived components.
type Dispatcher struct {
	Store *storage.Store
	Node  *replication.Node

	Dir        string
	DBFilename string

	// pendingListeningPort holds the port a replica announced via
	// REPLCONF listening-port, for the PSYNC that follows on the same
	// connection to pass to replication.Node.AttachReplica.
	pendingListeningPort string
}

// NewDispatcher builds a Dispatcher over store, optionally wired to a
// replication Node (nil is a valid standalone server with no replication).
func NewDispatcher(store *storage.Store, node *replication.Node, dir, dbfilename string) *Dispatcher {
	return &Dispatcher{Store: store, Node: node, Dir: dir, DBFilename: dbfilename}
}

// Dispatch executes cmd, writing its reply to w, and reports how the
// connection handler should treat it afterward (spec.md §4.6). ctx bounds
// blocking operations (XREAD BLOCK) and is canceled when the connection
// closes. conn is only consulted by PSYNC, which needs the raw net.Conn to
// hand off to the replication Node. Dispatch never returns an error for
// command-level failures (WRONGTYPE, syntax errors, ...) — those are
// written as a wire error reply and reported as Other; a non-nil error
// means the connection itself is in trouble and should be closed.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *Command, w io.Writer, conn net.Conn) (Classification, error) {
	class := Classify(cmd.Name)

	var err error
	switch cmd.Name {
	case "PING":
		err = d.doPing(cmd, w)
	case "ECHO":
		err = d.doEcho(cmd, w)
	case "COMMAND":
		err = resp.WriteArrayHeader(w, 0)

	case "SET":
		err = d.doSet(cmd, w)
	case "GET":
		err = d.doGet(cmd, w)
	case "GETDEL":
		err = d.doGetDel(cmd, w)
	case "GETEX":
		err = d.doGetEx(cmd, w)
	case "DEL":
		err = d.doDel(cmd, w)
	case "TYPE":
		err = d.doType(cmd, w)
	case "KEYS":
		err = d.doKeys(cmd, w)
	case "INCR":
		err = d.doIncrBy(cmd, w, 1)
	case "DECR":
		err = d.doIncrBy(cmd, w, -1)
	case "INCRBY":
		err = d.doIncrByArg(cmd, w, 1)
	case "DECRBY":
		err = d.doIncrByArg(cmd, w, -1)
	case "INCRBYFLOAT":
		err = d.doIncrByFloat(cmd, w)

	case "XADD":
		err = d.doXAdd(cmd, w)
	case "XRANGE":
		err = d.doXRange(cmd, w)
	case "XREAD":
		err = d.doXRead(ctx, cmd, w)

	case "INFO":
		err = d.doInfo(cmd, w)
	case "CONFIG":
		err = d.doConfig(cmd, w)
	case "REPLCONF":
		err = d.doReplconf(cmd, w)
	case "WAIT":
		err = d.doWait(cmd, w)
	case "PSYNC":
		err = d.doPsync(w, conn)

	default:
		err = errUnknownCommand(cmd.Name)
	}

	if err == nil {
		return class, nil
	}

	var cmdErr *Error
	if errors.As(err, &cmdErr) || isStorageError(err) {
		if werr := resp.WriteError(w, wireText(err)); werr != nil {
			return Other, fmt.Errorf("command: %s: write error reply: %w", cmd.Name, werr)
		}
		return Other, nil
	}

	return Other, fmt.Errorf("command: %s: %w", cmd.Name, err)
}

func isStorageError(err error) bool {
	return errors.Is(err, storage.ErrWrongType) ||
		errors.Is(err, storage.ErrNotInteger) ||
		errors.Is(err, storage.ErrNotFloat) ||
		errors.Is(err, storage.ErrOverflow)
}

func (d *Dispatcher) doPing(cmd *Command, w io.Writer) error {
	if msg, ok := cmd.arg(0); ok {
		return resp.WriteSimpleString(w, msg)
	}
	return resp.WriteSimpleString(w, "PONG")
}

func (d *Dispatcher) doEcho(cmd *Command, w io.Writer) error {
	msg, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("echo")
	}
	return resp.WriteBulkString(w, []byte(msg))
}
