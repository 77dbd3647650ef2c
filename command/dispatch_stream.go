package command

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/mickamy/kvstored/resp"
	"github.com/mickamy/kvstored/storage"
	"github.com/mickamy/kvstored/stream"
)

// doXAdd implements XADD key <id|*> field value [field value ...].
func (d *Dispatcher) doXAdd(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("xadd")
	}
	idArg, ok := cmd.arg(1)
	if !ok {
		return errWrongArity("xadd")
	}
	ms, seq, err := parseIDSpec(idArg)
	if err != nil {
		return err
	}

	rest := cmd.Args[2:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return errWrongArity("xadd")
	}
	fields := make([]stream.FieldValue, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		fields = append(fields, stream.FieldValue{Field: rest[i], Value: rest[i+1]})
	}

	id, err := d.Store.XAdd(key, ms, seq, fields)
	if err != nil {
		return mapStreamError(err)
	}
	return resp.WriteBulkString(w, []byte(id.String()))
}

// parseIDSpec parses XADD's id argument: "*" (fully auto), "ms-*" (auto
// seq), or "ms-seq" (explicit).
func parseIDSpec(s string) (stream.MsSpec, stream.SeqSpec, error) {
	if s == "*" {
		return stream.MsSpec{Auto: true}, stream.SeqSpec{Auto: true}, nil
	}

	msPart, seqPart, hasSeq := strings.Cut(s, "-")
	ms, err := parseMs(msPart)
	if err != nil {
		return stream.MsSpec{}, stream.SeqSpec{}, newError(KindInvalidStreamID, "ERR Invalid stream ID specified as stream command argument")
	}
	if !hasSeq {
		return stream.MsSpec{Value: ms}, stream.SeqSpec{Auto: true}, nil
	}
	if seqPart == "*" {
		return stream.MsSpec{Value: ms}, stream.SeqSpec{Auto: true}, nil
	}
	seq, err := parseMs(seqPart)
	if err != nil {
		return stream.MsSpec{}, stream.SeqSpec{}, newError(KindInvalidStreamID, "ERR Invalid stream ID specified as stream command argument")
	}
	return stream.MsSpec{Value: ms}, stream.SeqSpec{Value: seq}, nil
}

func parseMs(s string) (uint64, error) {
	var n uint64
	if s == "" {
		return 0, errInvalidNumber
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}

var errInvalidNumber = newError(KindInvalidStreamID, "ERR Invalid stream ID specified as stream command argument")

func mapStreamError(err error) error {
	if errors.Is(err, stream.ErrInvalidID) {
		return newError(KindInvalidStreamID, "ERR The ID specified in XADD is equal or smaller than the target stream top item")
	}
	return err
}

// doXRange implements XRANGE key start end.
func (d *Dispatcher) doXRange(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("xrange")
	}
	startArg, ok := cmd.arg(1)
	if !ok {
		return errWrongArity("xrange")
	}
	endArg, ok := cmd.arg(2)
	if !ok {
		return errWrongArity("xrange")
	}

	start, err := parseRangeBound(startArg)
	if err != nil {
		return err
	}
	end, err := parseRangeBound(endArg)
	if err != nil {
		return err
	}

	entries, err := d.Store.XRange(key, start, end)
	if err != nil {
		return err
	}
	return writeEntries(w, entries)
}

// parseRangeBound parses one XRANGE bound: "-"/"+" are unbounded (returns
// nil), anything else is a literal id.
func parseRangeBound(s string) (*stream.ID, error) {
	if s == "-" || s == "+" {
		return nil, nil
	}
	id, err := stream.ParseID(s)
	if err != nil {
		return nil, newError(KindInvalidStreamID, "ERR Invalid stream ID specified as stream command argument")
	}
	return &id, nil
}

func writeEntries(w io.Writer, entries []stream.Entry) error {
	if err := resp.WriteArrayHeader(w, len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := resp.WriteArrayHeader(w, 2); err != nil {
			return err
		}
		if err := resp.WriteBulkString(w, []byte(e.ID.String())); err != nil {
			return err
		}
		if err := resp.WriteArrayHeader(w, len(e.Fields)*2); err != nil {
			return err
		}
		for _, fv := range e.Fields {
			if err := resp.WriteBulkString(w, fv.Field); err != nil {
				return err
			}
			if err := resp.WriteBulkString(w, fv.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// doXRead implements XREAD [BLOCK ms] STREAMS key [key ...] id [id ...].
func (d *Dispatcher) doXRead(ctx context.Context, cmd *Command, w io.Writer) error {
	args := cmd.Args
	mode := stream.BlockMode{}

	i := 0
	for i < len(args) && !strings.EqualFold(string(args[i]), "STREAMS") {
		if strings.EqualFold(string(args[i]), "BLOCK") {
			i++
			raw, ok := cmd.arg(i)
			if !ok {
				return ErrSyntax
			}
			ms, err := parseMs(raw)
			if err != nil {
				return newError(KindNotInteger, storage.ErrNotInteger.Error())
			}
			mode.Blocking = true
			if ms == 0 {
				mode.Indefinite = true
			} else {
				mode.Timeout = time.Duration(ms) * time.Millisecond
			}
			i++
			continue
		}
		return ErrSyntax
	}
	if i >= len(args) {
		return ErrSyntax
	}
	i++ // skip STREAMS

	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return ErrSyntax
	}
	n := len(rest) / 2
	keys := rest[:n]
	ids := rest[n:]

	specs := make([]stream.ReadSpec, n)
	for j := 0; j < n; j++ {
		key := string(keys[j])
		idArg := string(ids[j])

		var after stream.ID
		if idArg == "$" {
			last, err := d.Store.StreamLastID(key)
			if err != nil {
				return err
			}
			after = last
		} else {
			id, err := stream.ParseID(idArg)
			if err != nil {
				return newError(KindInvalidStreamID, "ERR Invalid stream ID specified as stream command argument")
			}
			after = id
		}
		specs[j] = stream.ReadSpec{Key: key, After: after}
	}

	result, err := d.Store.XRead(ctx, specs, mode)
	if err != nil {
		return err
	}
	if result == nil {
		return resp.WriteBulkString(w, nil)
	}

	present := make([]stream.ReadSpec, 0, len(specs))
	for _, spec := range specs {
		if _, ok := result[spec.Key]; ok {
			present = append(present, spec)
		}
	}

	if err := resp.WriteArrayHeader(w, len(present)); err != nil {
		return err
	}
	for _, spec := range present {
		if err := resp.WriteArrayHeader(w, 2); err != nil {
			return err
		}
		if err := resp.WriteBulkString(w, []byte(spec.Key)); err != nil {
			return err
		}
		if err := writeEntries(w, result[spec.Key]); err != nil {
			return err
		}
	}
	return nil
}
