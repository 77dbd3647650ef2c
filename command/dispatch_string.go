package command

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mickamy/kvstored/resp"
	"github.com/mickamy/kvstored/storage"
)

// doSet implements SET key value [NX|XX] [GET] [EX s|PX ms|EXAT s|PXAT ms|KEEPTTL].
func (d *Dispatcher) doSet(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("set")
	}
	value, ok := cmd.arg(1)
	if !ok {
		return errWrongArity("set")
	}

	mode := storage.WriteNormal
	returnOld := false
	expire := storage.Expire{}

	for i := 2; i < len(cmd.Args); i++ {
		opt := strings.ToUpper(string(cmd.Args[i]))
		switch opt {
		case "NX":
			mode = storage.WriteIfAbsent
		case "XX":
			mode = storage.WriteIfExists
		case "GET":
			returnOld = true
		case "KEEPTTL":
			expire = storage.Expire{Mode: storage.ExpireKeep}
		case "EX", "PX", "EXAT", "PXAT":
			i++
			raw, ok := cmd.arg(i)
			if !ok {
				return ErrSyntax
			}
			at, err := resolveExpireOption(opt, raw, d.Store.Now())
			if err != nil {
				return err
			}
			expire = storage.Expire{Mode: storage.ExpireAt, At: at}
		default:
			return ErrSyntax
		}
	}

	old, hadOld, wrote, err := d.Store.Set(key, []byte(value), mode, returnOld, expire)
	if err != nil {
		return err
	}

	if returnOld {
		if !hadOld {
			return resp.WriteBulkString(w, nil)
		}
		return resp.WriteBulkString(w, old)
	}
	if !wrote {
		return resp.WriteBulkString(w, nil)
	}
	return resp.WriteSimpleString(w, "OK")
}

// resolveExpireOption computes the absolute deadline for one of
// EX/PX/EXAT/PXAT given now, per spec.md §4.5.
func resolveExpireOption(opt, raw string, now time.Time) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, newError(KindNotInteger, storage.ErrNotInteger.Error())
	}

	switch opt {
	case "EX":
		return now.Add(time.Duration(n) * time.Second), nil
	case "PX":
		return now.Add(time.Duration(n) * time.Millisecond), nil
	case "EXAT":
		at := time.Unix(n, 0)
		if !at.After(now) {
			return time.Time{}, errTimeInPast
		}
		return at, nil
	case "PXAT":
		at := time.UnixMilli(n)
		if !at.After(now) {
			return time.Time{}, errTimeInPast
		}
		return at, nil
	}
	return time.Time{}, ErrSyntax
}

func (d *Dispatcher) doGet(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("get")
	}
	value, ok, err := d.Store.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return resp.WriteBulkString(w, nil)
	}
	return resp.WriteBulkString(w, value)
}

func (d *Dispatcher) doGetDel(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("getdel")
	}
	value, ok, err := d.Store.GetDel(key)
	if err != nil {
		return err
	}
	if !ok {
		return resp.WriteBulkString(w, nil)
	}
	return resp.WriteBulkString(w, value)
}

// doGetEx implements GETEX key [EX s|PX ms|EXAT s|PXAT ms|PERSIST].
func (d *Dispatcher) doGetEx(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("getex")
	}

	expire := storage.Expire{}
	if len(cmd.Args) > 1 {
		opt := strings.ToUpper(string(cmd.Args[1]))
		switch opt {
		case "PERSIST":
			expire = storage.Expire{Mode: storage.ExpireNone}
		case "EX", "PX", "EXAT", "PXAT":
			raw, ok := cmd.arg(2)
			if !ok {
				return ErrSyntax
			}
			at, err := resolveExpireOption(opt, raw, d.Store.Now())
			if err != nil {
				return err
			}
			expire = storage.Expire{Mode: storage.ExpireAt, At: at}
		default:
			return ErrSyntax
		}
	}

	value, ok, err := d.Store.GetEx(key, expire)
	if err != nil {
		return err
	}
	if !ok {
		return resp.WriteBulkString(w, nil)
	}
	return resp.WriteBulkString(w, value)
}

func (d *Dispatcher) doDel(cmd *Command, w io.Writer) error {
	if len(cmd.Args) == 0 {
		return errWrongArity("del")
	}
	keys := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		keys[i] = string(a)
	}
	return resp.WriteInteger(w, int64(d.Store.Del(keys...)))
}

func (d *Dispatcher) doType(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("type")
	}
	return resp.WriteSimpleString(w, d.Store.Type(key).String())
}

func (d *Dispatcher) doKeys(cmd *Command, w io.Writer) error {
	pattern, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("keys")
	}
	if pattern != "*" {
		return newError(KindSyntax, "ERR KEYS only supports the '*' pattern")
	}

	keys := d.Store.Keys()
	if err := resp.WriteArrayHeader(w, len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := resp.WriteBulkString(w, []byte(k)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) doIncrBy(cmd *Command, w io.Writer, delta int64) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("incr")
	}
	n, err := d.Store.IncrBy(key, delta)
	if err != nil {
		return err
	}
	return resp.WriteInteger(w, n)
}

func (d *Dispatcher) doIncrByArg(cmd *Command, w io.Writer, sign int64) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("incrby")
	}
	raw, ok := cmd.arg(1)
	if !ok {
		return errWrongArity("incrby")
	}
	delta, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return newError(KindNotInteger, storage.ErrNotInteger.Error())
	}
	n, err := d.Store.IncrBy(key, sign*delta)
	if err != nil {
		return err
	}
	return resp.WriteInteger(w, n)
}

func (d *Dispatcher) doIncrByFloat(cmd *Command, w io.Writer) error {
	key, ok := cmd.arg(0)
	if !ok {
		return errWrongArity("incrbyfloat")
	}
	raw, ok := cmd.arg(1)
	if !ok {
		return errWrongArity("incrbyfloat")
	}
	delta, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return newError(KindNotFloat, storage.ErrNotFloat.Error())
	}
	n, err := d.Store.IncrByFloat(key, delta)
	if err != nil {
		return err
	}
	return resp.WriteBulkString(w, []byte(strconv.FormatFloat(n, 'f', -1, 64)))
}
