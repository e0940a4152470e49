package logger

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
)

/*
Log attribute key values. Generally shouldn't be used directly, use
appropriate "attribute constructor function" instead.
*/
const (
	ErrorKey   = "err"
	DataKey    = "data"
	TxIDKey    = "tx_id"
	AssetIDKey = "asset_id"
	AddressKey = "address"
	RoundKey   = "round"
	BatchIDKey = "batch_id"
	StageKey   = "stage"
)

/*
Error adds error to the log

	if err:= f(); err != nil {
		log.Error("calling f", logger.Error(err))
	}
*/
func Error(err error) slog.Attr {
	return slog.Any(ErrorKey, err)
}

/*
Data adds additional data field to the message.

Use of anonymous types is discouraged as in the ECS format the value is
nested under its type name.
*/
func Data(d any) slog.Attr {
	return slog.Any(DataKey, d)
}

// TxID is the Algorand transaction id (base32 string) the message is about.
func TxID(id string) slog.Attr {
	return slog.String(TxIDKey, id)
}

// AssetID is the index of the asset created by an issuance transaction.
func AssetID(id uint64) slog.Attr {
	return slog.Uint64(AssetIDKey, id)
}

// Address of the account (creator, manager,...) associated with the message.
func Address(addr string) slog.Attr {
	return slog.String(AddressKey, addr)
}

func Round(round uint64) slog.Attr {
	return slog.Uint64(RoundKey, round)
}

/*
BatchID should be added with logger.With() so that all the messages
logged while processing one mint batch can be correlated.
*/
func BatchID(id string) slog.Attr {
	return slog.String(BatchIDKey, id)
}

func Stage(name string) slog.Attr {
	return slog.String(StageKey, name)
}

type attrFormatter func(groups []string, a slog.Attr) slog.Attr

/*
chainAttrFmt combines attribute formatters into single func, nil values
are skipped. Returns nil when there is nothing to combine so the result can
be assigned to slog.HandlerOptions.ReplaceAttr directly.
*/
func chainAttrFmt(f ...attrFormatter) attrFormatter {
	var fns []attrFormatter
	for _, fn := range f {
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		for _, fn := range fns {
			a = fn(groups, a)
		}
		return a
	}
}

func formatTimeAttr(format string) attrFormatter {
	switch format {
	case "":
		return nil
	case "none":
		return func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	default:
		return func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t := a.Value.Time(); !t.IsZero() {
					a.Value = slog.StringValue(t.Format(format))
				}
			}
			return a
		}
	}
}

func formatDataAttrAsJSON(groups []string, a slog.Attr) slog.Attr {
	if a.Key == DataKey && a.Value.Kind() == slog.KindAny {
		if b, err := json.Marshal(a.Value.Any()); err == nil {
			a.Value = slog.StringValue(string(b))
		}
	}
	return a
}

/*
formatAttrCompact keeps only what an end user of the CLI cares about: the
message, level, error and the ids of the things that were minted.
*/
func formatAttrCompact(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey, slog.MessageKey, ErrorKey, TxIDKey, AssetIDKey:
		return a
	default:
		return slog.Attr{}
	}
}

/*
formatAttrECS is a "poor man's ECS handler" ie it formats some well known
attributes according to the ECS spec.
*/
func formatAttrECS(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.MessageKey:
		return slog.String("message", a.Value.String())
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			trimSource(src)
			return slog.Group(
				"log",
				slog.Group(
					"origin",
					slog.String("function", src.Function),
					slog.Group("file", slog.String("name", src.File), slog.Int("line", src.Line)),
				),
			)
		}
	case ErrorKey:
		return slog.Group("error", slog.Any("message", a.Value.Any()))
	case TxIDKey:
		return slog.Group("transaction", slog.String("id", a.Value.String()))
	case DataKey:
		// the value is nested under it's type name so that `data:"str"` and `data:42`
		// do not conflict in the index.
		return slog.Group(DataKey, slog.Any(dataName(a.Value), a.Value))
	}
	return a
}

/*
dataName returns name of the data type of "v", suitable to act as a "namespace" for
the value in ECS format.
*/
func dataName(v slog.Value) string {
	switch v.Kind() {
	case slog.KindAny, slog.KindLogValuer:
		rt := reflect.TypeOf(v.Any())
		// strip leading "*" of pointer types and replace "." with "_"
		return strings.ReplaceAll(strings.TrimLeft(rt.String(), "*"), ".", "_")
	default:
		return v.Kind().String()
	}
}

// trimSource leaves only "type.func" part of the function name in "src".
func trimSource(src *slog.Source) {
	_, src.Function = filepath.Split(src.Function)
	if s := strings.SplitAfterN(src.Function, ".", 2); len(s) == 2 {
		src.Function = s[1]
	}
}
