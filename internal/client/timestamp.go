package client

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

var ErrUnparseableTimestamp = errors.New("unparseable timestamp")

// earliestTimestamp rejects zero values and numbers in the wrong unit,
// which would otherwise land in 1970.
var earliestTimestamp = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseTimestamp accepts the timestamp shapes servers have been seen to
// send: RFC 3339 strings, epoch milliseconds, {"seconds","nanos"} objects
// and {"_seconds","_nanoseconds"} objects. A missing value or JSON null
// yields nil without error. Values before 2000 are rejected.
func ParseTimestamp(raw []byte) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid json", ErrUnparseableTimestamp)
	}

	var (
		t   time.Time
		err error
	)
	res := gjson.ParseBytes(raw)
	switch {
	case res.Type == gjson.Null:
		return nil, nil
	case res.Type == gjson.String:
		t, err = time.Parse(time.RFC3339Nano, res.Str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableTimestamp, err)
		}
	case res.Type == gjson.Number:
		ms, err := strconv.ParseInt(res.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: epoch millis %s", ErrUnparseableTimestamp, res.Raw)
		}
		t = time.UnixMilli(ms).UTC()
	case res.IsObject():
		t, err = parseSecondsObject(res)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unexpected %s", ErrUnparseableTimestamp, res.Type)
	}

	if t.Before(earliestTimestamp) {
		return nil, fmt.Errorf("%w: %s is implausibly old", ErrUnparseableTimestamp, t.Format(time.RFC3339))
	}
	return &t, nil
}

func parseSecondsObject(res gjson.Result) (time.Time, error) {
	secs := res.Get("seconds")
	if !secs.Exists() {
		secs = res.Get("_seconds")
	}
	nanos := res.Get("nanos")
	if !nanos.Exists() {
		nanos = res.Get("_nanoseconds")
	}

	s, err := intField(secs)
	if err != nil || !secs.Exists() {
		return time.Time{}, fmt.Errorf("%w: bad seconds %q", ErrUnparseableTimestamp, secs.Raw)
	}
	var n int64
	if nanos.Exists() {
		n, err = intField(nanos)
		if err != nil || n < 0 || n >= int64(time.Second) {
			return time.Time{}, fmt.Errorf("%w: bad nanos %q", ErrUnparseableTimestamp, nanos.Raw)
		}
	}
	return time.Unix(s, n).UTC(), nil
}

// intField reads an integer sent either as a JSON number or, as protobuf
// JSON does for int64, a decimal string.
func intField(r gjson.Result) (int64, error) {
	switch r.Type {
	case gjson.Number:
		return strconv.ParseInt(r.Raw, 10, 64)
	case gjson.String:
		return strconv.ParseInt(r.Str, 10, 64)
	default:
		return 0, fmt.Errorf("not an integer: %s", r.Type)
	}
}
