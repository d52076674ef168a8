package util

import (
	"github.com/sirupsen/logrus"
)

// Debug is the highest DPrintf level that is emitted.
var Debug uint64 = 0

// Log is the logger DPrintf writes to. Commands may swap its formatter or
// output; tests leave it alone.
var Log = logrus.New()

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		Log.WithField("dlevel", level).Debugf(format, a...)
	}
}

// SetDebug sets the DPrintf threshold and raises the logger to debug
// level when anything is to be printed.
func SetDebug(level uint64) {
	Debug = level
	if level > 0 {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func Max(n uint64, m uint64) uint64 {
	if n > m {
		return n
	}
	return m
}

// returns n+m>=2^64 (if it were computed at infinite precision)
func SumOverflows(n uint64, m uint64) bool {
	return n+m < n
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}
