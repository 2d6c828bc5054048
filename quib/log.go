package quib

import (
	"fmt"
	"log"
	"os"
)

// Logging convention in the `quib` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on normal
//     operation, with the exception of one time (infrequent) initialization data
//     this includes:
//     - descriptor fallbacks to opaque
//     - abnormal exits
// Debug (glog.V(2)):
//     key events for trace debugging
//     this includes:
//     - invalidation and recomputation regions with quib labels that can be
//       used to filter
//     - frequent events - e.g. get, invalidate, override -
//       should be summarized rather than logged per element

const LogLevelUrgent = 0
const LogLevelInfo = 50
const LogLevelDebug = 100

var GlobalLogLevel = LogLevelUrgent

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)

func Logger() *log.Logger {
	return logger
}

type LogFunction func(string, ...any)

func LogFn(level int, tag string) LogFunction {
	return func(format string, a ...any) {
		if level <= GlobalLogLevel {
			m := fmt.Sprintf(format, a...)
			Logger().Printf("%s: %s\n", tag, m)
		}
	}
}

func SubLogFn(level int, log LogFunction, tag string) LogFunction {
	return func(format string, a ...any) {
		if level <= GlobalLogLevel {
			m := fmt.Sprintf(format, a...)
			log("%s: %s", tag, m)
		}
	}
}
