package logs

import "time"

// LogAndMeasureExecutionTime logs the start and end of functionName at debug
// level, reporting how long it took to run. Call the returned func when the
// measured work completes, typically via defer.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
