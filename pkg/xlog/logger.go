package xlog

import (
	"log"
	"os"
)

var (
	logger = log.New(os.Stdout, "[MESHGW] ", log.LstdFlags)
	debug  = os.Getenv("LOG_DEBUG") == "1" || os.Getenv("LOG_DEBUG") == "true"
)

func Infof(format string, v ...interface{}) {
	logger.Printf("[INFO] "+format, v...)
}

func Errorf(format string, v ...interface{}) {
	logger.Printf("[ERROR] "+format, v...)
}

func Warnf(format string, v ...interface{}) {
	logger.Printf("[WARN] "+format, v...)
}

func Debugf(format string, v ...interface{}) {
	if debug {
		logger.Printf("[DEBUG] "+format, v...)
	}
}
