package middleware

import (
	"encoding/json"
	"time"

	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

// AccessLog defines the structure of per-connection access logs
type AccessLog struct {
	Timestamp  time.Time `json:"ts"`
	ClientIP   string    `json:"client_ip"`
	Protocol   string    `json:"protocol"`         // header, http, tcp, tls
	Target     string    `json:"target,omitempty"` // resolved upstream
	HeaderName string    `json:"header_name,omitempty"`
	HeaderPort uint16    `json:"header_port,omitempty"`
	Status     int       `json:"status,omitempty"` // HTTP only
	DurationMs int64     `json:"duration_ms"`
	BytesIn    int64     `json:"bytes_in"`
	BytesOut   int64     `json:"bytes_out"`
	Error      string    `json:"error,omitempty"`
}

type Logger struct {
	logChan chan *AccessLog
}

var Instance *Logger

func InitLogger(bufferSize int) {
	Instance = &Logger{
		logChan: make(chan *AccessLog, bufferSize),
	}
	go Instance.startConsumer()
}

// Log queues an access-log entry without blocking the connection path.
func (l *Logger) Log(entry *AccessLog) {
	if l == nil {
		return
	}
	select {
	case l.logChan <- entry:
	default:
		// Buffer full, drop log to prevent blocking main flow
		xlog.Warnf("Access log buffer full, dropping log")
	}
}

func (l *Logger) startConsumer() {
	batch := make([]*AccessLog, 0, 100)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.logChan:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *Logger) flush(logs []*AccessLog) {
	for _, entry := range logs {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		xlog.Infof("access %s", string(data))
	}
}
