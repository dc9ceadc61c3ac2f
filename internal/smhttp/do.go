package smhttp

import (
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"github.com/bitwarden/sm-action/logger"
)

// Do wraps the http.Client's Do method with debug logging and optional
// connection timing. Request and response bodies are never logged: they
// carry credentials and encrypted secrets.
func Do(l logger.Logger, client *http.Client, req *http.Request, opts ...DoOption) (*http.Response, error) {
	var cfg doConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &tracer{Logger: l}
	if cfg.traceHTTP {
		req = traceHTTPRequest(req, t)
		t.Start()
	}

	ts := time.Now()
	l.Debug("%s %s", req.Method, req.URL)

	resp, err := client.Do(req)
	if err != nil {
		if cfg.traceHTTP {
			t.Error("HTTP Timing Trace")
		}
		return nil, err
	}

	l.WithFields(
		logger.StringField("proto", resp.Proto),
		logger.IntField("status", resp.StatusCode),
		logger.DurationField("Δ", time.Since(ts)),
	).Debug("↳ %s %s", req.Method, req.URL)

	if cfg.traceHTTP {
		t.Debug("HTTP Timing Trace")
	}

	return resp, nil
}

type DoOption = func(*doConfig)

type doConfig struct {
	traceHTTP bool
}

func WithTraceHTTP(t bool) DoOption { return func(c *doConfig) { c.traceHTTP = t } }

type tracer struct {
	startTime time.Time
	logger.Logger
}

func (t *tracer) Start() {
	t.startTime = time.Now()
}

func (t *tracer) LogTiming(event string) {
	t.Logger = t.Logger.WithFields(logger.DurationField(event, time.Since(t.startTime)))
}

func (t *tracer) LogField(key, value string) {
	t.Logger = t.Logger.WithFields(logger.StringField(key, value))
}

func traceHTTPRequest(req *http.Request, t *tracer) *http.Request {
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			t.LogTiming("gotConn")
			t.LogField("reused", strconv.FormatBool(info.Reused))
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			t.LogTiming("dnsDone")
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			t.LogTiming("tlsHandshakeDone")
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			t.LogTiming("wroteRequest")
		},
		GotFirstResponseByte: func() {
			t.LogTiming("gotFirstResponseByte")
		},
	}

	t.LogField("uri", req.URL.String())
	t.LogField("method", req.Method)
	return req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
}
