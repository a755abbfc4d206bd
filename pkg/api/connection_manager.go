package api

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"keyword-agent/pkg/logger"
)

// ConnectionConfig holds settings for the shared fasthttp client
type ConnectionConfig struct {
	MaxConnsPerHost     int           `json:"max_conns_per_host"`
	MaxIdleConnDuration time.Duration `json:"max_idle_conn_duration"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	MaxResponseBodySize int           `json:"max_response_body_size"`
}

// DefaultConnectionConfig suits a handful of sequential calls per run.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxConnsPerHost:     16,
		MaxIdleConnDuration: 90 * time.Second,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		MaxResponseBodySize: 8 << 20,
	}
}

// ConnectionManager owns the fasthttp client shared by all upstream clients.
type ConnectionManager struct {
	config ConnectionConfig
	client *fasthttp.Client
	log    *logger.Logger
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	client := &fasthttp.Client{
		Name:                     "keyword-agent",
		MaxConnsPerHost:          config.MaxConnsPerHost,
		MaxIdleConnDuration:      config.MaxIdleConnDuration,
		ReadTimeout:              config.ReadTimeout,
		WriteTimeout:             config.WriteTimeout,
		MaxResponseBodySize:      config.MaxResponseBodySize,
		NoDefaultUserAgentHeader: true,
	}

	return &ConnectionManager{
		config: config,
		client: client,
		log:    logger.GetLogger().WithField("component", "connection_manager"),
	}
}

// Do executes req bounded by timeout and by the context deadline, whichever
// comes first. fasthttp has no context support, so cancellation is only
// observed before the request is sent.
func (cm *ConnectionManager) Do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	return cm.client.DoTimeout(req, resp, timeout)
}

// Close releases idle connections.
func (cm *ConnectionManager) Close() {
	cm.log.Debug("Closing idle upstream connections")
	cm.client.CloseIdleConnections()
}

// copyBody detaches the body from a pooled response.
func copyBody(resp *fasthttp.Response) []byte {
	body := resp.Body()
	out := make([]byte, len(body))
	copy(out, body)
	return out
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
