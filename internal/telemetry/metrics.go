package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/dmitrijs2005/gophdrop"
)

// Command results recorded on CommandsTotal.
const (
	ResultOK           = "ok"
	ResultFailed       = "failed"
	ResultUnauthorized = "unauthorized"
	ResultProtocol     = "protocol_error"
	ResultIO           = "io_error"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Connection metrics
	ConnectionsTotal  metric.Int64Counter
	ActiveConnections metric.Int64UpDownCounter
	HandshakeFailures metric.Int64Counter

	// Command metrics
	CommandsTotal   metric.Int64Counter
	CommandDuration metric.Float64Histogram

	// Transfer metrics
	BytesReceived       metric.Int64Counter
	BytesSent           metric.Int64Counter
	IncompleteTransfers metric.Int64Counter

	// Worker pool metrics
	TasksSubmitted metric.Int64Counter
	TasksRejected  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance bound to the global meter
// provider, initializing it if necessary.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider())
	})
	return metrics
}

// NewMetrics creates every instrument from mp. Instrument creation errors are
// ignored; the API returns usable no-op instruments in that case.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(meterName)

	m := &Metrics{}

	m.ConnectionsTotal, _ = meter.Int64Counter(
		"gophdrop.connections.total",
		metric.WithDescription("Total number of accepted connections"),
		metric.WithUnit("{connection}"),
	)

	m.ActiveConnections, _ = meter.Int64UpDownCounter(
		"gophdrop.connections.active",
		metric.WithDescription("Number of connections currently being served"),
		metric.WithUnit("{connection}"),
	)

	m.HandshakeFailures, _ = meter.Int64Counter(
		"gophdrop.connections.handshake_failures.total",
		metric.WithDescription("Total number of failed TLS handshakes"),
		metric.WithUnit("{connection}"),
	)

	m.CommandsTotal, _ = meter.Int64Counter(
		"gophdrop.commands.total",
		metric.WithDescription("Total number of commands by name and result"),
		metric.WithUnit("{command}"),
	)

	m.CommandDuration, _ = meter.Float64Histogram(
		"gophdrop.commands.duration",
		metric.WithDescription("Duration of command handling"),
		metric.WithUnit("ms"),
	)

	m.BytesReceived, _ = meter.Int64Counter(
		"gophdrop.transfer.received.bytes",
		metric.WithDescription("File bytes received from clients"),
		metric.WithUnit("By"),
	)

	m.BytesSent, _ = meter.Int64Counter(
		"gophdrop.transfer.sent.bytes",
		metric.WithDescription("File bytes sent to clients"),
		metric.WithUnit("By"),
	)

	m.IncompleteTransfers, _ = meter.Int64Counter(
		"gophdrop.transfer.incomplete.total",
		metric.WithDescription("Uploads and downloads that ended before the declared size"),
		metric.WithUnit("{transfer}"),
	)

	m.TasksSubmitted, _ = meter.Int64Counter(
		"gophdrop.pool.tasks.submitted.total",
		metric.WithDescription("Total number of tasks handed to the worker pool"),
		metric.WithUnit("{task}"),
	)

	m.TasksRejected, _ = meter.Int64Counter(
		"gophdrop.pool.tasks.rejected.total",
		metric.WithDescription("Total number of tasks refused by a stopped worker pool"),
		metric.WithUnit("{task}"),
	)

	return m
}

// RecordCommand counts one finished command and its duration.
func (m *Metrics) RecordCommand(ctx context.Context, command, result string, elapsedMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("result", result),
	)
	m.CommandsTotal.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, elapsedMs, attrs)
}
