package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency  = metric.NewHistogram("1m1s")
	RecvPackets      = metric.NewCounter("10s1s")
	SentPackets      = metric.NewCounter("10s1s")
	RecvBytes        = metric.NewCounter("10s1s")
	SentBytes        = metric.NewCounter("10s1s")
	DroppedPackets   = metric.NewCounter("1m10s")
	DroppedEntries   = metric.NewCounter("1m10s")
	SendFailures     = metric.NewCounter("1m10s")
	FullUpdates      = metric.NewCounter("5m10s")
	TriggeredUpdates = metric.NewCounter("5m10s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("ripd:RecvPacket/s", RecvPackets)
	expvar.Publish("ripd:SentPacket/s", SentPackets)
	expvar.Publish("ripd:RecvBytes/s", RecvBytes)
	expvar.Publish("ripd:SentBytes/s", SentBytes)
	expvar.Publish("ripd:DroppedPackets", DroppedPackets)
	expvar.Publish("ripd:DroppedEntries", DroppedEntries)
	expvar.Publish("ripd:SendFailures", SendFailures)
	expvar.Publish("ripd:FullUpdates", FullUpdates)
	expvar.Publish("ripd:TriggeredUpdates", TriggeredUpdates)
	expvar.Publish("ripd:DispatchLatency (µs)", DispatchLatency)
}
