package transport

import (
	"context"

	"github.com/vincentbai/visionui-beacon/internal/logger"
)

// Dispatcher picks the delivery channel for each payload: the beacon channel
// whenever one is configured, the keepalive request otherwise.
type Dispatcher struct {
	beacon    *BeaconSender
	keepalive *KeepaliveSender
	log       logger.Logger
}

// Options configure NewDispatcher.
type Options struct {
	// Beacon enables the exit-safe background channel.
	Beacon     bool
	BufferSize int
}

func NewDispatcher(sender Sender, opts Options, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	d := &Dispatcher{
		keepalive: NewKeepaliveSender(sender, 0, log),
		log:       log,
	}
	if opts.Beacon {
		d.beacon = NewBeaconSender(sender, opts.BufferSize, log)
	}
	return d
}

// Channel names the channel payloads currently go through.
func (d *Dispatcher) Channel() string {
	if d.beacon != nil {
		return ChannelBeacon
	}
	return ChannelKeepalive
}

// Dispatch starts delivery of body and returns immediately. The outcome is
// never observed by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) {
	if d.beacon != nil {
		if d.beacon.Enqueue(body) {
			metricDispatched.WithLabelValues(ChannelBeacon).Inc()
			return
		}
		metricDropped.Inc()
		d.log.Debug("Beacon queue rejected payload", logger.Int("bytes", len(body)))
		return
	}
	metricDispatched.WithLabelValues(ChannelKeepalive).Inc()
	d.keepalive.Go(ctx, body)
}

// Close waits for every accepted payload to be attempted.
func (d *Dispatcher) Close() {
	if d.beacon != nil {
		d.beacon.Close()
	}
	d.keepalive.Wait()
}
