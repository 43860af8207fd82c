// Package redissub provides a reconnecting Redis pub/sub subscriber
// with a typed event stream.
//
// The subscriber connects to a Redis server, issues subscription commands
// and turns every server push into a typed Event. When the connection
// drops it reconnects with backoff and replays all registered
// subscriptions before resuming, so the consumer sees one continuous
// stream across connection lifetimes.
//
// Basic usage:
//
//	sub, err := redissub.New("localhost:6379")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	if err := sub.Subscribe("news"); err != nil {
//		log.Fatal(err)
//	}
//
//	events, err := sub.Listen(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	for event := range events {
//		switch e := event.(type) {
//		case redissub.Message:
//			fmt.Printf("%s: %s\n", e.Channel, e.Payload)
//		case redissub.Disconnected:
//			fmt.Printf("disconnected: %v\n", e.Cause)
//		}
//	}
//
// The library supports:
//
//   - Channel and pattern subscriptions (SUBSCRIBE, PSUBSCRIBE)
//   - Automatic reconnection with capped quadratic backoff
//   - Subscription replay after every reconnect
//   - Incremental RESP decoding across arbitrary packet boundaries
//   - Lazy, pull-driven event delivery
//   - Pluggable structured logging and metrics
//
// For more examples and advanced usage, see the examples/ directory.
package redissub
