package events

import "fmt"

// Open picks the publisher named by driver: "nats", "amqp" or "" for none.
func Open(driver, natsURL, amqpURL string) (Publisher, error) {
	switch driver {
	case "", "none":
		return Noop{}, nil
	case "nats":
		return NewNATSPublisher(natsURL)
	case "amqp", "rabbitmq":
		return NewAMQPPublisher(amqpURL)
	default:
		return nil, fmt.Errorf("unknown events driver %q", driver)
	}
}
