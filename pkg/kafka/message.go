package kafka

import "time"

// Message is the transport-agnostic unit handed to the producer.
// Key selects the partition, so events sharing a key stay ordered.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}
