package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "campusbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultSlotDuration = 1 * time.Hour

	DefaultLockTTL          = 10 * time.Second
	DefaultCreateMaxRetries = 3

	DefaultJWTTTL = 30 * time.Minute

	DefaultKafkaBookingTopic = "booking-events"

	DefaultCORSAllowedOrigin = "*"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// DefaultFacilities is the campus facility whitelist used when FACILITIES
// is not set. The set is immutable for the process lifetime.
var DefaultFacilities = []string{"Gym", "Basketball", "Badminton", "Table Tennis"}
