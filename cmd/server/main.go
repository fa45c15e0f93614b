package main

import (
	"context"

	"campusbook/internal/bookings/events"
	bookinghandler "campusbook/internal/bookings/handler"
	bookingrepo "campusbook/internal/bookings/repository"
	bookingservice "campusbook/internal/bookings/service"
	bookingvalidator "campusbook/internal/bookings/validator"
	userhandler "campusbook/internal/users/handler"
	userrepo "campusbook/internal/users/repository"
	userservice "campusbook/internal/users/service"
	"campusbook/pkg/app"
	"campusbook/pkg/auth"
	"campusbook/pkg/config"
	"campusbook/pkg/kafka"
	"campusbook/pkg/token"
)

const serviceName = "campusbook"

func main() {
	cfg := config.Load(serviceName)
	cfg.SetMongo()

	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingrepo.NewSlotLockRepository(cfg)
	userRepo := userrepo.NewMongoUserRepository(cfg)

	indexCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()
	if err := lockRepo.EnsureIndexes(indexCtx); err != nil {
		cfg.Log.Fatal("Failed to create slot lock indexes", "error", err)
	}
	if err := userRepo.EnsureIndexes(indexCtx); err != nil {
		cfg.Log.Fatal("Failed to create user indexes", "error", err)
	}

	sealer, err := token.NewSealer(cfg.TokenSealKey)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize token sealer", "error", err)
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	publisher := events.NewNopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaBookingTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}()
		publisher = events.NewKafkaPublisher(producer, cfg.Log)
	}

	bookingSvc := bookingservice.NewBookingService(
		bookingRepo,
		lockRepo,
		bookingvalidator.NewBookingValidator(cfg.Log, cfg.SlotDuration),
		sealer,
		publisher,
		cfg,
	)
	userSvc := userservice.NewUserService(userRepo, auth.NewBcryptHasher(), jwtManager, sealer, cfg)

	application := app.NewApplication(cfg)
	application.SetApp(
		bookinghandler.NewBookingHandler(bookingSvc, jwtManager, cfg.Log),
		userhandler.NewUserHandler(userSvc, cfg.Log),
	)
	application.Run()
}
