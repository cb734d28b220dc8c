package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	availabilityapp "opalestay/internal/app/handlers/availability"
	bookingapp "opalestay/internal/app/handlers/booking"
	"opalestay/internal/app/handlers/notifications"
	pricingapp "opalestay/internal/app/handlers/pricing"
	"opalestay/internal/app/middleware"
	"opalestay/internal/app/outbox"
	"opalestay/internal/app/policies"
	"opalestay/internal/app/queries"
	"opalestay/internal/app/schedule"
	pricingsvc "opalestay/internal/app/services/pricing"
	"opalestay/internal/app/uow"
	"opalestay/internal/infra/broker/kafka"
	cachememory "opalestay/internal/infra/cache/memory"
	cacheredis "opalestay/internal/infra/cache/redis"
	"opalestay/internal/infra/config"
	mongostore "opalestay/internal/infra/db/mongo"
	ginserver "opalestay/internal/infra/http/gin"
	"opalestay/internal/infra/inbox"
	"opalestay/internal/infra/mail"
	"opalestay/internal/infra/obs"
	infraoutbox "opalestay/internal/infra/outbox"
	"opalestay/internal/infra/security"
	"opalestay/internal/infra/storage/memory"
	"opalestay/internal/infra/validation"
)

const maintenanceInterval = time.Minute

type application struct {
	handlers    ginserver.Handlers
	health      obs.HealthHandlers
	commands    commands.Bus
	queries     queries.Bus
	maintenance *schedule.Scheduler
	runners     map[string]func(context.Context) error
	closers     []func(context.Context) error
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

// infrastructure is what the storage mode provides to the application layer.
type infrastructure struct {
	factory     uow.UoWFactory
	idempotency middleware.IdempotencyStore
	outbox      outbox.Outbox
	// sink receives events in memory mode; mongo mode delivers them through Kafka.
	setSink func(sink kafka.EventSink)
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		runners:     map[string]func(context.Context) error{},
		health:      obs.HealthHandlers{Checks: map[string]obs.Check{}},
		maintenance: &schedule.Scheduler{Logger: logger},
	}

	infra, err := buildStorage(ctx, cfg, logger, app)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	cache, err := buildCache(cfg, app)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	tokens, err := security.NewActionTokens(cfg.ActionTokenSecret, cfg.ActionTokenTTL)
	if err != nil {
		app.close(logger)
		return nil, err
	}

	var notifier policies.Notifier = mail.LogNotifier{Logger: logger}
	if cfg.MailEnabled() {
		notifier = mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, logger)
	}
	bookingNotifier := &notifications.BookingNotifier{
		Notifier:   notifier,
		Tokens:     tokens,
		BaseURL:    cfg.PublicBaseURL,
		OwnerEmail: cfg.OwnerEmail,
		Logger:     logger,
	}
	infra.setSink(bookingNotifier)

	resolver := &pricingsvc.Resolver{UoWFactory: infra.factory, Cache: cache, TTL: cfg.PriceCacheTTL, Logger: logger}
	now := func() time.Time { return time.Now().UTC() }
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	blockHandler := &availabilityapp.BlockRangeHandler{UoWFactory: infra.factory, Outbox: infra.outbox, Encoder: encoder, Now: now, NewID: uuid.NewString, Logger: logger}
	unblockHandler := &availabilityapp.UnblockRangeHandler{UoWFactory: infra.factory, Outbox: infra.outbox, Encoder: encoder, Now: now, NewID: uuid.NewString, Logger: logger}
	deletePeriodHandler := &availabilityapp.DeleteBlockedPeriodHandler{UoWFactory: infra.factory, Logger: logger}
	commands.RegisterHandler[availabilityapp.BlockRangeCommand, dto.BlockedPeriod](commandBus, blockHandler)
	commands.RegisterHandler[availabilityapp.UnblockRangeCommand, *dto.UnblockResult](commandBus, unblockHandler)
	commands.RegisterHandler[availabilityapp.DeleteBlockedPeriodCommand, dto.BlockedPeriod](commandBus, deletePeriodHandler)

	rules := &pricingapp.RulesHandler{UoWFactory: infra.factory, Now: now, NewID: uuid.NewString, Logger: logger}
	commands.RegisterHandler[pricingapp.CreatePriceRuleCommand, dto.PriceRule](commandBus, commands.HandlerFunc[pricingapp.CreatePriceRuleCommand, dto.PriceRule](rules.Create))
	commands.RegisterHandler[pricingapp.UpdatePriceRuleCommand, dto.PriceRule](commandBus, commands.HandlerFunc[pricingapp.UpdatePriceRuleCommand, dto.PriceRule](rules.Update))
	commands.RegisterHandler[pricingapp.DeletePriceRuleCommand, dto.PriceRule](commandBus, commands.HandlerFunc[pricingapp.DeletePriceRuleCommand, dto.PriceRule](rules.Delete))
	commands.RegisterHandler[pricingapp.TogglePriceRuleCommand, dto.PriceRule](commandBus, commands.HandlerFunc[pricingapp.TogglePriceRuleCommand, dto.PriceRule](rules.Toggle))

	requestHandler := &bookingapp.RequestBookingsHandler{UoWFactory: infra.factory, Prices: resolver, Outbox: infra.outbox, Encoder: encoder, Now: now, NewID: uuid.NewString, Logger: logger}
	transitions := &bookingapp.TransitionsHandler{UoWFactory: infra.factory, Outbox: infra.outbox, Encoder: encoder, Now: now, Logger: logger}
	actionHandler := &bookingapp.BookingActionHandler{Tokens: tokens, Transitions: transitions, Logger: logger}
	commands.RegisterHandler[bookingapp.RequestBookingsCommand, *dto.Checkout](commandBus, requestHandler)
	commands.RegisterHandler[bookingapp.AcceptBookingCommand, dto.Booking](commandBus, commands.HandlerFunc[bookingapp.AcceptBookingCommand, dto.Booking](transitions.Accept))
	commands.RegisterHandler[bookingapp.RefuseBookingCommand, dto.Booking](commandBus, commands.HandlerFunc[bookingapp.RefuseBookingCommand, dto.Booking](transitions.Refuse))
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, dto.Booking](commandBus, commands.HandlerFunc[bookingapp.ConfirmBookingCommand, dto.Booking](transitions.Confirm))
	commands.RegisterHandler[bookingapp.CancelBookingCommand, dto.Booking](commandBus, commands.HandlerFunc[bookingapp.CancelBookingCommand, dto.Booking](transitions.Cancel))
	commands.RegisterHandler[bookingapp.BookingActionCommand, dto.Booking](commandBus, actionHandler)

	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](queryBus, &availabilityapp.CheckAvailabilityHandler{UoWFactory: infra.factory})
	queries.RegisterHandler[availabilityapp.DisabledDatesQuery, dto.DisabledDates](queryBus, &availabilityapp.DisabledDatesHandler{UoWFactory: infra.factory, Now: now, Logger: logger})
	queries.RegisterHandler[availabilityapp.ListBlockedPeriodsQuery, dto.BlockedPeriodCollection](queryBus, &availabilityapp.ListBlockedPeriodsHandler{UoWFactory: infra.factory})
	queries.RegisterHandler[pricingapp.PriceForDateQuery, dto.NightPrice](queryBus, &pricingapp.PriceForDateHandler{Prices: resolver})
	queries.RegisterHandler[pricingapp.PriceForRangeQuery, dto.RangePrice](queryBus, &pricingapp.PriceForRangeHandler{Prices: resolver})
	queries.RegisterHandler[pricingapp.ListPriceRulesQuery, dto.PriceRuleCollection](queryBus, queries.HandlerFunc[pricingapp.ListPriceRulesQuery, dto.PriceRuleCollection](rules.List))
	bookingQueries := &bookingapp.QueriesHandler{UoWFactory: infra.factory}
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](queryBus, queries.HandlerFunc[bookingapp.GetBookingQuery, dto.Booking](bookingQueries.Get))
	queries.RegisterHandler[bookingapp.ListBookingsQuery, dto.BookingCollection](queryBus, queries.HandlerFunc[bookingapp.ListBookingsQuery, dto.BookingCollection](bookingQueries.List))

	validator := validation.New()
	app.commands = middleware.CommandStack{
		Logger:      logger,
		Validator:   validator,
		Idempotency: infra.idempotency,
		Outbox:      infra.outbox,
		Prices:      resolver,
		UoW:         infra.factory,
		Now:         now,
	}.Wrap(commandBus)
	app.queries = middleware.QueryStack{
		Logger:    logger,
		Validator: validator,
		UoW:       infra.factory,
	}.Wrap(queryBus)

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Pricing:      ginserver.PricingHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
		Booking:      ginserver.BookingHandler{Commands: app.commands, Queries: app.queries, Logger: logger},
	}
	if len(app.maintenance.Jobs) > 0 {
		app.runners["maintenance"] = app.maintenance.Run
	}
	return app, nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *slog.Logger, app *application) (infrastructure, error) {
	switch cfg.StoreMode {
	case config.StoreMongo:
		return buildMongo(ctx, cfg, logger, app)
	default:
		store := memory.NewStore()
		box := memory.NewOutbox(nil, logger)
		idempotency := memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		app.maintenance.Add(schedule.Job{Name: "idempotency-purge", Interval: maintenanceInterval, Run: func(context.Context) (int, error) {
			return idempotency.Purge(), nil
		}})
		return infrastructure{
			factory:     store,
			idempotency: idempotency,
			outbox:      box,
			setSink: func(sink kafka.EventSink) {
				box.Dispatch = sink.Handle
			},
		}, nil
	}
}

func buildMongo(ctx context.Context, cfg config.Config, logger *slog.Logger, app *application) (infrastructure, error) {
	client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return infrastructure{}, fmt.Errorf("mongo connect: %w", err)
	}
	app.closers = append(app.closers, client.Disconnect)
	app.health.Checks["mongo"] = client.Ping

	idempotency := mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
	outboxStore := infraoutbox.NewStore(client.DB)
	inboxStore := inbox.NewStore(client.DB, cfg.KafkaGroupID)
	for _, ensure := range []func(context.Context) error{
		client.EnsureIndexes, idempotency.EnsureIndexes, outboxStore.EnsureIndexes, inboxStore.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return infrastructure{}, fmt.Errorf("mongo indexes: %w", err)
		}
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("opalestay-outbox"))
	if err != nil {
		return infrastructure{}, fmt.Errorf("kafka producer: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
	worker := &infraoutbox.Worker{
		Queue:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	app.runners["outbox-worker"] = worker.Run

	handler := &kafka.EventHandler{Inbox: inboxStore}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, kafka.NewConfig("opalestay-notifications"), handler, logger)
	if err != nil {
		return infrastructure{}, fmt.Errorf("kafka consumer: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
	topic := infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "booking.requested")
	app.runners["notification-consumer"] = func(ctx context.Context) error {
		return consumer.Run(ctx, []string{topic})
	}

	return infrastructure{
		factory:     mongostore.NewFactory(client.DB),
		idempotency: idempotency,
		outbox:      outboxStore,
		setSink: func(sink kafka.EventSink) {
			handler.Sink = sink
		},
	}, nil
}

func buildCache(cfg config.Config, app *application) (policies.PriceCache, error) {
	switch cfg.CacheMode {
	case config.CacheOff:
		return nil, nil
	case config.CacheRedis:
		opts := cacheredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB, Namespace: cfg.RedisNamespace}
		client := cacheredis.NewClient(opts)
		cache := cacheredis.New(client, opts)
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		app.health.Checks["redis"] = cache.Ping
		return cache, nil
	case config.CacheMemory:
		cache := cachememory.New()
		app.maintenance.Add(schedule.Job{Name: "price-cache-sweep", Interval: maintenanceInterval, Run: func(context.Context) (int, error) {
			return cache.Sweep(), nil
		}})
		return cache, nil
	}
	return nil, fmt.Errorf("unknown cache mode %q", cfg.CacheMode)
}
