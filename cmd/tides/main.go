package main

import (
	"context"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bbernstein/flowebb/tideclock/internal/cache"
	"github.com/bbernstein/flowebb/tideclock/internal/config"
	"github.com/bbernstein/flowebb/tideclock/internal/fetch"
	"github.com/bbernstein/flowebb/tideclock/internal/gate"
	"github.com/bbernstein/flowebb/tideclock/internal/handler"
	"github.com/bbernstein/flowebb/tideclock/internal/tide"
	"github.com/bbernstein/flowebb/tideclock/pkg/http/client"
	"github.com/rs/zerolog/log"
	"sync"
)

var (
	lambdaStart  = lambda.Start // Allow mocking of lambda.Start in tests
	tidesHandler *handler.TidesHandler
	setupErr     error
	setupOnce    sync.Once
)

func init() {
	setupOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		tidesHandler, setupErr = newHandler(context.Background(), cfg, config.GetStorageConfig())
		if setupErr != nil {
			log.Error().Err(setupErr).Msg("Failed to initialize tides handler")
		}
	})
}

// newHandler wires a pipeline over the configured storage. The DynamoDB and S3
// backends let every Lambda instance share one cache and fetch counter.
func newHandler(ctx context.Context, cfg *config.Config, storage *config.StorageConfig) (*handler.TidesHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := storage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	store, counter, err := newStorage(ctx, storage)
	if err != nil {
		return nil, err
	}

	curves, err := cache.NewCurveCache(storage.CurveLRUSize)
	if err != nil {
		return nil, fmt.Errorf("creating curve cache: %w", err)
	}

	httpClient := client.New(client.Options{
		BaseURL: cfg.StormglassBaseURL,
		Timeout: cfg.HTTPTimeout,
		Headers: map[string]string{"Authorization": cfg.StormglassAPIKey},
	})

	pipeline := tide.NewPipeline(tide.Dependencies{
		Store:   store,
		Gate:    gate.New(counter),
		Fetcher: fetch.NewStormglassFetcher(httpClient, cfg.Latitude, cfg.Longitude),
		Curves:  curves,
	}, tide.WithHistoryHours(cfg.HistoryHours))

	log.Info().
		Str("backend", storage.Backend).
		Float64("lat", cfg.Latitude).
		Float64("lng", cfg.Longitude).
		Msg("Tides handler ready")

	return handler.NewTidesHandler(pipeline, cfg.HorizonHours, cfg.UISamples), nil
}

// newStorage picks the extrema cache and fetch counter for the backend. The
// file backend keeps the counter in a local badger directory.
func newStorage(ctx context.Context, storage *config.StorageConfig) (tide.ExtremaStore, gate.CounterStore, error) {
	if storage.Backend == config.BackendFile {
		counter, err := gate.OpenBadgerStore(storage.BadgerDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening fetch counter: %w", err)
		}
		return cache.NewFileStore(storage.CacheFile), counter, nil
	}

	dynamoClient, err := cache.NewDynamoClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("creating DynamoDB client: %w", err)
	}
	counter := gate.NewDynamoStore(dynamoClient, storage.CounterTable, storage.CacheKey)

	if storage.Backend == config.BackendS3 {
		s3Client, err := cache.NewS3Client(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating S3 client: %w", err)
		}
		return cache.NewS3Store(s3Client, storage.Bucket, storage.ObjectKey), counter, nil
	}
	return cache.NewDynamoStore(dynamoClient, storage.ExtremaTable, storage.CacheKey), counter, nil
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log.Info().Msg("Handling tides request")
	if tidesHandler == nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("tides handler not initialized: %w", setupErr)
	}
	return tidesHandler.HandleRequest(ctx, request)
}

func main() {
	lambdaStart(handleRequest)
}
