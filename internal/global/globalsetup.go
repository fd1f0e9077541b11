package global

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/calmisland/playstore-verifier/internal/config"
	services "bitbucket.org/calmisland/playstore-verifier/internal/services/v1"
	"bitbucket.org/calmisland/playstore-verifier/pkg/iap"
	"bitbucket.org/calmisland/playstore-verifier/pkg/playstore"
	"github.com/calmisland/go-errors"
	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Services are the dependencies shared by the request handlers
type Services struct {
	Config *config.Config

	// PlayStoreClient is the booted Google Play Developer API client
	PlayStoreClient *playstore.Client
	// IAPService holds the application public keys used to check receipt signatures
	IAPService *iap.Service
	// PaymentSlackMessageService is a service sending messages to #payment
	PaymentSlackMessageService *services.SlackMessageService
}

// Setup setup the server based on configuration
func Setup(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setupSentry(cfg)

	iapService, err := setupIAPService(cfg.Android)
	if err != nil {
		return nil, err
	}

	playStoreClient, err := setupPlayStoreClient(ctx, cfg.PlayStore)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:                     cfg,
		PlayStoreClient:            playStoreClient,
		IAPService:                 iapService,
		PaymentSlackMessageService: &services.SlackMessageService{WebHookURL: cfg.Slack.PaymentChannel, Stage: cfg.Stage},
	}

	if err := s.Verify(); err != nil {
		return nil, err
	}

	if err := s.PaymentSlackMessageService.SendMessageFormat("Play store verifier booted for %s/%s", cfg.PlayStore.ApplicationName, cfg.PlayStore.ApplicationVersion); err != nil {
		log.WithError(err).Warn("Could not send the boot notice to slack")
	}
	return s, nil
}

// Verify verifies if all services have been properly set.
func (s *Services) Verify() error {
	if s.Config == nil {
		return errors.New("The configuration has not been set")
	}
	if s.PlayStoreClient == nil || !s.PlayStoreClient.Booted() {
		return errors.New("The play store client has not been booted")
	}
	if s.IAPService == nil {
		return errors.New("The iap service has not been set")
	}
	if s.PaymentSlackMessageService == nil {
		return errors.New("The payment slack message service has not been set")
	}
	return nil
}

func setupSentry(cfg *config.Config) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Stage,
	}); err != nil {
		fmt.Printf("Sentry initialization failed: %v\n", err)
	}
}

func setupIAPService(cfg config.AndroidConfig) (*iap.Service, error) {
	var source iap.AndroidKeySource = iap.StaticAndroidSource(cfg.PublicKeys)
	if cfg.KeySource == "dynamodb" {
		source = &iap.DynamoAndroidSource{Region: cfg.Region, Table: cfg.Table}
	}

	service := iap.NewService()
	if err := service.Initialize(source); err != nil {
		return nil, err
	}
	return service, nil
}

func setupPlayStoreClient(ctx context.Context, cfg config.PlayStoreConfig) (*playstore.Client, error) {
	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}

	client, err := playstore.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	if err := client.Boot(ctx); err != nil {
		return nil, fmt.Errorf("could not boot the play store client: %w", err)
	}
	return client, nil
}
