package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/captcha"
	appconfig "github.com/yaronhayo/contractor-clone-craft-sub000/internal/config"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/notify"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/ratelimit"
	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildLimiter selects the rate limiter backend: Redis-backed when a
// reachable Redis address is configured, per-process token bucket otherwise.
func BuildLimiter(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ratelimit.Limiter {
	if logger == nil {
		logger = logging.Default()
	}
	if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
		logger.Info("using redis rate limiter", "addr", cfg.RedisAddr)
		return ratelimit.NewRedisLimiter(client, cfg.RateLimitBurst, cfg.RateLimitWindow)
	}
	logger.Info("using in-memory rate limiter",
		"burst", cfg.RateLimitBurst,
		"window", cfg.RateLimitWindow.String(),
	)
	return ratelimit.NewMemoryLimiter(cfg.RateLimitBurst, cfg.RateLimitWindow)
}

// BuildEmailSender selects the dispatch provider. Provider "auto" prefers
// SendGrid when an API key is present, then SES. With no provider
// credentials it returns nil so the handler reports the misconfiguration
// instead of silently dropping leads; the logging stub must be requested
// explicitly with EMAIL_PROVIDER=stub.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))

	if provider == "stub" {
		logger.Warn("using stub email sender, notifications are log-only")
		return notify.NewStubEmailSender(logger)
	}

	if provider == "sendgrid" || (provider == "" || provider == "auto") && cfg.SendGridAPIKey != "" {
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("using sendgrid email sender", "from", cfg.EmailFrom)
			return sender
		}
	}

	if provider == "ses" || (provider == "" || provider == "auto") && cfg.SESFromEmail != "" {
		if client := buildSESClient(ctx, cfg, logger); client != nil {
			logger.Info("using ses email sender", "from", cfg.SESFromEmail)
			return notify.NewSESSender(client, notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
	}

	logger.Error("no email provider credentials configured")
	return nil
}

// BuildVerifier returns the CAPTCHA verifier, or nil when verification is
// not configured.
func BuildVerifier(cfg *appconfig.Config, logger *logging.Logger) captcha.Verifier {
	v := captcha.NewGoogleVerifier(captcha.Config{
		Secret:   cfg.RecaptchaSecret,
		Endpoint: cfg.RecaptchaEndpoint,
		Timeout:  cfg.RecaptchaTimeout,
	}, logger)
	if v == nil {
		// A typed nil inside the interface would defeat the handler's
		// nil check.
		return nil
	}
	return v
}

// LoadAWSConfig centralizes AWS SDK initialization so the server and Lambda
// binaries share the same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service == sesv2.ServiceID {
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.AWSRegion,
					}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			},
		)
	}

	return awsCfg, nil
}

func buildSESClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *sesv2.Client {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil
	}
	return sesv2.NewFromConfig(awsCfg)
}
