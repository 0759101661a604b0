// Package app builds the long-lived collaborators shared by the server
// binaries from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"

	"github.com/ignite/contact-mailer/internal/api"
	"github.com/ignite/contact-mailer/internal/awsclient"
	"github.com/ignite/contact-mailer/internal/config"
	"github.com/ignite/contact-mailer/internal/engagement"
	"github.com/ignite/contact-mailer/internal/mailer"
	"github.com/ignite/contact-mailer/internal/pkg/distlock"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
	"github.com/ignite/contact-mailer/internal/repository/dynamo"
	"github.com/ignite/contact-mailer/internal/repository/memory"
	"github.com/ignite/contact-mailer/internal/repository/pinpoint"
	"github.com/ignite/contact-mailer/internal/repository/postgres"
	"github.com/ignite/contact-mailer/internal/repository/redisstore"
	"github.com/ignite/contact-mailer/internal/repository/s3doc"
)

// Dependencies are the long-lived collaborators built from config.
type Dependencies struct {
	Repo   engagement.Repository
	Mail   mailer.Dispatcher
	Locks  engagement.LockFactory
	Checks map[string]api.CheckFunc

	redisClient *redis.Client
	db          *sql.DB
}

// Close releases the redis and database connections.
func (d *Dependencies) Close() {
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// Build builds the store, lock and health probes, plus the mail dispatcher
// when withMail is set.
func Build(ctx context.Context, cfg *config.Config, withMail bool) (*Dependencies, error) {
	d := &Dependencies{Checks: make(map[string]api.CheckFunc)}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := awsclient.Load(ctx, cfg.AWS)
			if err != nil {
				return aws.Config{}, err
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	needRedis := cfg.Store.Backend == config.BackendRedis ||
		(cfg.Engagement.SerializeUpdates && cfg.Store.RedisURL != "")
	if needRedis {
		client, err := redisstore.Connect(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		d.redisClient = client
		d.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	needDB := cfg.Store.Backend == config.BackendPostgres ||
		(cfg.Engagement.SerializeUpdates && d.redisClient == nil)
	if needDB {
		db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			d.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		d.db = db
		d.Checks["database"] = db.PingContext
	}

	switch cfg.Store.Backend {
	case config.BackendPinpoint:
		c, err := loadAWS()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Repo = pinpoint.NewFromConfig(c, cfg.Store.PinpointProjectID)
	case config.BackendDynamoDB:
		c, err := loadAWS()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Repo = dynamo.NewFromConfig(c, cfg.Store.DynamoDBTable)
	case config.BackendS3:
		c, err := loadAWS()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Repo = s3doc.NewFromConfig(c, cfg.Store.S3Bucket, cfg.Store.S3Prefix)
	case config.BackendRedis:
		d.Repo = redisstore.New(d.redisClient, cfg.Store.RedisKeyPrefix)
	case config.BackendPostgres:
		d.Repo = postgres.NewEndpointRepo(d.db)
	case config.BackendMemory:
		logger.Warn("using in-memory endpoint store; records are lost on restart")
		d.Repo = memory.New()
	default:
		d.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	switch {
	case !withMail:
	case cfg.Mail.Backend == config.MailSES:
		c, err := loadAWS()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Mail = mailer.NewSESDispatcherFromConfig(c, cfg.Mail.ConfigurationSet)
	case cfg.Mail.Backend == config.MailSMTP:
		d.Mail = mailer.NewSMTPDispatcher(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			Timeout:  cfg.Mail.SMTP.Timeout(),
		})
	default:
		d.Close()
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Mail.Backend)
	}

	if cfg.Engagement.SerializeUpdates {
		locks := distlock.NewFactory(d.redisClient, d.db, cfg.Engagement.LockTTL())
		d.Locks = func(endpointID string) engagement.Locker { return locks(endpointID) }
	}
	return d, nil
}
