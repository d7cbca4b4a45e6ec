package main

import (
	"confetch/internal/backends"
	"confetch/internal/client"
	"confetch/internal/ports"
	"confetch/internal/pub"
	"confetch/internal/types"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// confetchd is a polling agent: it keeps the configured namespaces fresh and,
// when a topic is configured, forwards change events to SNS so other systems
// can react without talking to the config service themselves.
func main() {
	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil {
		log.Info("The .env file not found.")
	}

	cfg, err := types.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid client config: %v", err)
	}

	durable, err := backends.DurableBackendFromEnv(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize durable store: %v", err)
	}

	cli := client.New(cfg, nil, durable)

	namespaces := strings.Split(os.Getenv("NAMESPACES"), ",")
	if len(namespaces) == 1 && namespaces[0] == "" {
		namespaces = []string{"application"}
	}

	topic := os.Getenv("SNS_TOPIC_ARN")
	if topic != "" {
		forwarder := pub.NewForwarder(snsPublisherFromEnv(), topic)
		for _, ns := range namespaces {
			cli.AddListener(ns, forwarder)
		}
	}

	ctx := context.Background()
	for _, ns := range namespaces {
		if _, err := cli.Value(ctx, ns); err != nil {
			log.WithError(err).WithField("namespace", ns).Warn("initial fetch failed; poller will retry")
		}
	}

	if err := cli.Start(); err != nil {
		log.Fatalf("Failed to start poller: %v", err)
	}
	log.WithField("app_id", cfg.AppID).Infof("confetchd polling %d namespace(s)", len(namespaces))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cli.Stop()
	log.Info("confetchd stopped")
}

func snsPublisherFromEnv() ports.Publisher {
	var snsEndpoint *string
	se := os.Getenv("SNS_ENDPOINT")
	if se != "" {
		snsEndpoint = aws.String(se)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			// Local testing against a stack emulator.
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			credProvider := credentials.NewStaticCredentialsProvider("test", "test", "")
			o.Credentials = credProvider
		}
	})
	return pub.NewSNS(snsClient)
}
