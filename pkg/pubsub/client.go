package pubsub

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/gcp"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

const (
	collectionTopics        = "topics"
	collectionSubscriptions = "subscriptions"
)

var errClientNotInitialized = errors.New("pubsub client not initialized")

// Resource names a topic or subscription a binary refuses to start without.
type Resource struct {
	collection string
	id         string
}

// Topic declares a required topic.
func Topic(id string) Resource { return Resource{collection: collectionTopics, id: id} }

// Subscription declares a required subscription.
func Subscription(id string) Resource {
	return Resource{collection: collectionSubscriptions, id: id}
}

func (r Resource) String() string { return r.collection + "/" + r.id }

// Client wraps the Pub/Sub v2 client with the wallet's topic and
// subscription settings.
type Client struct {
	ps       *pubsub.Client
	project  string
	cfg      config.PubSubConfig
	required []Resource
}

// NewClient connects to Pub/Sub and checks every required resource exists.
// The outbox publisher requires its topics; the settlement worker requires
// the payouts subscription.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, required ...Resource) (*Client, error) {
	project, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}

	ps, err := pubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{ps: ps, project: project, cfg: cfg, required: required}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "required", len(required)), "pubsub client initialized")
	}
	return c, nil
}

// Ping re-checks the resources the client was built with.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errClientNotInitialized
	}
	for _, res := range c.required {
		if err := c.exists(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) exists(ctx context.Context, res Resource) error {
	name := c.resourceName(res)
	if name == "" {
		return fmt.Errorf("pubsub %s not configured", res)
	}

	var err error
	switch res.collection {
	case collectionTopics:
		_, err = c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	case collectionSubscriptions:
		_, err = c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	default:
		return fmt.Errorf("unknown pubsub collection %q", res.collection)
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("pubsub %s does not exist", name)
	}
	if err != nil {
		return fmt.Errorf("checking pubsub %s: %w", name, err)
	}
	return nil
}

func (c *Client) resourceName(res Resource) string {
	return gcp.ResourceName(c.project, res.collection, res.id)
}

// Publisher returns a handle for a topic id or full resource name, or nil
// when the name is blank.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	name := c.resourceName(Topic(topic))
	if name == "" {
		return nil
	}
	return c.ps.Publisher(name)
}

// PayoutsSubscription returns the subscriber the settlement worker drains,
// capped at the configured outstanding message count.
func (c *Client) PayoutsSubscription() *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	name := c.resourceName(Subscription(c.cfg.PayoutsSubscription))
	if name == "" {
		return nil
	}
	sub := c.ps.Subscriber(name)
	if c.cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstanding
	}
	return sub
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}
