package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/petpair-backend/pkg/config"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client owns the Pub/Sub connection for the notification fan-out: the
// outbox publisher writes to the notification topic and the worker drains
// its subscription.
type Client struct {
	client  *pubsub.Client
	project string
	topic   string
	sub     string
}

// NewClient connects and verifies the notification topic and subscription
// exist. Neither is created here; provisioning belongs to infra.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	conn, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:  conn,
		project: project,
		topic:   strings.TrimSpace(cfg.NotificationTopic),
		sub:     strings.TrimSpace(cfg.NotificationSubscription),
	}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":      project,
			"topic":        c.topic,
			"subscription": c.sub,
		}), "pubsub client initialized")
	}
	return c, nil
}

// Ping checks that the configured topic and subscription are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	if c.topic != "" {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: resourceName(c.project, "topics", c.topic),
		})
		if err := describeLookup("topic", c.topic, err); err != nil {
			return err
		}
	}
	if c.sub == "" {
		return errors.New("pubsub subscription name is required")
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: resourceName(c.project, "subscriptions", c.sub),
	})
	return describeLookup("subscription", c.sub, err)
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Publisher returns a handle for a topic id or full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := resourceName(c.project, "topics", topic)
	if name == "" {
		return nil
	}
	return c.client.Publisher(name)
}

// NotificationSubscription is the subscriber the worker receives
// notification_requested events from.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	name := resourceName(c.project, "subscriptions", c.sub)
	if name == "" {
		return nil
	}
	return c.client.Subscriber(name)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a short id to projects/<project>/<collection>/<id>.
// Names that are already fully qualified pass through.
func resourceName(project, collection, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+collection+"/") {
		return name
	}
	if project == "" {
		return ""
	}
	return "projects/" + project + "/" + collection + "/" + name
}
