package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// webhookMethods are the upstream delivery kinds, in registration order.
// Each gets its own callback URL so the ingress can dispatch on the path
// alone.
var webhookMethods = []string{"create", "update", "delete"}

// Webhook is one upstream webhook registration as the upstream reports it.
type Webhook struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Category    int64  `json:"category"`
	SubCategory int64  `json:"sub_category"`
	Active      bool   `json:"active"`
}

// parseWebhooks accepts both shapes the upstream uses: an array (listing)
// and a single object (registration response).
func parseWebhooks(raw []byte) ([]Webhook, error) {
	var list []Webhook
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var one Webhook
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("parsing webhook response: %w", err)
	}
	return []Webhook{one}, nil
}

// ConfigureWebhooks registers the create/update/delete callbacks for this
// collection, skipping any URL already present in current. Registration
// responses must report at least one active webhook or the call fails.
// Both the public root address and the shared secret are required.
func (c *Collection[T]) ConfigureWebhooks(ctx context.Context, current []Webhook) error {
	if c.webhookRoot == "" || c.webhookSecret == "" {
		return ErrWebhookConfigMissing
	}

	root := strings.TrimRight(c.webhookRoot, "/")
	for _, method := range webhookMethods {
		target := fmt.Sprintf("%s/%s/%s", root, c.endpoint, method)

		if webhookRegistered(current, target) {
			c.logger.Debug("webhook already registered",
				"endpoint", c.endpoint,
				"url", target,
			)
			continue
		}

		form := url.Values{}
		form.Set("method", method)
		form.Set("secret", c.webhookSecret)
		form.Set("url", target)

		raw, err := c.upstream.SubmitForm(ctx, c.endpoint+"/webhooks", form)
		if err != nil {
			return fmt.Errorf("registering %s %s webhook: %w", c.endpoint, method, err)
		}

		registered, err := parseWebhooks(raw)
		if err != nil {
			return fmt.Errorf("registering %s %s webhook: %w", c.endpoint, method, err)
		}
		if !anyActive(registered) {
			return fmt.Errorf("%s %s webhook registration reported no active webhook", c.endpoint, method)
		}

		c.logger.Info("webhook registered",
			"endpoint", c.endpoint,
			"method", method,
			"url", target,
		)
	}
	return nil
}

// ApplyWebhook folds one upstream change notification into the mirror:
// create and update upsert the delivered document, delete removes by id.
func (c *Collection[T]) ApplyWebhook(ctx context.Context, method string, payload []byte) error {
	switch method {
	case "create", "update":
		doc, err := document(payload)
		if err != nil {
			return err
		}
		if _, err := documentID(doc); err != nil {
			return err
		}
		return c.Add(ctx, []bson.M{doc})
	case "delete":
		doc, err := document(payload)
		if err != nil {
			return err
		}
		id, err := documentID(doc)
		if err != nil {
			return err
		}
		return c.Delete(ctx, id)
	default:
		return fmt.Errorf("%w: unknown webhook method %q", ErrBadPayload, method)
	}
}

func webhookRegistered(current []Webhook, target string) bool {
	for _, w := range current {
		if w.URL == target {
			return true
		}
	}
	return false
}

func anyActive(hooks []Webhook) bool {
	for _, w := range hooks {
		if w.Active {
			return true
		}
	}
	return false
}
