// Package builtin provides the tool definitions zobot ships with.
//
// Two tools are exported via [Defs]:
//   - "create_ticket" — opens a support ticket, optionally flagged for
//     human escalation.
//   - "order_status"  — looks up the fulfilment state of an order.
//
// All handlers are safe for concurrent use and keep their state
// in-process; production deployments replace the handlers with ones
// backed by a real ticketing and order system while keeping the same
// schemas.
package builtin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhiramzobot/zobot-sub002/internal/tools"
)

// ticketStore holds tickets created during this process's lifetime.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticket
}

type ticket struct {
	id        string
	subject   string
	body      string
	escalate  bool
	createdAt time.Time
}

var store = &ticketStore{tickets: make(map[string]ticket)}

// createTicketHandler implements the "create_ticket" tool. It assigns a
// ticket ID and records the ticket in the in-process store.
func createTicketHandler(_ context.Context, args map[string]any) (any, error) {
	subject, _ := args["subject"].(string)
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("builtin: ticket subject must not be empty")
	}
	body, _ := args["body"].(string)
	escalate, _ := args["escalate"].(bool)

	t := ticket{
		id:        "TCK-" + uuid.NewString(),
		subject:   subject,
		body:      body,
		escalate:  escalate,
		createdAt: time.Now(),
	}

	store.mu.Lock()
	store.tickets[t.id] = t
	store.mu.Unlock()

	return map[string]any{
		"ticket_id": t.id,
		"escalated": t.escalate,
	}, nil
}

// orderStates is the canned fulfilment data used by order_status. The
// last digit of the order number selects a state so demo conversations
// get stable, varied answers.
var orderStates = []string{
	"processing",
	"packed",
	"shipped",
	"out_for_delivery",
	"delivered",
}

// orderStatusHandler implements the "order_status" tool.
func orderStatusHandler(_ context.Context, args map[string]any) (any, error) {
	orderID, _ := args["order_id"].(string)
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("builtin: order_id must not be empty")
	}

	last := orderID[len(orderID)-1]
	if last < '0' || last > '9' {
		return nil, fmt.Errorf("builtin: unknown order %q", orderID)
	}
	state := orderStates[int(last-'0')%len(orderStates)]

	return map[string]any{
		"order_id": orderID,
		"status":   state,
	}, nil
}

// Defs returns the built-in tool definitions ready for registration.
func Defs() []tools.Definition {
	return []tools.Definition{
		{
			Name:        "create_ticket",
			Version:     "1.0.0",
			Description: "Open a support ticket on behalf of the customer. Set escalate when a human agent must follow up.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subject": map[string]any{
						"type":        "string",
						"description": "Short summary of the customer's issue.",
					},
					"body": map[string]any{
						"type":        "string",
						"description": "Full description, including relevant conversation context.",
					},
					"escalate": map[string]any{
						"type":        "boolean",
						"description": "True when a human agent must take over.",
					},
				},
				"required": []string{"subject"},
			},
			OutputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ticket_id": map[string]any{"type": "string"},
					"escalated": map[string]any{"type": "boolean"},
				},
			},
			AuthLevel:          "agent",
			RateLimitPerMinute: 5,
			FeatureFlagKey:     "tools.create_ticket",
			TimeoutMs:          2000,
			Handler:            createTicketHandler,
		},
		{
			Name:        "order_status",
			Version:     "1.0.0",
			Description: "Look up the current fulfilment status of an order by its order number.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{
						"type":        "string",
						"description": "The customer's order number, e.g. ORD-10293.",
					},
				},
				"required": []string{"order_id"},
			},
			OutputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{"type": "string"},
					"status":   map[string]any{"type": "string"},
				},
			},
			AuthLevel:          "user",
			RateLimitPerMinute: 10,
			TimeoutMs:          2000,
			Handler:            orderStatusHandler,
		},
	}
}
