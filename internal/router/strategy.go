package router

import (
	"fmt"
	"hash/fnv"
	"slices"
)

// Strategy selects how the base candidate order is computed. It is a
// closed set resolved once at construction; the full configured failover
// chain is always appended after the strategy-specific prefix.
type Strategy int

const (
	// StrategyFixed uses the configured chain order as-is.
	StrategyFixed Strategy = iota

	// StrategyIntent places an intent-mapped provider first when the
	// routing context carries a matching intent.
	StrategyIntent

	// StrategySplitTest deterministically buckets conversations by ID and
	// leads with primary or secondary depending on the split percentage.
	StrategySplitTest
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyFixed:
		return "fixed"
	case StrategyIntent:
		return "intent"
	case StrategySplitTest:
		return "split-test"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a configuration string into a [Strategy].
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "fixed":
		return StrategyFixed, nil
	case "intent":
		return StrategyIntent, nil
	case "split-test":
		return StrategySplitTest, nil
	default:
		return 0, fmt.Errorf("router: unknown strategy %q; valid values: fixed, intent, split-test", s)
	}
}

// bucket maps a conversation ID onto [0, 100). The same ID always lands in
// the same bucket, so a conversation sticks to one side of a split test
// for its whole lifetime.
func bucket(conversationID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return int(h.Sum32() % 100)
}

// resolveOrder computes the ordered candidate list for one call. After the
// strategy-specific prefix, any of primary, secondary, and tertiary not
// already present are appended in that fixed order, so the whole
// configured chain is always attempted at least once.
func (r *Router) resolveOrder(rc Context) []string {
	var order []string

	switch r.cfg.Strategy {
	case StrategyIntent:
		if rc.Intent != "" {
			if name, ok := r.cfg.IntentOverrides[rc.Intent]; ok {
				if _, configured := r.providers[name]; configured {
					order = append(order, name)
				}
			}
		}

	case StrategySplitTest:
		if r.cfg.Secondary != "" && bucket(rc.ConversationID) >= r.cfg.SplitPercent {
			order = append(order, r.cfg.Secondary, r.cfg.Primary)
		} else {
			order = append(order, r.cfg.Primary)
			if r.cfg.Secondary != "" {
				order = append(order, r.cfg.Secondary)
			}
		}
	}

	for _, name := range r.chain {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}
