package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/fmbridge/internal/shared"
)

// Kind identifies one of the synchronized entity kinds.
type Kind int

const (
	KindAccount Kind = iota
	KindCategory
	KindTag
	KindTransaction
)

// AllKinds lists every kind in dependency order: transactions reference categories,
// so categories must be synchronized first.
var AllKinds = []Kind{KindAccount, KindCategory, KindTag, KindTransaction}

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "accounts"
	case KindCategory:
		return "categories"
	case KindTag:
		return "tags"
	case KindTransaction:
		return "transactions"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Endpoint returns the Firefly API collection path for the kind.
func (k Kind) Endpoint() string {
	return "/api/v1/" + k.String()
}

// ParseKind accepts singular or plural kind names in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "account", "accounts":
		return KindAccount, nil
	case "category", "categories":
		return KindCategory, nil
	case "tag", "tags":
		return KindTag, nil
	case "transaction", "transactions":
		return KindTransaction, nil
	default:
		return 0, fmt.Errorf("%w: %q", shared.ErrUnknownKind, s)
	}
}

// ParseKinds parses names, removes duplicates and returns them in dependency order.
// An empty input selects every kind.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return slices.Clone(AllKinds), nil
	}

	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return OrderKinds(kinds), nil
}

// OrderKinds returns the distinct kinds in dependency order.
func OrderKinds(kinds []Kind) []Kind {
	ordered := make([]Kind, 0, len(kinds))
	for _, k := range AllKinds {
		if slices.Contains(kinds, k) {
			ordered = append(ordered, k)
		}
	}
	return ordered
}
