package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/fmbridge/internal/models"
)

var _ list.Item = kindItem{}

// kindItem wraps a [models.Kind] and its selection state to implement [list.Item].
type kindItem struct {
	kind     models.Kind
	selected bool
}

func (i kindItem) FilterValue() string { return i.kind.String() }

func (i kindItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.kind)
}

func (i kindItem) Description() string {
	switch i.kind {
	case models.KindAccount:
		return "Asset and liability accounts"
	case models.KindCategory:
		return "Transaction categories"
	case models.KindTag:
		return "Household tags"
	case models.KindTransaction:
		return "Transactions, after their categories"
	default:
		return ""
	}
}

func kindItems(selected bool) []list.Item {
	items := make([]list.Item, len(models.AllKinds))
	for i, kind := range models.AllKinds {
		items[i] = kindItem{kind: kind, selected: selected}
	}
	return items
}

// selectedKinds returns the checked kinds in dependency order.
func selectedKinds(items []list.Item) []models.Kind {
	kinds := make([]models.Kind, 0, len(items))
	for _, it := range items {
		if k, ok := it.(kindItem); ok && k.selected {
			kinds = append(kinds, k.kind)
		}
	}
	return models.OrderKinds(kinds)
}
