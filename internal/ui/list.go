package ui

import (
	"github.com/charmbracelet/bubbles/list"

	"github.com/brettbeeson/notsolong/internal/api"
)

var _ list.Item = categoryItem{}

// categoryItem wraps an [api.Category] to implement [list.Item]. The empty
// category stands for "all categories".
type categoryItem struct {
	category api.Category
}

func (i categoryItem) FilterValue() string { return i.Title() }

func (i categoryItem) Title() string {
	if i.category == "" {
		return "All"
	}
	return string(i.category)
}

func (i categoryItem) Description() string {
	if i.category == "" {
		return "browse every category"
	}
	return "only " + string(i.category) + " titles"
}

// categoryItems returns the selectable category list, "All" first.
func categoryItems() []list.Item {
	items := []list.Item{categoryItem{category: ""}}
	for _, c := range api.Categories {
		items = append(items, categoryItem{category: c})
	}
	return items
}
