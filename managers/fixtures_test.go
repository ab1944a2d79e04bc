package managers

import (
	"github.com/erymuzuan/motorent-sub003/entity"
)

type status int

const (
	statusDraft status = iota
	statusActive
)

func (s status) String() string {
	if s == statusActive {
		return "Active"
	}
	return "Draft"
}

var widgetMeta = &entity.Meta{
	Schema: "Core",
	Name:   "Widget",
	Columns: []entity.Column{
		{Field: "Id", Type: entity.TypeInt},
		{Field: "Name"},
		{Field: "Price", Type: entity.TypeDecimal},
		{Field: "Active", Type: entity.TypeBool},
		{Field: "Status", Type: entity.TypeEnum},
		{Field: "Created", Type: entity.TypeDateTime},
		{Field: "Address.City", Name: "City"},
	},
}

var orderMeta = &entity.Meta{
	Schema: "Sales",
	Name:   "Order",
	Columns: []entity.Column{
		{Field: "WidgetId", Type: entity.TypeInt},
		{Field: "Total", Type: entity.TypeDecimal},
	},
	SoftDelete: "IsDeleted",
}
