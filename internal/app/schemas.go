package app

import (
	"fmt"
	"reflect"
	"sort"

	"parstock/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// requestTypes are the request bodies published as JSON Schema, by name.
var requestTypes = map[string]any{
	"login":            &LoginRequest{},
	"item":             &ItemRequest{},
	"location":         &LocationRequest{},
	"category":         &CategoryRequest{},
	"vendor":           &VendorRequest{},
	"receive":          &ReceiveRequest{},
	"issue":            &IssueRequest{},
	"transfer":         &TransferRequest{},
	"adjust":           &AdjustRequest{},
	"par-levels":       &ParLevelsRequest{},
	"count-session":    &StartCountRequest{},
	"count-line":       &CountLineRequest{},
	"spot-check":       &SpotCheckRequest{},
	"requisition":      &CreateRequisitionRequest{},
	"requisition-deny": &DenyRequest{},
	"requisition-pick": &PickRequest{},
	"purchase":         &CreatePurchaseRequest{},
	"purchase-suggest": &PurchaseFromSuggestionsRequest{},
	"purchase-deny":    &DenyRequest{},
	"purchase-order":   &PurchaseOrderRequest{},
	"purchase-receive": &PurchaseReceiveRequest{},
	"user":             &UserRequest{},
	"user-permissions": &PermissionsRequest{},
}

// SchemaNames lists the published request schemas.
func SchemaNames() []string {
	names := make([]string, 0, len(requestTypes))
	for n := range requestTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RequestSchema returns the JSON Schema for a request body by name.
// Decimal quantities are described as numbers.
func RequestSchema(name string) (*jsonschema.Schema, error) {
	t, ok := requestTypes[name]
	if !ok {
		return nil, &core.NotFoundError{Entity: "schema", Key: name}
	}
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Mapper:         decimalAsNumber,
	}
	s := r.Reflect(t)
	s.Title = name
	s.ID = jsonschema.ID(fmt.Sprintf("/api/schemas/%s/", name))
	return s, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalAsNumber(t reflect.Type) *jsonschema.Schema {
	if t == decimalType {
		return &jsonschema.Schema{Type: "number"}
	}
	return nil
}
