package projection

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"github.com/erymuzuan/motorent-sub003/entity"
)

// Decode converts a value read by a Reader into R. Maps decode into
// structs by their json tags; strings and numbers are converted weakly, as
// drivers return them in varying forms.
func Decode[R any](v any) (R, error) {
	var out R
	if r, ok := v.(R); ok {
		return r, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToString,
			toDecimal,
			mapstructure.StringToTimeHookFunc(entity.SortableLayout),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(v); err != nil {
		return out, err
	}
	return out, nil
}

func bytesToString(from, to reflect.Type, data any) (any, error) {
	if b, ok := data.([]byte); ok && to.Kind() != reflect.Slice {
		return string(b), nil
	}
	return data, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func toDecimal(from, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch n := data.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case string:
		return decimal.NewFromString(n)
	case nil:
		return decimal.Zero, nil
	}
	return data, nil
}
