package settings

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// MarshalBSONValue stores objects as ordered documents so the key order
// survives a round trip through MongoDB.
func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	native, err := v.toBSON()
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(native)
}

func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	parsed, err := fromBSON(bson.RawValue{Type: t, Value: data})
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) toBSON() (interface{}, error) {
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindNumber:
		return v.Num, nil
	case KindBool:
		return v.Bool, nil
	case KindArray:
		arr := make(bson.A, 0, len(v.Items))
		for _, item := range v.Items {
			native, err := item.toBSON()
			if err != nil {
				return nil, err
			}
			arr = append(arr, native)
		}
		return arr, nil
	case KindObject:
		doc := make(bson.D, 0, len(v.Fields))
		for _, f := range v.Fields {
			native, err := f.Value.toBSON()
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: f.Key, Value: native})
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unknown kind %q", v.Kind)
}

func fromBSON(rv bson.RawValue) (Value, error) {
	switch rv.Type {
	case bsontype.String:
		return String(rv.StringValue()), nil
	case bsontype.Double:
		return Number(rv.Double()), nil
	case bsontype.Int32:
		return Number(float64(rv.Int32())), nil
	case bsontype.Int64:
		return Number(float64(rv.Int64())), nil
	case bsontype.Boolean:
		return Bool(rv.Boolean()), nil
	case bsontype.Null, bsontype.Undefined:
		return String(""), nil
	case bsontype.Array:
		values, err := rv.Array().Values()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, len(values))
		for _, item := range values {
			child, err := fromBSON(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, child)
		}
		return Array(items...), nil
	case bsontype.EmbeddedDocument:
		elems, err := rv.Document().Elements()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Field, 0, len(elems))
		for _, e := range elems {
			child, err := fromBSON(e.Value())
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, F(e.Key(), child))
		}
		return Object(fields...), nil
	}
	return Value{}, fmt.Errorf("unsupported bson type %s", rv.Type)
}
