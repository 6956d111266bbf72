package optionsfile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// parseHCL reads an HCL options file into a value tree. Only top-level
// attributes are allowed. Object constructors keep their source order;
// values are evaluated without variables or functions.
func parseHCL(data []byte, filename string) (value, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return value{}, diags
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return value{}, errors.New("unexpected HCL body type")
	}

	if len(body.Blocks) > 0 {
		b := body.Blocks[0]
		return value{}, fmt.Errorf("%s: blocks are not supported, found %q", b.TypeRange, b.Type)
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	fields := make([]field, 0, len(attrs))
	for _, attr := range attrs {
		v, err := fromHCLExpr(attr.Expr)
		if err != nil {
			return value{}, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		fields = append(fields, field{key: attr.Name, value: v})
	}

	return value{kind: kindMapping, fields: fields}, nil
}

func fromHCLExpr(expr hclsyntax.Expression) (value, error) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		fields := make([]field, 0, len(e.Items))
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return value{}, diags
			}
			key, err := convert.Convert(keyVal, cty.String)
			if err != nil || key.IsNull() || !key.IsKnown() {
				return value{}, fmt.Errorf("%s: object keys must be strings", item.KeyExpr.Range())
			}
			val, err := fromHCLExpr(item.ValueExpr)
			if err != nil {
				return value{}, err
			}
			fields = append(fields, field{key: key.AsString(), value: val})
		}
		return value{kind: kindMapping, fields: fields}, nil

	case *hclsyntax.TupleConsExpr:
		items := make([]value, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, err := fromHCLExpr(item)
			if err != nil {
				return value{}, err
			}
			items = append(items, v)
		}
		return value{kind: kindSequence, items: items}, nil
	}

	v, diags := expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() {
		return value{}, diags
	}
	return fromCty(v)
}

func fromCty(v cty.Value) (value, error) {
	if !v.IsWhollyKnown() {
		return value{}, errors.New("value is not known")
	}
	if v.IsNull() {
		return value{kind: kindNull}, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return value{kind: kindString, text: v.AsString()}, nil
	case ty == cty.Number:
		return value{kind: kindNumber, text: v.AsBigFloat().Text('f', -1)}, nil
	case ty == cty.Bool:
		return value{kind: kindBool, text: fmt.Sprint(v.True()), truth: v.True()}, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			item, err := fromCty(elem)
			if err != nil {
				return value{}, err
			}
			items = append(items, item)
		}
		return value{kind: kindSequence, items: items}, nil
	case ty.IsMapType() || ty.IsObjectType():
		fields := make([]field, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			item, err := fromCty(elem)
			if err != nil {
				return value{}, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			fields = append(fields, field{key: key.AsString(), value: item})
		}
		return value{kind: kindMapping, fields: fields}, nil
	default:
		return value{}, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
