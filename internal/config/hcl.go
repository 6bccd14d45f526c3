package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	pkgconfig "github.com/serjche/Ceedling/pkg/config"
)

// ErrUnknownValue is returned when an HCL expression cannot be evaluated statically.
var ErrUnknownValue = errors.New("configuration value is not known statically")

// ParseHCL decodes an HCL document whose top level consists of attributes, e.g.
//
//	project = {
//	  build_root = "build"
//	}
//	paths = {
//	  test = ["test/**"]
//	}
//
// Expressions are evaluated without variables or functions.
func ParseHCL(data []byte, name string) (pkgconfig.Node, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, name)
	if diags.HasErrors() {
		return pkgconfig.Node{}, fmt.Errorf("parse config %q: %w", name, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return pkgconfig.Node{}, fmt.Errorf("parse config %q: %w", name, diags)
	}

	fields := make(map[string]pkgconfig.Node, len(attrs))
	for key, attr := range attrs {
		value, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return pkgconfig.Node{}, fmt.Errorf("evaluate %s in %q: %w", key, name, diags)
		}
		node, err := fromCty(value)
		if err != nil {
			return pkgconfig.Node{}, fmt.Errorf("convert %s in %q: %w", key, name, err)
		}
		fields[key] = node
	}
	return pkgconfig.Mapping(fields), nil
}

func fromCty(v cty.Value) (pkgconfig.Node, error) {
	if v.IsNull() {
		return pkgconfig.Null(), nil
	}
	if !v.IsWhollyKnown() {
		return pkgconfig.Node{}, ErrUnknownValue
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return pkgconfig.String(v.AsString()), nil
	case t == cty.Bool:
		return pkgconfig.Scalar(v.True()), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return pkgconfig.Scalar(int(i)), nil
			}
		}
		f, _ := bf.Float64()
		return pkgconfig.Scalar(f), nil
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		items := make([]pkgconfig.Node, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			node, err := fromCty(elem)
			if err != nil {
				return pkgconfig.Node{}, err
			}
			items = append(items, node)
		}
		return pkgconfig.Sequence(items...), nil
	case t.IsObjectType() || t.IsMapType():
		fields := make(map[string]pkgconfig.Node, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			node, err := fromCty(elem)
			if err != nil {
				return pkgconfig.Node{}, fmt.Errorf("%s: %w", key.AsString(), err)
			}
			fields[key.AsString()] = node
		}
		return pkgconfig.Mapping(fields), nil
	default:
		return pkgconfig.Node{}, fmt.Errorf("%w: %s", pkgconfig.ErrUnsupportedValue, t.FriendlyName())
	}
}
