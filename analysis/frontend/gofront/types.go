// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gofront

import (
	"go/types"

	"github.com/awslabs/ar-go-txeffects/analysis/ir"
)

// typeName returns the ir type of t. Basic types keep their Go name and other types use their fully qualified
// name, e.g. "*database/sql.Tx". Untyped constants take their default type; tuples their first component.
func typeName(t types.Type) ir.Type {
	if t == nil {
		return ir.TypeUnknown
	}
	if tup, ok := t.(*types.Tuple); ok {
		if tup.Len() == 0 {
			return ir.TypeVoid
		}
		t = tup.At(0).Type()
	}
	t = types.Default(t)
	if b, ok := t.(*types.Basic); ok {
		switch b.Kind() {
		case types.UntypedNil:
			return ir.TypeNull
		case types.Byte:
			return "uint8"
		case types.Rune:
			return "int32"
		}
		return ir.Type(b.Name())
	}
	return ir.Type(types.TypeString(t, nil))
}

// namedOf returns the named type of t, looking through one pointer indirection.
func namedOf(t types.Type) *types.Named {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, _ := t.(*types.Named)
	return n
}

// className returns the class of a named type: its package path and name, e.g. "database/sql.Tx".
func className(n *types.Named) string {
	obj := n.Origin().Obj()
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

// signatureOf returns the signature of a function or method. Methods belong to the class of their receiver
// type and functions to the class named after their package.
func signatureOf(f *types.Func) ir.Signature {
	sig := f.Type().(*types.Signature)
	res := ir.Signature{Name: f.Name()}
	if recv := sig.Recv(); recv != nil {
		if n := namedOf(recv.Type()); n != nil {
			res.Class = className(n)
		}
	} else if f.Pkg() != nil {
		res.Class = f.Pkg().Path()
	}
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		res.Params = append(res.Params, typeName(params.At(i).Type()))
	}
	return res
}

// isInterfaceCall returns true if f is a method of an interface, so that its calls are dispatched dynamically.
func isInterfaceCall(f *types.Func) bool {
	recv := f.Type().(*types.Signature).Recv()
	return recv != nil && types.IsInterface(recv.Type())
}

// zero returns the zero value of t as a literal.
func zero(t types.Type) ir.Expr {
	if b, ok := t.Underlying().(*types.Basic); ok {
		switch {
		case b.Info()&types.IsInteger != 0:
			return ir.Int(0)
		case b.Info()&types.IsFloat != 0:
			return ir.Float(0)
		case b.Info()&types.IsString != 0:
			return ir.Str("")
		case b.Info()&types.IsBoolean != 0:
			return ir.Bool(false)
		}
	}
	return ir.Null()
}
