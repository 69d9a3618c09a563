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

package interp

import (
	"github.com/awslabs/ar-go-txeffects/analysis/diagnostics"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

// EvalExpr evaluates e in the current state. Errors come from call handlers and are fatal for the path.
func (in *Interpreter) EvalExpr(e ir.Expr) (value.Value, error) {
	if v, ok := in.pinned[e]; ok {
		return v, nil
	}
	base := value.Base{Origin: e}
	switch e := e.(type) {
	case *ir.Literal:
		return literal(e), nil
	case *ir.Name:
		if v, ok := in.Lookup(e.Ident); ok {
			return v, nil
		}
		return &value.Unknown{Base: base, Tag: e.Ident}, nil
	case *ir.This:
		return &value.Unknown{Base: base, Tag: "this"}, nil
	case *ir.FieldAccess:
		if _, ok := e.X.(*ir.This); ok {
			if v, ok := in.Lookup("this." + e.Field); ok {
				return v, nil
			}
			return &value.Unknown{Base: base, Tag: "this." + e.Field}, nil
		}
		if _, err := in.EvalExpr(e.X); err != nil {
			return nil, err
		}
		return &value.Unknown{Base: base, Tag: e.String()}, nil
	case *ir.Index:
		if _, err := in.EvalExpr(e.X); err != nil {
			return nil, err
		}
		if _, err := in.EvalExpr(e.Index); err != nil {
			return nil, err
		}
		return &value.Unknown{Base: base, Tag: e.String()}, nil
	case *ir.Assign:
		return in.assign(e)
	case *ir.VarDecl:
		var v value.Value = &value.Unknown{Base: value.Base{Origin: ir.Ident(e.Name, e.Type())}, Tag: e.Name}
		if e.Init != nil {
			var err error
			if v, err = in.EvalExpr(e.Init); err != nil {
				return nil, err
			}
		}
		in.Define(e.Name, v)
		return v, nil
	case *ir.Unary:
		return in.unary(e)
	case *ir.Binary:
		x, err := in.EvalExpr(e.X)
		if err != nil {
			return nil, err
		}
		y, err := in.EvalExpr(e.Y)
		if err != nil {
			return nil, err
		}
		op, ok := value.FromBinary(e.Op)
		if !ok {
			in.Report(diagnostics.Unsupported, "operator %s", e.Op)
			return &value.Unknown{Base: base, Tag: e.Op.String()}, nil
		}
		return value.Apply(in.diag, op, x, y, e), nil
	case *ir.Call:
		return in.call(e)
	case *ir.Conditional:
		c, err := in.EvalExpr(e.Cond)
		if err != nil {
			return nil, err
		}
		switch value.TruthOf(c) {
		case value.True:
			return in.EvalExpr(e.Then)
		case value.False:
			return in.EvalExpr(e.Else)
		}
		return &value.Unknown{Base: base, Tag: "conditional"}, nil
	case *ir.Cast:
		x, err := in.EvalExpr(e.X)
		if err != nil {
			return nil, err
		}
		if e.Type().IsString() {
			if c, ok := x.(*value.Constant); ok {
				switch c.Data.(type) {
				case int64, float64:
					return value.ApplyUnary(in.diag, value.I2S, x, e), nil
				}
			}
		}
		return x, nil
	case *ir.Opaque:
		in.Report(diagnostics.Unresolvable, "expression %s (%s)", e.Kind, e.Text)
		return &value.Unknown{Base: base, Tag: e.Kind}, nil
	}
	in.Report(diagnostics.Unresolvable, "cannot evaluate expression %T", e)
	return &value.Unknown{Base: base}, nil
}

func literal(l *ir.Literal) value.Value {
	base := value.Base{Origin: l}
	switch l.Kind {
	case ir.NullLit:
		return &value.Null{Base: base}
	case ir.IntLit:
		switch v := l.Value.(type) {
		case int64:
			return &value.Constant{Base: base, Data: v}
		case int:
			return &value.Constant{Base: base, Data: int64(v)}
		}
	case ir.FloatLit:
		if v, ok := l.Value.(float64); ok {
			return &value.Constant{Base: base, Data: v}
		}
	case ir.BoolLit, ir.StringLit:
		return &value.Constant{Base: base, Data: l.Value}
	}
	return &value.Unknown{Base: base, Tag: "literal"}
}

// assign evaluates e. A compound assignment x op= v is evaluated as x = x op v.
func (in *Interpreter) assign(e *ir.Assign) (value.Value, error) {
	rhs := e.Value
	if e.Op != ir.NoOp {
		rhs = ir.Bin(e.Op, e.Target, e.Value)
	}
	v, err := in.EvalExpr(rhs)
	if err != nil {
		return nil, err
	}
	if name := ir.TargetName(e.Target); name != "" {
		in.Assign(name, v)
	} else if _, err := in.EvalExpr(e.Target); err != nil {
		return nil, err
	}
	return v, nil
}

func (in *Interpreter) unary(e *ir.Unary) (value.Value, error) {
	x, err := in.EvalExpr(e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ir.Neg:
		return value.ApplyUnary(in.diag, value.Negate, x, e), nil
	case ir.Not:
		return value.ApplyUnary(in.diag, value.Not, x, e), nil
	case ir.Plus, ir.AddrOf, ir.Deref:
		return x, nil
	}
	in.Report(diagnostics.Unsupported, "operator %s", e.Op)
	return &value.Unknown{Base: value.Base{Origin: e}, Tag: e.Op.String()}, nil
}

// call evaluates a call: with the handler registered for its target, by chaining the effects of an analyzed
// callee, or as an uninterpreted call.
func (in *Interpreter) call(e *ir.Call) (value.Value, error) {
	var recv value.Value
	if e.Receiver != nil {
		var err error
		if recv, err = in.EvalExpr(e.Receiver); err != nil {
			return nil, err
		}
	}
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := in.EvalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if h, ok := in.opts.Registry.Lookup(e.Method); ok {
		v, err := h(in, e, recv, args)
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = &value.Unknown{Base: value.Base{Origin: e}}
		}
		return v, nil
	}
	if in.opts.CalleeEffects != nil {
		if effs := in.opts.CalleeEffects(e); len(effs) > 0 {
			for _, eff := range effs {
				in.effect.Chain(eff)
			}
			return &value.Unknown{Base: value.Base{Origin: e}, Tag: e.Method.QualifiedName()}, nil
		}
	}
	return &value.Call{Base: value.Base{Origin: e}, Receiver: recv, Name: e.Method.QualifiedName(), Args: args}, nil
}
