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

package semantics

import (
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-txeffects/analysis/interp"
	"github.com/awslabs/ar-go-txeffects/analysis/ir"
	"github.com/awslabs/ar-go-txeffects/analysis/schema"
	"github.com/awslabs/ar-go-txeffects/analysis/value"
)

func registerStrings(reg *interp.Registry) {
	reg.Register("java.lang.String.format", format)
	reg.Register("fmt.Sprintf", format)
	for _, name := range []string{"java.lang.String.valueOf", "java.lang.Integer.toString", "java.lang.Long.toString",
		"java.lang.Double.toString", "strconv.Itoa", "strconv.FormatInt"} {
		reg.Register(name, toString)
	}
	reg.Register("java.lang.Object.toString", toString)
	reg.Register("java.lang.String.equals", equals)
	reg.Register("java.lang.String.concat", concat)
	reg.Register("java.lang.Integer.parseInt", parseInt)
	reg.Register("java.lang.Long.parseLong", parseInt)
	for _, name := range []string{"time.Now", "java.time.LocalDateTime.now", "java.time.LocalDate.now",
		"java.lang.System.currentTimeMillis", "java.util.Date.<init>", "java.sql.Timestamp.<init>"} {
		reg.Register(name, now)
	}
}

// format interprets String.format and fmt.Sprintf as the concatenation of the literal parts of the format with the
// textual form of the arguments. Flags, width and precision are ignored.
func format(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
	f, ok := constString(argAt(args, 0))
	if !ok {
		return nil, nil
	}
	args = tail(args, 1)
	var acc value.Value
	add := func(v value.Value) {
		if s, ok := constString(v); ok && s == "" {
			return
		}
		if acc == nil {
			acc = v
		} else {
			acc = value.Apply(in.Sink(), value.Add, acc, v, call)
		}
	}
	var lit strings.Builder
	k := 0
	for i := 0; i < len(f); i++ {
		if f[i] != '%' {
			lit.WriteByte(f[i])
			continue
		}
		j := i + 1
		for j < len(f) && !isVerb(f[j]) {
			j++
		}
		if j >= len(f) {
			lit.WriteString(f[i:])
			break
		}
		switch f[j] {
		case '%':
			lit.WriteByte('%')
		case 'n':
			lit.WriteByte('\n')
		default:
			add(value.Str(lit.String()))
			lit.Reset()
			add(text(in, argAt(args, k)))
			k++
		}
		i = j
	}
	add(value.Str(lit.String()))
	if acc == nil {
		return value.Str(""), nil
	}
	return acc, nil
}

func isVerb(c byte) bool {
	return c == '%' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// text returns the textual form of a formatted argument. Symbolic values are kept as is: the SQL template they end
// up in gives them a type.
func text(in *interp.Interpreter, v value.Value) value.Value {
	c, ok := v.(*value.Constant)
	if !ok {
		return v
	}
	switch d := c.Data.(type) {
	case bool:
		return value.Str(strconv.FormatBool(d))
	case string:
		return c
	}
	return value.ApplyUnary(in.Sink(), value.I2S, c, nil)
}

func toString(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	x := recv
	if len(args) > 0 {
		x = args[0]
	}
	if x == nil {
		return nil, nil
	}
	if c, ok := x.(*value.Constant); ok {
		return text(in, c), nil
	}
	if f, ok := x.(*value.Free); ok && f.Type.IsString() {
		return f, nil
	}
	return value.ApplyUnary(in.Sink(), value.I2S, x, call), nil
}

func equals(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	if recv == nil {
		return nil, nil
	}
	return value.Apply(in.Sink(), value.Eq, recv, argAt(args, 0), call), nil
}

func concat(in *interp.Interpreter, call *ir.Call, recv value.Value, args []value.Value) (value.Value, error) {
	if recv == nil {
		return nil, nil
	}
	return value.Apply(in.Sink(), value.Add, recv, argAt(args, 0), call), nil
}

// parseInt folds constants and undoes the conversion of integer columns to strings.
func parseInt(in *interp.Interpreter, call *ir.Call, _ value.Value, args []value.Value) (value.Value, error) {
	switch x := argAt(args, 0).(type) {
	case *value.Constant:
		if s, ok := x.Data.(string); ok {
			if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return value.Int(i), nil
			}
		}
	case *value.Unary:
		if x.Op == value.I2S {
			return x.Operand, nil
		}
	}
	return nil, nil
}

// now is the current date, a free argument shared by every read of the clock within an effect.
func now(in *interp.Interpreter, _ *ir.Call, _ value.Value, _ []value.Value) (value.Value, error) {
	t := schema.Datetime.IRType()
	in.AddArg("now", t)
	return &value.Free{Name: "now", Type: t}, nil
}
