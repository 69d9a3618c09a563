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

package ir

// Inspect traverses the tree rooted at n in pre-order. If f returns false, the children of the node are skipped.
// Nested method bodies are not part of the tree and are never visited.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	each := func(ns ...Node) {
		for _, c := range ns {
			if c != nil && !isNilNode(c) {
				Inspect(c, f)
			}
		}
	}
	switch n := n.(type) {
	case *FieldAccess:
		each(n.X)
	case *Index:
		each(n.X, n.Index)
	case *Assign:
		each(n.Target, n.Value)
	case *VarDecl:
		if n.Init != nil {
			each(n.Init)
		}
	case *Unary:
		each(n.X)
	case *Binary:
		each(n.X, n.Y)
	case *Call:
		if n.Receiver != nil {
			each(n.Receiver)
		}
		for _, a := range n.Args {
			each(a)
		}
	case *Conditional:
		each(n.Cond, n.Then, n.Else)
	case *Cast:
		each(n.X)
	case *Block:
		for _, s := range n.Stmts {
			each(s)
		}
	case *If:
		each(n.Cond, n.Then)
		if n.Else != nil {
			each(n.Else)
		}
	case *While:
		each(n.Cond, n.Body)
	case *For:
		for _, s := range n.Init {
			each(s)
		}
		if n.Cond != nil {
			each(n.Cond)
		}
		for _, s := range n.Post {
			each(s)
		}
		each(n.Body)
	case *ForEach:
		each(n.Var, n.Iterable, n.Body)
	case *DoWhile:
		each(n.Body, n.Cond)
	case *ExprStmt:
		each(n.X)
	case *Throw:
		each(n.X)
	case *Try:
		each(n.Body)
		for _, c := range n.Catches {
			each(c.Body)
		}
		if n.Finally != nil {
			each(n.Finally)
		}
	case *Return:
		if n.X != nil {
			each(n.X)
		}
	case *Switch:
		each(n.Tag)
		for _, c := range n.Cases {
			for _, l := range c.Labels {
				each(l)
			}
			for _, s := range c.Body {
				each(s)
			}
		}
	}
}

// isNilNode catches typed nil pointers stored in interfaces, e.g. a nil *Block finally clause.
func isNilNode(n Node) bool {
	switch x := n.(type) {
	case *Block:
		return x == nil
	case *VarDecl:
		return x == nil
	}
	return false
}

// Calls returns the calls contained in n, in evaluation order.
func Calls(n Node) []*Call {
	var res []*Call
	Inspect(n, func(x Node) bool {
		if c, ok := x.(*Call); ok {
			res = append(res, c)
		}
		return true
	})
	return res
}

// AssignedNames returns the names of the variables assigned or declared in n, without duplicates, in order of
// first occurrence. Assignments through fields of this are reported as "this.f".
func AssignedNames(n Node) []string {
	seen := map[string]bool{}
	var res []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			res = append(res, s)
		}
	}
	Inspect(n, func(x Node) bool {
		switch x := x.(type) {
		case *Assign:
			add(TargetName(x.Target))
		case *VarDecl:
			add(x.Name)
		case *Unary:
			if x.Op == AddrOf {
				// the callee may write through the pointer
				add(TargetName(x.X))
			}
		}
		return true
	})
	return res
}

// TargetName returns the variable name an assignment to e binds, or "" if e is not a variable or a field of this.
func TargetName(e Expr) string {
	switch e := e.(type) {
	case *Name:
		return e.Ident
	case *FieldAccess:
		if _, ok := e.X.(*This); ok {
			return "this." + e.Field
		}
	case *Unary:
		if e.Op == Deref {
			return TargetName(e.X)
		}
	}
	return ""
}
