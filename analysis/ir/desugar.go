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

import "fmt"

// A Desugarer rewrites every loop form into While. Statements that contain no loop are returned unchanged, so
// statement identity is preserved wherever possible.
type Desugarer struct {
	counter int
}

// Desugar rewrites the loops of s with a fresh Desugarer.
func Desugar(s Stmt) Stmt {
	d := &Desugarer{}
	return d.Stmt(s)
}

// DesugarProgram rewrites the body of every method of p in place.
func DesugarProgram(p *Program) {
	d := &Desugarer{}
	for _, m := range p.Methods() {
		if m.Body != nil {
			m.Body = d.Block(m.Body)
		}
	}
}

// Block desugars a block.
func (d *Desugarer) Block(b *Block) *Block {
	if b == nil {
		return nil
	}
	if out, ok := d.Stmt(b).(*Block); ok {
		return out
	}
	return b
}

// Stmt desugars s.
func (d *Desugarer) Stmt(s Stmt) Stmt {
	switch s := s.(type) {
	case nil:
		return nil
	case *Block:
		changed := false
		stmts := make([]Stmt, len(s.Stmts))
		for i, c := range s.Stmts {
			stmts[i] = d.Stmt(c)
			changed = changed || stmts[i] != c
		}
		if !changed {
			return s
		}
		return &Block{StmtInfo: s.StmtInfo, Stmts: stmts}
	case *If:
		then, els := d.Stmt(s.Then), d.Stmt(s.Else)
		if then == s.Then && els == s.Else {
			return s
		}
		return &If{StmtInfo: s.StmtInfo, Cond: s.Cond, Then: then, Else: els}
	case *While:
		body := d.Stmt(s.Body)
		if body == s.Body {
			return s
		}
		return &While{StmtInfo: s.StmtInfo, Cond: s.Cond, Body: body}
	case *For:
		return d.forLoop(s)
	case *ForEach:
		return d.forEach(s)
	case *DoWhile:
		return d.doWhile(s)
	case *Try:
		body := d.Block(s.Body)
		catches := make([]*Catch, len(s.Catches))
		changed := body != s.Body
		for i, c := range s.Catches {
			nb := d.Block(c.Body)
			catches[i] = c
			if nb != c.Body {
				catches[i] = &Catch{Name: c.Name, Type: c.Type, Body: nb}
				changed = true
			}
		}
		fin := d.Block(s.Finally)
		if !changed && fin == s.Finally {
			return s
		}
		return &Try{StmtInfo: s.StmtInfo, Body: body, Catches: catches, Finally: fin}
	case *Switch:
		changed := false
		cases := make([]*Case, len(s.Cases))
		for i, c := range s.Cases {
			cases[i] = c
			body := make([]Stmt, len(c.Body))
			cc := false
			for j, st := range c.Body {
				body[j] = d.Stmt(st)
				cc = cc || body[j] != st
			}
			if cc {
				cases[i] = &Case{Labels: c.Labels, Body: body}
				changed = true
			}
		}
		if !changed {
			return s
		}
		return &Switch{StmtInfo: s.StmtInfo, Tag: s.Tag, Cases: cases}
	default:
		return s
	}
}

// loopBody returns the desugared body of a loop as the head of a statement list. A missing body is empty.
func (d *Desugarer) loopBody(body Stmt) []Stmt {
	if body == nil {
		return nil
	}
	if b, ok := body.(*Block); ok && b == nil {
		return nil
	}
	return []Stmt{d.Stmt(body)}
}

// for (init; cond; post) body  =>  { init; while (cond) { body; post } }
func (d *Desugarer) forLoop(s *For) Stmt {
	cond := s.Cond
	if cond == nil {
		cond = Bool(true)
	}
	inner := d.loopBody(s.Body)
	inner = append(inner, s.Post...)
	loop := &While{StmtInfo: s.StmtInfo, Cond: cond, Body: &Block{StmtInfo: s.StmtInfo, Stmts: inner}}
	stmts := make([]Stmt, 0, len(s.Init)+1)
	stmts = append(stmts, s.Init...)
	stmts = append(stmts, loop)
	return &Block{StmtInfo: s.StmtInfo, Stmts: stmts}
}

// for (x : xs) body  =>  { int i = 0; while (i < xs.length) { x = xs[i]; body; i += 1 } }
func (d *Desugarer) forEach(s *ForEach) Stmt {
	d.counter++
	idx := fmt.Sprintf("$idx%d", d.counter)
	pos := s.Position
	counter := func() *Name { return &Name{ExprInfo: ExprInfo{Position: pos, Typ: TypeInt}, Ident: idx} }
	length := &FieldAccess{ExprInfo: ExprInfo{Position: pos, Typ: TypeInt}, X: s.Iterable, Field: "length"}
	elem := &Index{ExprInfo: ExprInfo{Position: pos, Typ: s.Var.Typ}, X: s.Iterable, Index: counter()}
	bind := &VarDecl{ExprInfo: s.Var.ExprInfo, Name: s.Var.Name, Init: elem}
	step := &Assign{ExprInfo: ExprInfo{Position: pos, Typ: TypeInt}, Target: counter(), Op: Add, Value: Int(1)}
	loop := &While{
		StmtInfo: s.StmtInfo,
		Cond:     Bin(Lt, counter(), length),
		Body: &Block{StmtInfo: s.StmtInfo, Stmts: append(append(
			[]Stmt{&ExprStmt{StmtInfo: s.StmtInfo, X: bind}},
			d.loopBody(s.Body)...),
			&ExprStmt{StmtInfo: s.StmtInfo, X: step},
		)},
	}
	init := &ExprStmt{StmtInfo: s.StmtInfo, X: &VarDecl{ExprInfo: ExprInfo{Position: pos, Typ: TypeInt}, Name: idx, Init: Int(0)}}
	return &Block{StmtInfo: s.StmtInfo, Stmts: []Stmt{init, loop}}
}

// do body while (cond)  =>  while (true) { body; if (!cond) break; }
func (d *Desugarer) doWhile(s *DoWhile) Stmt {
	exit := &If{StmtInfo: s.StmtInfo, Cond: Un(Not, s.Cond), Then: &Break{StmtInfo: s.StmtInfo}}
	return &While{
		StmtInfo: s.StmtInfo,
		Cond:     Bool(true),
		Body:     &Block{StmtInfo: s.StmtInfo, Stmts: append(d.loopBody(s.Body), exit)},
	}
}
