package parser

import (
	"context"
	"testing"

	"github.com/graphward/code-graph-guard/internal/engine"
)

func parse(t *testing.T, relPath, source string) []engine.ParsedEntity {
	t.Helper()
	p := New()
	entities, err := p.Parse(context.Background(), relPath, []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return entities
}

func findEntity(entities []engine.ParsedEntity, kind engine.EntityKind, name string) *engine.ParsedEntity {
	for i := range entities {
		if entities[i].Kind == kind && entities[i].Name == name {
			return &entities[i]
		}
	}
	return nil
}

func TestParseFunctionsAndCalls(t *testing.T) {
	src := `
function login(user) {
  const ok = validate(user);
  const session = new Session(user);
  return ok && session;
}

function validate(user) {
  return user != null;
}
`
	entities := parse(t, "src/auth.ts", src)

	file := findEntity(entities, engine.KindFile, "src/auth.ts")
	if file == nil {
		t.Fatal("expected File entity")
	}
	if len(file.Contains) != 2 {
		t.Errorf("expected 2 contained entities, got %+v", file.Contains)
	}

	login := findEntity(entities, engine.KindFunction, "login")
	if login == nil {
		t.Fatal("expected login function")
	}
	if len(login.Calls) != 1 || login.Calls[0] != "validate" {
		t.Errorf("unexpected calls: %+v", login.Calls)
	}
	if len(login.Instantiates) != 1 || login.Instantiates[0] != "Session" {
		t.Errorf("unexpected instantiates: %+v", login.Instantiates)
	}
}

func TestParseImportsAndExports(t *testing.T) {
	src := `
import React, { useState } from 'react';
import * as api from './api';

export default function App() {
  return null;
}

export { helper };

function helper() {}
`
	entities := parse(t, "src/app.ts", src)
	file := entities[0]

	if len(file.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %+v", file.Imports)
	}
	react := file.Imports[0]
	if react.Module != "react" {
		t.Errorf("unexpected module: %q", react.Module)
	}
	if len(react.Bindings) != 2 || react.Bindings[0] != "React" || react.Bindings[1] != "useState" {
		t.Errorf("unexpected react bindings: %+v", react.Bindings)
	}
	if file.Imports[1].Module != "./api" || len(file.Imports[1].Bindings) != 1 || file.Imports[1].Bindings[0] != "api" {
		t.Errorf("unexpected namespace import: %+v", file.Imports[1])
	}

	var defaultExport, named bool
	for _, exp := range file.Exports {
		if exp.Name == "App" && exp.Default {
			defaultExport = true
		}
		if exp.Name == "helper" && !exp.Default {
			named = true
		}
	}
	if !defaultExport || !named {
		t.Errorf("unexpected exports: %+v", file.Exports)
	}
}

func TestParseComponentAndHooks(t *testing.T) {
	src := `
import { useState } from 'react';

const LoginForm = (props) => {
  const [value, setValue] = useState('');
  return <form onSubmit={submit}>{value}</form>;
};

const formatName = (u) => u.name;
`
	entities := parse(t, "src/LoginForm.tsx", src)

	if c := findEntity(entities, engine.KindComponent, "LoginForm"); c == nil {
		t.Errorf("expected LoginForm classified as component, got %+v", entities)
	}
	if f := findEntity(entities, engine.KindFunction, "formatName"); f == nil {
		t.Error("expected formatName as plain function")
	}

	file := entities[0]
	found := false
	for _, h := range file.UsesHooks {
		if h == "useState" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected useState hook usage, got %+v", file.UsesHooks)
	}
}

func TestParseClassHeritage(t *testing.T) {
	src := `
interface Closable {
  close(): void;
}

class Connection implements Closable {
  close() {}
}

class PooledConnection extends Connection {
}
`
	entities := parse(t, "src/conn.ts", src)

	if i := findEntity(entities, engine.KindInterface, "Closable"); i == nil {
		t.Error("expected Closable interface")
	}
	conn := findEntity(entities, engine.KindClass, "Connection")
	if conn == nil {
		t.Fatal("expected Connection class")
	}
	if len(conn.Implements) != 1 || conn.Implements[0] != "Closable" {
		t.Errorf("unexpected implements: %+v", conn.Implements)
	}
	pooled := findEntity(entities, engine.KindClass, "PooledConnection")
	if pooled == nil {
		t.Fatal("expected PooledConnection class")
	}
	if len(pooled.Extends) != 1 || pooled.Extends[0] != "Connection" {
		t.Errorf("unexpected extends: %+v", pooled.Extends)
	}
}

func TestParseReactClassComponent(t *testing.T) {
	src := `
import React from 'react';

class Dashboard extends React.Component {
  render() {
    return <div />;
  }
}
`
	entities := parse(t, "src/Dashboard.tsx", src)
	if c := findEntity(entities, engine.KindComponent, "Dashboard"); c == nil {
		t.Errorf("expected Dashboard classified as component, got %+v", entities)
	}
}

func TestParseStyledComponents(t *testing.T) {
	src := "import styled from 'styled-components';\n\n" +
		"const Button = styled.button`\n  color: red;\n`;\n"

	entities := parse(t, "src/Button.ts", src)
	file := entities[0]
	if len(file.Styles) != 1 || file.Styles[0] != "Button" {
		t.Errorf("unexpected styles: %+v", file.Styles)
	}
}
