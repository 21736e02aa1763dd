package extract

import (
	"testing"

	"github.com/loupe-dev/loupe/internal/entity"
)

const tsSource = `import { Router } from "express"
import * as fs from "fs"

export interface User {
	id: string
}

export type UserMap = Record<string, User>

export class UserStore {
	private users: UserMap = {}

	add(user: User): void {
		this.users[user.id] = user
	}
}

export function loadUsers(path: string): User[] {
	return []
}

const parseLine = (line: string) => line.trim()

function internalHelper() {}

export const MAX_USERS = 100

app.get("/users", loadUsers)
`

func TestTypeScriptExtract(t *testing.T) {
	file, err := NewTypeScriptExtractor().Extract("src/users.ts", []byte(tsSource))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	byName := indexByName(file.Entities)

	user := mustEntity(t, byName, "User")
	if user.Kind != entity.KindInterface || !user.Exported {
		t.Fatalf("expected exported interface User, got %+v", user)
	}

	userMap := mustEntity(t, byName, "UserMap")
	if userMap.Kind != entity.KindType {
		t.Fatalf("expected type alias kind, got %s", userMap.Kind)
	}

	store := mustEntity(t, byName, "UserStore")
	if store.Kind != entity.KindClass || !store.Exported {
		t.Fatalf("expected exported class UserStore, got %+v", store)
	}

	add := mustEntity(t, byName, "add")
	if add.Kind != entity.KindMethod || add.Container != "UserStore" {
		t.Fatalf("expected UserStore method add, got %+v", add)
	}

	load := mustEntity(t, byName, "loadUsers")
	if load.Kind != entity.KindFunction || !load.Exported {
		t.Fatalf("expected exported function loadUsers, got %+v", load)
	}

	parse := mustEntity(t, byName, "parseLine")
	if parse.Kind != entity.KindFunction || parse.Exported {
		t.Fatalf("expected unexported arrow function parseLine, got %+v", parse)
	}

	max := mustEntity(t, byName, "MAX_USERS")
	if max.Kind != entity.KindConst || !max.Exported {
		t.Fatalf("expected exported const MAX_USERS, got %+v", max)
	}

	route := mustEntity(t, byName, "GET /users")
	if route.Kind != entity.KindRoute {
		t.Fatalf("expected route kind, got %s", route.Kind)
	}

	if !contains(file.Imports, "express") || !contains(file.Imports, "fs") {
		t.Fatalf("expected express and fs imports, got %v", file.Imports)
	}
	if contains(file.Exports, "internalHelper") {
		t.Fatalf("did not expect internalHelper in exports %v", file.Exports)
	}
	if !contains(file.Exports, "loadUsers") {
		t.Fatalf("expected loadUsers in exports %v", file.Exports)
	}
}

const tsxSource = `export function UserCard(props: { name: string }) {
	return <div>{props.name}</div>
}

export function renderAll() {
	return null
}
`

func TestTSXComponentDetection(t *testing.T) {
	file, err := NewTypeScriptExtractor().Extract("src/UserCard.tsx", []byte(tsxSource))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	byName := indexByName(file.Entities)
	card := mustEntity(t, byName, "UserCard")
	if card.Kind != entity.KindComponent {
		t.Fatalf("expected component kind for UserCard, got %s", card.Kind)
	}
	render := mustEntity(t, byName, "renderAll")
	if render.Kind != entity.KindFunction {
		t.Fatalf("expected lowercase function to stay a function, got %s", render.Kind)
	}
}
