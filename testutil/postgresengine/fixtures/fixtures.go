package fixtures

import (
	_ "embed"
)

// SchemaSQL creates or replaces the fixture schema. It is a multi-statement script and must
// be executed without bind arguments.
//
//go:embed schema.sql
var SchemaSQL string

// Locales lists the fixture locales in the order get_available_locales returns them.
var Locales = []struct {
	Code string
	Name string
}{
	{Code: "en_US", Name: "English (United States)"},
	{Code: "de_DE", Name: "German (Germany)"},
}
