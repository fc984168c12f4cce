package main

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collomatique/colloml/pkg/colloml"
)

func decodeManifest(t *testing.T, src string) Manifest {
	t.Helper()
	var m Manifest
	_, err := toml.Decode(src, &m)
	require.NoError(t, err)
	return m
}

func TestManifestSchema(t *testing.T) {
	t.Run("objects and externals resolve", func(t *testing.T) {
		m := decodeManifest(t, `
[objects.Student]
name = "String"
age = "Int"
groups = "[Group]"
mentor = "Student?"

[objects.Group]
size = "Int"

[externals]
assigned = ["Student", "Int"]
rest_time = []
`)
		schema, err := m.Schema()
		require.NoError(t, err)

		student := schema.Objects["Student"]
		require.NotNil(t, student)
		assert.Equal(t, colloml.Simple(colloml.StringType()), student["name"])
		assert.Equal(t, colloml.Simple(colloml.IntType()), student["age"])
		assert.Equal(t,
			colloml.Simple(colloml.ListOf(colloml.Simple(colloml.ObjectType("Group")))),
			student["groups"])
		mentor, ok := colloml.Maybe(colloml.ObjectType("Student"))
		require.True(t, ok)
		assert.Equal(t, mentor, student["mentor"])

		require.Len(t, schema.Externals["assigned"], 2)
		assert.Equal(t, colloml.Simple(colloml.ObjectType("Student")), schema.Externals["assigned"][0])
		assert.Equal(t, colloml.Simple(colloml.IntType()), schema.Externals["assigned"][1])
		assert.Empty(t, schema.Externals["rest_time"])
	})

	t.Run("rejects reserved type names", func(t *testing.T) {
		m := decodeManifest(t, `
[objects.Slot]
lhs = "LinExpr"
`)
		_, err := m.Schema()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not allowed in a schema")
	})

	t.Run("rejects malformed type strings", func(t *testing.T) {
		for _, spec := range []string{"", "[Int", "Int??", "two words", "3Things"} {
			_, err := parseManifestType(spec)
			assert.Error(t, err, "type %q", spec)
		}
	})

	t.Run("schema compiles a program using its types", func(t *testing.T) {
		m := decodeManifest(t, `
[objects.Student]
age = "Int"

[externals]
pinned = ["Student"]
`)
		schema, err := m.Schema()
		require.NoError(t, err)

		sources := []colloml.Source{{Module: "main", Text: `
pub let total() -> LinExpr = sum s in @[Student] { s.age };
pub let pin_all() -> Constraint = forall s in @[Student] { $pinned(s) === 1 };
`}}
		_, _, err = colloml.Compile(sources, schema)
		require.NoError(t, err)
	})
}

func TestBuildSchemaMergesFlags(t *testing.T) {
	flags, err := schemaFromFlags([]string{"occupied:2", "flagged"})
	require.NoError(t, err)
	require.Len(t, flags.Externals["occupied"], 2)
	assert.Empty(t, flags.Externals["flagged"])

	_, err = schemaFromFlags([]string{"bad:x"})
	require.Error(t, err)
}
