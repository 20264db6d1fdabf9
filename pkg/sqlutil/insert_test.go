package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertBuilderSingleRow(t *testing.T) {
	query, args, err := NewInsert("messages", "id", "subject").
		Values("m1", "hello").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO messages (id, subject) VALUES ($1, $2)", query)
	assert.Equal(t, []interface{}{"m1", "hello"}, args)
}

func TestInsertBuilderMultiRow(t *testing.T) {
	builder := NewInsert("jobs", "id", "job_type", "user_id")
	builder.Values(1, "message", "u1")
	builder.Values(2, "template", "u2")

	query, args, err := builder.Build()

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO jobs (id, job_type, user_id) VALUES ($1, $2, $3), ($4, $5, $6)", query)
	assert.Len(t, args, 6)
	assert.Equal(t, 2, builder.Rows())
}

func TestInsertBuilderSuffix(t *testing.T) {
	query, _, err := NewInsert("messages", "id").
		Values("m1").
		Suffix("ON CONFLICT (id) DO NOTHING").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO messages (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", query)
}

func TestInsertBuilderNoRows(t *testing.T) {
	_, _, err := NewInsert("messages", "id").Build()
	require.Error(t, err)
}

func TestInsertBuilderArityMismatch(t *testing.T) {
	_, _, err := NewInsert("messages", "id", "subject").
		Values("only-one").
		Build()
	require.Error(t, err)
}
