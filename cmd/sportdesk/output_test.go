package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/sportdesk/pkg/models"
)

func TestWriteOutput(t *testing.T) {
	page := models.NewResultPage([]models.Entity{{ID: "u1", Name: "Jo"}}, 1, 1, 1, 10)

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", page))
	assert.Contains(t, buf.String(), `"current_page": 1`)
	assert.Contains(t, buf.String(), `"_id": "u1"`)

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "yaml", page))
	assert.Contains(t, buf.String(), "current_page: 1")
	assert.Contains(t, buf.String(), "id: u1")

	assert.Error(t, writeOutput(&buf, "xml", page))
}
