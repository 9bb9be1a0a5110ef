package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestParams_ConnString(t *testing.T) {
	p := Params{
		{Key: "host", Value: "localhost"},
		{Key: "port", Value: "5432"},
		{Key: "dbname", Value: "metrics"},
	}
	assert.Equal(t, "host=localhost port=5432 dbname=metrics", p.ConnString())
	assert.Equal(t, "", Params{}.ConnString())

	v, ok := p.Get("port")
	assert.True(t, ok)
	assert.Equal(t, "5432", v)
	_, ok = p.Get("user")
	assert.False(t, ok)
}

func TestParams_YAMLKeepsOrder(t *testing.T) {
	doc := []byte("user: app\nhost: db\nport: 5433\nsslmode: disable\n")

	var p Params
	require.NoError(t, yaml.Unmarshal(doc, &p))
	assert.Equal(t, "user=app host=db port=5433 sslmode=disable", p.ConnString())

	out, err := yaml.Marshal(p)
	require.NoError(t, err)

	var back Params
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, p, back)
}

func TestParams_YAMLRejectsNonMapping(t *testing.T) {
	var p Params
	err := yaml.Unmarshal([]byte("- host\n- port\n"), &p)
	require.Error(t, err)
}
