package nlu_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastnco/prometheus/nlu"
)

const sampleResponse = `{
  "text": "turn on welcome in #general",
  "intents": [
    {"id": "1", "name": "welcome_enable", "confidence": 0.97},
    {"id": "2", "name": "welcome_disable", "confidence": 0.02}
  ],
  "entities": {
    "channel:channel": [
      {"id": "3", "name": "channel", "role": "channel", "start": 19, "end": 27,
       "body": "#general", "confidence": 0.9, "type": "value", "value": "#general"}
    ]
  },
  "traits": {}
}`

func newServer(t *testing.T, h http.HandlerFunc) *nlu.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := nlu.New("secret", nlu.WithEndpoint(srv.URL+"/message"), nlu.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "turn on welcome in #general", r.URL.Query().Get("q"))
		assert.Empty(t, r.URL.Query().Get("entities"))
		_, _ = w.Write([]byte(sampleResponse))
	})

	msg, err := c.Classify(context.Background(), "turn on welcome in #general")
	require.NoError(t, err)

	top, ok := msg.TopIntent()
	require.True(t, ok)
	assert.Equal(t, "welcome_enable", top.Name)
	assert.InDelta(t, 0.97, top.Confidence, 1e-9)

	ents := msg.Entities["channel:channel"]
	require.Len(t, ents, 1)
	assert.Equal(t, "#general", ents[0].Body)
	assert.Equal(t, "value", ents[0].Type)
}

func TestDynamicEntities(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var got nlu.DynamicEntities
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("entities")), &got))
		assert.Equal(t, "welcome", got.Entities["feature"][0].Keyword)
		_, _ = w.Write([]byte(`{"text":"x","intents":[],"entities":{}}`))
	})

	msg, err := c.Message(context.Background(), "x", &nlu.DynamicEntities{
		Entities: map[string][]nlu.DynamicEntity{
			"feature": {{Keyword: "welcome", Synonyms: []string{"greeting"}}},
		},
	})
	require.NoError(t, err)
	_, ok := msg.TopIntent()
	assert.False(t, ok)
}

func TestAPIError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Bad auth, check token/params","code":"no-auth"}`))
	})

	_, err := c.Classify(context.Background(), "hello")
	var apiErr *nlu.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "no-auth", apiErr.Code)
}

func TestMalformedBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus/nlu: decode response")
}

func TestNewRequiresToken(t *testing.T) {
	_, err := nlu.New("")
	require.ErrorIs(t, err, nlu.ErrNoToken)
}
