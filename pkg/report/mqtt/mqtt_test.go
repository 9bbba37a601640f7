package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic  string
		filter string
		match  bool
	}{
		{"rx1/meta", "rx1/meta", true},
		{"rx1/meta", "+/meta", true},
		{"rx1/frame", "+/meta", false},
		{"rx1/meta", "#", true},
		{"rx1/meta", "rx1/#", true},
		{"rx1", "rx1/#", true},
		{"rx2/meta", "rx1/#", false},
		{"rx1/meta/x", "+/meta", false},
		{"rx1", "+/meta", false},
		{"a/b/c", "a/+/c", true},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.match, MatchTopic(tc.topic, tc.filter), "%s ~ %s", tc.topic, tc.filter)
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	testCases := []struct {
		url    string
		broker string
		prefix string
		user   string
		pwd    string
		id     string
	}{
		{url: "mqtt://localhost:1883", broker: "tcp://localhost:1883", prefix: DefaultTopicPrefix},
		{url: "mqtt://localhost:1883/lab", broker: "tcp://localhost:1883", prefix: "lab/"},
		{url: "mqtts://u:p@broker:8883/a/b/?client-id=me", broker: "ssl://broker:8883", prefix: "a/b/", user: "u", pwd: "p", id: "me"},
		{url: "ws://broker:9001/", broker: "ws://broker:9001", prefix: DefaultTopicPrefix},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			opts, prefix, err := ClientOptionsFromURL(tc.url)
			require.NoError(t, err)
			require.Equal(t, tc.prefix, prefix)
			require.Len(t, opts.Servers, 1)
			require.Equal(t, tc.broker, opts.Servers[0].String())
			require.Equal(t, tc.user, opts.Username)
			require.Equal(t, tc.pwd, opts.Password)
			require.Equal(t, tc.id, opts.ClientID)
		})
	}
	_, _, err := ClientOptionsFromURL("mqtt:///nohost")
	require.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	info, ok := ParseMeta("rx1/meta", []byte(`{"description":"bench","encoding":"cbor","sampler":"pio"}`))
	require.True(t, ok)
	require.Equal(t, "rx1", info.ID)
	require.Equal(t, "cbor", info.Meta.Encoding)
	require.Equal(t, "pio", info.Meta.Sampler)

	info, ok = ParseMeta("rx1/meta", nil)
	require.False(t, ok)
	require.Equal(t, "rx1", info.ID)

	_, ok = ParseMeta("rx1/frame", []byte(`{}`))
	require.False(t, ok)
	_, ok = ParseMeta("rx1/meta", []byte(`{`))
	require.False(t, ok)
}

func TestReceiverTopic(t *testing.T) {
	require.Equal(t, "rx/frame", ReceiverTopic("rx", TopicFrame))
	require.Equal(t, "+/meta", ReceiverTopic("+", TopicMeta))
}
