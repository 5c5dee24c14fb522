package voice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func renderToMap(t *testing.T, r Response) map[string]any {
	t.Helper()
	raw, err := Render(r)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRender_Prompt(t *testing.T) {
	out := renderToMap(t, Prompt{
		Message:         "Welcome.",
		MaxDigits:       6,
		TerminatorDigit: "#",
		TimeoutMillis:   30000,
	})

	action := out["action"].(map[string]any)
	require.Equal(t, "runMenu", action["name"])
	require.Equal(t, true, action["barge"])

	menus := action["menus"].([]any)
	require.Len(t, menus, 1)
	menu := menus[0].(map[string]any)
	require.Equal(t, "main", menu["id"])
	require.Equal(t, "#tts[Welcome.]", menu["mainPrompt"])
	require.Equal(t, float64(6), menu["maxDigits"])
	require.Equal(t, float64(30000), menu["timeoutMills"])

	options := menu["options"].([]any)
	require.Len(t, options, 1)
	option := options[0].(map[string]any)
	require.Equal(t, "#", option["dtmf"])
	require.Equal(t, "return", option["action"])
}

func TestRender_Connect(t *testing.T) {
	out := renderToMap(t, Connect{
		ConferenceID: "conf-1",
		Announcement: "Connecting.",
		HoldMusic:    "music3",
	})

	instructions := out["instructions"].([]any)
	require.Len(t, instructions, 1)
	say := instructions[0].(map[string]any)
	require.Equal(t, "say", say["name"])
	require.Equal(t, "Connecting.", say["text"])

	action := out["action"].(map[string]any)
	require.Equal(t, "connectConf", action["name"])
	require.Equal(t, "conf-1", action["conferenceId"])
	require.Equal(t, "music3", action["moh"])
}

func TestRender_Hangup(t *testing.T) {
	out := renderToMap(t, Hangup{Announcement: "Sorry."})

	action := out["action"].(map[string]any)
	require.Equal(t, "hangup", action["name"])

	instructions := out["instructions"].([]any)
	say := instructions[0].(map[string]any)
	require.Equal(t, "Sorry.", say["text"])
}

func TestRender_EmptyHasNoBody(t *testing.T) {
	raw, err := Render(Empty{})
	require.NoError(t, err)
	require.Nil(t, raw)
}
