package protocol

import (
	"errors"
	"testing"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	action, err := Parse(`some preamble the model wrote
<tool_call>{"name":"search","arguments":{"queries":["quantum teleportation"],"goal":"find protocols"}}</tool_call>
trailing prose`)
	require.NoError(t, err)
	assert.Equal(t, KindToolCall, action.Kind)
	assert.Equal(t, "search", action.ToolName)
	assert.JSONEq(t, `{"queries":["quantum teleportation"],"goal":"find protocols"}`, string(action.ToolArgs))
}

func TestParseWriteOutline(t *testing.T) {
	action, err := Parse("<write_outline># Report\n## Intro <citation>ev_0001</citation></write_outline>")
	require.NoError(t, err)
	assert.Equal(t, KindWriteOutline, action.Kind)
	assert.Contains(t, action.Markdown, "<citation>ev_0001</citation>")
}

func TestParseTerminate(t *testing.T) {
	action, err := Parse("<terminate>stagnation after 3 rounds</terminate>")
	require.NoError(t, err)
	assert.Equal(t, KindTerminate, action.Kind)
	assert.Equal(t, "stagnation after 3 rounds", action.Reason)
}

func TestParseFirstTopLevelTagWins(t *testing.T) {
	action, err := Parse(`<terminate>first</terminate> then <write>ignored</write>`)
	require.NoError(t, err)
	assert.Equal(t, KindTerminate, action.Kind)
	assert.Equal(t, "first", action.Reason)
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse(`<tool_call>{"name": "search", "arguments": }</tool_call>`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrProtocol))
}

func TestParseNoTagIsProtocolError(t *testing.T) {
	_, err := Parse("just some prose with no action tag")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrProtocol))
}

func TestExtractCitationsDedupesAndPreservesOrder(t *testing.T) {
	md := "## A <citation>ev_0002,ev_0001</citation>\n## B <citation>ev_0001,ev_0003</citation>"
	ids := ExtractCitations(md)
	assert.Equal(t, []string{"ev_0002", "ev_0001", "ev_0003"}, ids)
}

func TestExtractFootnotes(t *testing.T) {
	body := "Quantum computers use qubits.[^ev_0001] This is reinforced.[^ev_0002] Again.[^ev_0001]"
	ids := ExtractFootnotes(body)
	assert.Equal(t, []string{"ev_0001", "ev_0002"}, ids)
}

func TestSerializeToolCallRoundTrips(t *testing.T) {
	text := SerializeToolCall("search", []byte(`{"queries":["x"]}`))
	action, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "search", action.ToolName)
	assert.JSONEq(t, `{"queries":["x"]}`, string(action.ToolArgs))
}
