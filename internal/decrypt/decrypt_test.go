package decrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnc(t *testing.T) {
	// enc(c, a) for c < a is just tr(c, 36, a), and for small c this is a
	// single base-36-ish digit.
	assert.Equal(t, "0", enc(0, 62))
	assert.Equal(t, "1", enc(1, 62))
	assert.NotEmpty(t, enc(100, 62))
}

func TestBuildDictFallsBackToKeyWhenDataEmpty(t *testing.T) {
	data := []string{"one", "", "three"}
	dict := buildDict(62, 3, data)

	require.Len(t, dict, 3)
	assert.Equal(t, "one", dict[enc(0, 62)])
	assert.Equal(t, enc(1, 62), dict[enc(1, 62)]) // empty data -> key itself
	assert.Equal(t, "three", dict[enc(2, 62)])
}

func TestRewriteSubstitutesKnownIdentifiers(t *testing.T) {
	dict := map[string]string{
		"a": "hello",
		"b": "world",
	}
	out, err := rewrite("a(b)", dict)
	require.NoError(t, err)
	assert.Equal(t, "hello(world)", out)
}

func TestRewriteLeavesUnknownIdentifiersAlone(t *testing.T) {
	dict := map[string]string{"a": "x"}
	out, err := rewrite("a+unknown", dict)
	require.NoError(t, err)
	assert.Equal(t, "x+unknown", out)
}

func TestExtractPayloadParsesJSONArgument(t *testing.T) {
	js := `eval(function(p){return p}({"path":"/comic/1/","files":["001.jpg.webp"],"bid":1,"cid":2,"len":1}))`
	payload, err := extractPayload(js)
	require.NoError(t, err)
	assert.Equal(t, "/comic/1/", payload.Path)
	assert.Equal(t, []string{"001.jpg.webp"}, payload.Files)
	assert.EqualValues(t, 1, payload.Len)
}

func TestExtractPayloadShapeMismatch(t *testing.T) {
	_, err := extractPayload("not a function call")
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindJSON, derr.Kind)
}

func TestDecryptShapeMismatchOnPlainHTML(t *testing.T) {
	_, err := Decrypt("<html><body>no packer here</body></html>")
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, KindShape, derr.Kind)
}
