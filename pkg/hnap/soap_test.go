package hnap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEnvelope(t *testing.T) {
	body := string(buildEnvelope("Login", map[string]string{
		"Username": "Admin",
		"Action":   "request",
	}))

	assert.Contains(t, body, `<Login xmlns="http://purenetworks.com/HNAP1/">`)
	assert.Contains(t, body, "<Username>Admin</Username>")
	assert.Contains(t, body, "<Action>request</Action>")
	assert.True(t, strings.HasSuffix(body, "</soap:Envelope>"))
}

func TestBuildEnvelopeEscapesParams(t *testing.T) {
	body := string(buildEnvelope("Login", map[string]string{
		"LoginPassword": `a<b&"c`,
	}))
	assert.Contains(t, body, "a&lt;b&amp;&#34;c")
}

func TestParseEnvelopeFlat(t *testing.T) {
	require := require.New(t)

	raw := `<?xml version="1.0"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><LoginResponse xmlns="http://purenetworks.com/HNAP1/">` +
		`<LoginResult>success</LoginResult><Challenge>abc</Challenge>` +
		`</LoginResponse></soap:Body></soap:Envelope>`

	vals, err := parseEnvelope([]byte(raw), "Login")
	require.NoError(err)
	assert.Equal(t, "success", vals.Get("LoginResult"))
	assert.Equal(t, "abc", vals.Get("Challenge"))
	assert.False(t, vals.Has("Missing"))
}

func TestParseEnvelopeNestedAndRepeated(t *testing.T) {
	require := require.New(t)

	raw := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		`<GetDeviceSettingsResponse xmlns="http://purenetworks.com/HNAP1/">` +
		`<SOAPActions><string>http://purenetworks.com/HNAP1/GetLatestDetection</string>` +
		`<string>http://purenetworks.com/HNAP1/GetMotionDetectorLogs</string></SOAPActions>` +
		`</GetDeviceSettingsResponse></soap:Body></soap:Envelope>`

	vals, err := parseEnvelope([]byte(raw), "GetDeviceSettings")
	require.NoError(err)
	require.Len(vals.All("string"), 2)
	assert.Equal(t, "http://purenetworks.com/HNAP1/GetLatestDetection", vals.All("string")[0])
	// container elements never contribute values
	assert.False(t, vals.Has("SOAPActions"))
}

func TestParseEnvelopeMissingResponse(t *testing.T) {
	raw := `<html><body>404</body></html>`
	_, err := parseEnvelope([]byte(raw), "Login")
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestParseEnvelopeGarbage(t *testing.T) {
	_, err := parseEnvelope([]byte("not xml at all <"), "Login")
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestValuesErrorResult(t *testing.T) {
	vals := Values{"GetLatestDetectionResult": {"ERROR"}}
	assert.True(t, vals.hasErrorResult())

	vals = Values{"GetLatestDetectionResult": {"OK"}, "LatestDetectTime": {"170"}}
	assert.False(t, vals.hasErrorResult())
}
