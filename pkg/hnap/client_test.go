package hnap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testPIN       = "123456"
	testChallenge = "NtFlSP9flU8m2AU70WEF"
	testPublicKey = "305d015af2b24c26566dd6e5e0462963"
	testCookie    = "Cfy8rEDMHTNdNyNCyTH2"
)

// fakeDevice emulates the HNAP endpoint of a DCH sensor, including the
// challenge/response login and the HNAP_AUTH check on every other action.
type fakeDevice struct {
	pin              string
	latestDetection  bool
	latestDetectTime string
	isWater          string

	mu          sync.Mutex
	privateKey  string
	loggedIn    bool
	expireOnce  bool
	alwaysError bool
	loginCount  int
}

func (d *fakeDevice) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		action := strings.TrimSuffix(strings.TrimPrefix(strings.Trim(r.Header.Get("SOAPAction"), `"`), ActionBaseURL), `"`)
		params := parseRequestParams(body, action)

		d.mu.Lock()
		defer d.mu.Unlock()

		if action == "Login" {
			d.handleLogin(w, params)
			return
		}
		if !d.validAuth(r, action) || d.alwaysError || d.expireOnce {
			d.expireOnce = false
			d.loggedIn = false
			respond(w, action, fmt.Sprintf("<%sResult>ERROR</%sResult>", action, action))
			return
		}
		switch action {
		case "GetDeviceSettings":
			if params["ModuleID"] != "" {
				latest := ""
				if d.latestDetection {
					latest = fmt.Sprintf("<string>%sGetLatestDetection</string>", ActionBaseURL)
				}
				respond(w, action, fmt.Sprintf(
					"<GetDeviceSettingsResult>OK</GetDeviceSettingsResult><SOAPActions>%s"+
						"<string>%sGetMotionDetectorLogs</string>"+
						"<string>%sGetWaterDetectorState</string></SOAPActions>",
					latest, ActionBaseURL, ActionBaseURL))
				return
			}
			respond(w, action, "<GetDeviceSettingsResult>OK</GetDeviceSettingsResult>"+
				"<VendorName>D-Link</VendorName><ModelName>DCH-S150</ModelName>"+
				"<ModelDescription>WiFi Motion Sensor</ModelDescription>"+
				"<FirmwareVersion>1.22</FirmwareVersion><HardwareVersion>A1</HardwareVersion>"+
				"<DeviceMacId>00:11:22:33:44:55</DeviceMacId>")
		case "GetLatestDetection":
			respond(w, action, fmt.Sprintf("<GetLatestDetectionResult>OK</GetLatestDetectionResult>"+
				"<LatestDetectTime>%s</LatestDetectTime>", d.latestDetectTime))
		case "GetMotionDetectorLogs":
			respond(w, action, fmt.Sprintf("<GetMotionDetectorLogsResult>OK</GetMotionDetectorLogsResult>"+
				"<MotionDetectorLogList><MotionDetectorLog><TimeStamp>%s</TimeStamp>"+
				"<EventType>1</EventType></MotionDetectorLog></MotionDetectorLogList>", d.latestDetectTime))
		case "GetWaterDetectorState":
			respond(w, action, fmt.Sprintf("<GetWaterDetectorStateResult>OK</GetWaterDetectorStateResult>"+
				"<IsWater>%s</IsWater>", d.isWater))
		default:
			respond(w, action, fmt.Sprintf("<%sResult>ERROR</%sResult>", action, action))
		}
	}
}

func (d *fakeDevice) handleLogin(w http.ResponseWriter, params map[string]string) {
	switch params["Action"] {
	case "request":
		respond(w, "Login", fmt.Sprintf("<Challenge>%s</Challenge><PublicKey>%s</PublicKey><Cookie>%s</Cookie>",
			testChallenge, testPublicKey, testCookie))
	case "login":
		privateKey := hmacMD5Hex(testPublicKey+d.pin, testChallenge)
		expected := hmacMD5Hex(privateKey, testChallenge)
		if params["LoginPassword"] == expected {
			d.privateKey = privateKey
			d.loggedIn = true
			d.loginCount++
			respond(w, "Login", "<LoginResult>success</LoginResult>")
		} else {
			respond(w, "Login", "<LoginResult>failed</LoginResult>")
		}
	}
}

func (d *fakeDevice) logins() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loginCount
}

func (d *fakeDevice) validAuth(r *http.Request, action string) bool {
	if !d.loggedIn {
		return false
	}
	if !strings.Contains(r.Header.Get("Cookie"), "uid="+testCookie) {
		return false
	}
	auth := strings.Fields(r.Header.Get("HNAP_AUTH"))
	if len(auth) != 2 {
		return false
	}
	expected := hmacMD5Hex(d.privateKey, fmt.Sprintf(`%s"%s%s"`, auth[1], ActionBaseURL, action))
	return auth[0] == expected
}

func respond(w http.ResponseWriter, action, inner string) {
	fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?>`+
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`+
		`<%sResponse xmlns="%s">%s</%sResponse>`+
		`</soap:Body></soap:Envelope>`, action, ActionBaseURL, inner, action)
}

// parseRequestParams extracts the child elements of the action element of a
// request envelope.
func parseRequestParams(body []byte, action string) map[string]string {
	dec := xml.NewDecoder(strings.NewReader(string(body)))
	params := map[string]string{}
	inAction := false
	current := ""
	for {
		tok, err := dec.Token()
		if err != nil {
			return params
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == action {
				inAction = true
			} else if inAction {
				current = t.Name.Local
			}
		case xml.CharData:
			if current != "" {
				params[current] += string(t)
			}
		case xml.EndElement:
			if t.Name.Local == action {
				inAction = false
			}
			current = ""
		}
	}
}

func newTestDevice(t *testing.T, dev *fakeDevice) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(dev.handler())
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")
	client := NewClient(host, "Admin", dev.pin, 2*time.Second, zap.NewNop())
	// httptest serves on host:port, no /HNAP1 rewrite needed on the fake
	client.endpoint = srv.URL
	return srv, client
}

func TestLoginThenCall(t *testing.T) {
	require := require.New(t)

	dev := &fakeDevice{pin: testPIN, latestDetection: true, latestDetectTime: "1700000000"}
	_, client := newTestDevice(t, dev)

	err := client.Login(context.Background())
	require.NoError(err)

	vals, err := client.Call(context.Background(), "GetDeviceSettings", nil)
	require.NoError(err)
	assert.Equal(t, "D-Link", vals.Get("VendorName"))
	assert.Equal(t, "DCH-S150", vals.Get("ModelName"))
	assert.Equal(t, 1, dev.logins())
}

func TestCallLogsInLazily(t *testing.T) {
	require := require.New(t)

	dev := &fakeDevice{pin: testPIN}
	_, client := newTestDevice(t, dev)

	vals, err := client.Call(context.Background(), "GetDeviceSettings", nil)
	require.NoError(err)
	assert.Equal(t, "DCH-S150", vals.Get("ModelName"))
	assert.Equal(t, 1, dev.logins())
}

func TestLoginBadPassword(t *testing.T) {
	dev := &fakeDevice{pin: testPIN}
	_, client := newTestDevice(t, dev)
	client.password = "000000"

	err := client.Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestSessionExpiredRetriesOnce(t *testing.T) {
	require := require.New(t)

	dev := &fakeDevice{pin: testPIN}
	_, client := newTestDevice(t, dev)

	require.NoError(client.Login(context.Background()))

	// device drops the session: next call must re-login and retry exactly once
	dev.mu.Lock()
	dev.expireOnce = true
	dev.mu.Unlock()

	vals, err := client.Call(context.Background(), "GetDeviceSettings", nil)
	require.NoError(err)
	assert.Equal(t, "D-Link", vals.Get("VendorName"))
	assert.Equal(t, 2, dev.logins())
}

func TestSessionExpiredNoSecondRetry(t *testing.T) {
	require := require.New(t)

	dev := &fakeDevice{pin: testPIN}
	_, client := newTestDevice(t, dev)

	require.NoError(client.Login(context.Background()))

	dev.mu.Lock()
	dev.alwaysError = true
	dev.mu.Unlock()

	_, err := client.Call(context.Background(), "GetDeviceSettings", nil)
	require.ErrorIs(err, ErrSessionExpired)
	// initial login + the single recovery login, nothing more
	assert.Equal(t, 2, dev.logins())
}

func TestCallConnectionError(t *testing.T) {
	dev := &fakeDevice{pin: testPIN}
	srv, client := newTestDevice(t, dev)
	require.NoError(t, client.Login(context.Background()))
	srv.Close()

	_, err := client.Call(context.Background(), "GetDeviceSettings", nil)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestHMACMatchesFirmware(t *testing.T) {
	// fixed vector computed with the reference implementation
	assert.Equal(t, "80070713463E7749B90C2DC24911E275",
		hmacMD5Hex("key", "The quick brown fox jumps over the lazy dog"))
	assert.Len(t, hmacMD5Hex(testPublicKey+testPIN, testChallenge), 32)
}
