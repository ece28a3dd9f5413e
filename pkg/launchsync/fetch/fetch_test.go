package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

const serverDoc = `<?xml version="1.0"?>
<ServerManifest version="1">
  <Name>Sanctuary</Name>
  <Description>Test server</Description>
  <LoginServer>127.0.0.1:20042</LoginServer>
  <LoginApiUrl>http://127.0.0.1/api/login</LoginApiUrl>
</ServerManifest>`

const clientDoc = `<?xml version="1.0"?>
<ClientManifest version="1" languages="en_US">
  <Folder name="Client">
    <File name="a.bin" size="3" hash="1"/>
    <Folder name="Data"><File name="b.bin" size="4" hash="2"/></Folder>
  </Folder>
</ClientManifest>`

type route struct {
	status      int
	contentType string
	body        string
}

func newServer(t *testing.T, routes map[string]route) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if rt.contentType != "" {
			w.Header().Set("Content-Type", rt.contentType)
		}
		status := rt.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(rt.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestFetchServerManifest(t *testing.T) {
	srv := newServer(t, map[string]route{
		"/servermanifest.xml": {contentType: "text/xml; charset=utf-8", body: serverDoc},
	})

	m, err := newClient(t).FetchServerManifest(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "Sanctuary", m.Name)
	assert.Equal(t, "127.0.0.1:20042", m.LoginServer)
}

func TestFetchClientManifest(t *testing.T) {
	srv := newServer(t, map[string]route{
		"/clientmanifest.xml": {contentType: "application/xml", body: clientDoc},
	})

	m, err := newClient(t).FetchClientManifest(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, m.FileCount())
	assert.Equal(t, []manifest.Locale{manifest.LocaleEnUS}, m.Locales)
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name     string
		route    route
		sentinel error
		kind     types.Kind
	}{
		{
			name:     "not found",
			route:    route{status: http.StatusNotFound, contentType: "text/xml", body: clientDoc},
			sentinel: types.ErrHTTPStatus,
			kind:     types.KindNetwork,
		},
		{
			name:     "server error",
			route:    route{status: http.StatusInternalServerError, contentType: "text/xml"},
			sentinel: types.ErrHTTPStatus,
			kind:     types.KindNetwork,
		},
		{
			name:     "wrong content type",
			route:    route{contentType: "application/json", body: clientDoc},
			sentinel: types.ErrContentType,
			kind:     types.KindProtocol,
		},
		{
			name:     "sniffed plain text",
			route:    route{contentType: "", body: "{}"},
			sentinel: types.ErrContentType,
			kind:     types.KindProtocol,
		},
		{
			name:     "version 2",
			route:    route{contentType: "text/xml", body: `<ClientManifest version="2" languages="bogus"><Nope/></ClientManifest>`},
			sentinel: types.ErrVersionMismatch,
			kind:     types.KindProtocol,
		},
		{
			name:     "schema violation",
			route:    route{contentType: "text/xml", body: `<ClientManifest version="1" languages="en_US"><Folder name="r"><File name="a"/></Folder></ClientManifest>`},
			sentinel: types.ErrSchema,
			kind:     types.KindProtocol,
		},
		{
			name:     "malformed",
			route:    route{contentType: "text/xml", body: `<ClientManifest version="1" languages="en_US"><Folder`},
			sentinel: types.ErrMalformed,
			kind:     types.KindProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, map[string]route{"/clientmanifest.xml": tt.route})

			_, err := newClient(t).FetchClientManifest(context.Background(), srv.URL)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var te *types.Error
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.kind, te.Kind)
			assert.Equal(t, srv.URL+"/clientmanifest.xml", te.Target)
		})
	}
}

func TestFetch_VersionMismatchIsNotSchemaError(t *testing.T) {
	srv := newServer(t, map[string]route{
		"/servermanifest.xml": {contentType: "text/xml", body: `<ServerManifest version="2"><Garbage/></ServerManifest>`},
	})

	_, err := newClient(t).FetchServerManifest(context.Background(), srv.URL)
	assert.ErrorIs(t, err, types.ErrVersionMismatch)
	assert.NotErrorIs(t, err, types.ErrSchema)
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t).FetchServerManifest(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, types.KindNetwork, types.KindOf(err))
}

func TestFetch_Canceled(t *testing.T) {
	srv := newServer(t, map[string]route{
		"/servermanifest.xml": {contentType: "text/xml", body: serverDoc},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t).FetchServerManifest(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, types.KindCanceled, types.KindOf(err))
}

func TestFetch_SendsUserAgent(t *testing.T) {
	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(serverDoc))
	}))
	defer srv.Close()

	c, err := New(Options{UserAgent: "launchsync-test/1.0"})
	require.NoError(t, err)
	_, err = c.FetchServerManifest(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "launchsync-test/1.0", <-agents)
}

func TestOptions_Validate(t *testing.T) {
	var o Options
	require.NoError(t, o.Validate())
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultUserAgent, o.UserAgent)
	require.NotNil(t, o.HTTPClient)
	assert.IsType(t, &LoggingTransport{}, o.HTTPClient.Transport)

	bad := Options{Timeout: -time.Second}
	assert.Error(t, bad.Validate())
}

func TestIsXMLMediaType(t *testing.T) {
	assert.True(t, IsXMLMediaType("text/xml"))
	assert.True(t, IsXMLMediaType("application/xml; charset=utf-8"))
	assert.True(t, IsXMLMediaType("TEXT/XML"))
	assert.False(t, IsXMLMediaType("application/xhtml+xml"))
	assert.False(t, IsXMLMediaType("text/html"))
	assert.False(t, IsXMLMediaType(""))
}

func TestDocumentURL(t *testing.T) {
	assert.Equal(t, "http://h/x/servermanifest.xml", DocumentURL("http://h/x/", "ServerManifest.xml"))
	assert.Equal(t, "http://h/clientmanifest.xml", DocumentURL("http://h", "/clientmanifest.xml"))
}

func TestValidateServerURL(t *testing.T) {
	got, err := ValidateServerURL("  https://play.example.org/fr  ")
	require.NoError(t, err)
	assert.Equal(t, "https://play.example.org/fr", got)

	for _, bad := range []string{"", "   ", "play.example.org", "ftp://h/x", "/relative", "http://"} {
		_, err := ValidateServerURL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, "input %q", bad)
	}
}
