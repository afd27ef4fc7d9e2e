// Package testserver runs the full RPC stack against a fake CRM for tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/leadboard/internal/crm"
	"github.com/rpggio/leadboard/internal/crm/crmtest"
	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/domain/calendar"
	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/rpggio/leadboard/internal/domain/role"
	"github.com/rpggio/leadboard/internal/mcp"
	"github.com/rpggio/leadboard/internal/sqlite"
	"github.com/rpggio/leadboard/internal/transport"
)

type TestServer struct {
	Server *httptest.Server
	CRM    *crmtest.Server
	DB     *sqlite.DB
	Store  *lead.Store
	Token  string
}

// New starts an RPC server guarded by token. The CRM fake starts empty;
// seed it and call pipeline.load before exercising leads.
func New(t *testing.T, token string) *TestServer {
	t.Helper()

	fake := crmtest.NewServer(lead.DefaultStages)
	fake.Token = "crm-" + token

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	stateRepo := sqlite.NewStateRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	activitySvc := activity.NewService(activityRepo, nil)

	client := crm.NewClient(fake.URL, fake.Token, crm.WithRateLimit(0))
	store := lead.NewStore(client,
		lead.WithState(stateRepo),
		lead.WithActivity(activitySvc),
	)

	handler := mcp.NewHandler(mcp.Services{
		Pipeline: store,
		Roles:    role.NewService(stateRepo, activitySvc, nil),
		Calendar: calendar.NewService(stateRepo, nil),
		Activity: activitySvc,
	})

	server := httptest.NewServer(transport.NewServer(handler, transport.Options{
		Auth: transport.AuthMiddleware(token),
	}))

	t.Cleanup(func() {
		server.Close()
		fake.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		CRM:    fake,
		DB:     db,
		Store:  store,
		Token:  token,
	}
}

// Response is a decoded JSON-RPC response.
type Response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Code         string          `json:"code"`
			Details      json.RawMessage `json:"details"`
			RecoveryHint string          `json:"recovery_hint"`
		} `json:"data"`
	} `json:"error"`
}

// Call posts one RPC request with the server token.
func (ts *TestServer) Call(t *testing.T, method string, params any) Response {
	t.Helper()
	status, resp := ts.CallWithToken(t, ts.Token, method, params)
	require.Equal(t, http.StatusOK, status)
	return resp
}

// CallWithToken posts one RPC request and returns the HTTP status alongside
// the decoded body. The body is empty when the status is not 200.
func (ts *TestServer) CallWithToken(t *testing.T, token, method string, params any) (int, Response) {
	t.Helper()
	body, err := json.Marshal(transport.Request{JSONRPC: "2.0", Method: method, Params: mustRaw(t, params), ID: 1})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out Response
	if res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	}
	return res.StatusCode, out
}

// Decode unmarshals a successful result into v.
func (r Response) Decode(t *testing.T, v any) {
	t.Helper()
	require.Nil(t, r.Error, "unexpected rpc error: %+v", r.Error)
	require.NoError(t, json.Unmarshal(r.Result, v))
}

func mustRaw(t *testing.T, params any) json.RawMessage {
	t.Helper()
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	require.NoError(t, err)
	return data
}
