package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/papapumpkin/scoreline/internal/dashboard"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/server"
	"github.com/papapumpkin/scoreline/internal/view"
)

func testDashboard(t *testing.T, teams ...string) *dashboard.Dashboard {
	t.Helper()
	if len(teams) == 0 {
		teams = []string{"India", "Australia"}
	}
	var records [][]string
	for _, team := range teams {
		records = append(records,
			[]string{team, team + "-A", "100", "50.5"},
			[]string{team, team + "-B", "200", "40.25"},
		)
	}
	tbl, err := dataset.NewTable("cricket", "batting",
		[]string{"team", "player", "runs", "average"}, records, "team", "player")
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	sp := dataset.NewSport("cricket", "Cricket")
	if err := sp.AddTable(tbl, []dataset.Metric{{Column: "runs", Compare: true}, {Column: "average", Compare: true}}); err != nil {
		t.Fatalf("AddTable: %v", err)
	}
	cat, err := dataset.NewCatalog(sp)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	d, err := dashboard.New(cat, "")
	if err != nil {
		t.Fatalf("dashboard.New: %v", err)
	}
	return d
}

func newTestServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	srv := server.New(testDashboard(t), server.WithLogger(io.Discard))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// wireSnapshot mirrors dashboard.Snapshot with outputs left undecoded.
type wireSnapshot struct {
	ID     string `json:"id"`
	Pass   int    `json:"pass"`
	Inputs []struct {
		Name         string `json:"name"`
		Value        string `json:"value"`
		Instantiated bool   `json:"instantiated"`
		Domain       struct {
			Options       []string `json:"options"`
			NotApplicable bool     `json:"not_applicable"`
		} `json:"domain"`
	} `json:"inputs"`
	Outputs []struct {
		Node        string          `json:"node"`
		State       string          `json:"state"`
		Placeholder string          `json:"placeholder"`
		Value       json.RawMessage `json:"value"`
	} `json:"outputs"`
}

func (w wireSnapshot) input(name string) (value string, live bool) {
	for _, in := range w.Inputs {
		if in.Name == name {
			return in.Value, in.Instantiated
		}
	}
	return "", false
}

func (w wireSnapshot) state(node string) string {
	for _, o := range w.Outputs {
		if o.Node == node {
			return o.State
		}
	}
	return ""
}

func createSession(t *testing.T, base string, body any) wireSnapshot {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/api/v1/sessions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var snap wireSnapshot
	decode(t, resp, &snap)
	if snap.ID == "" {
		t.Fatal("created session has no id")
	}
	return snap
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status   string   `json:"status"`
		Sessions int      `json:"sessions"`
		Sports   []string `json:"sports"`
	}
	decode(t, resp, &body)
	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if len(body.Sports) != 1 || body.Sports[0] != "cricket" {
		t.Errorf("sports = %v, want [cricket]", body.Sports)
	}
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	t.Run("default sport", func(t *testing.T) {
		t.Parallel()
		srv, ts := newTestServer(t)
		snap := createSession(t, ts.URL, nil)
		if v, _ := snap.input(dashboard.NodeSport); v != "cricket" {
			t.Errorf("sport = %q, want cricket", v)
		}
		if _, live := snap.input(dashboard.NodePlayer1); live {
			t.Error("player1 should not be instantiated without a team")
		}
		if srv.Len() != 1 {
			t.Errorf("Len = %d, want 1", srv.Len())
		}
	})

	t.Run("with selections", func(t *testing.T) {
		t.Parallel()
		_, ts := newTestServer(t)
		snap := createSession(t, ts.URL, server.CreateSessionRequest{Selections: []server.Selection{
			{Node: dashboard.NodeTeam, Value: "India"},
			{Node: dashboard.NodeCategory, Value: "batting"},
		}})
		if _, live := snap.input(dashboard.NodePlayer1); !live {
			t.Error("player1 should be instantiated")
		}
		if got := snap.state(dashboard.NodeOverview); got != "ready" {
			t.Errorf("overview state = %q, want ready", got)
		}
	})

	t.Run("invalid selection", func(t *testing.T) {
		t.Parallel()
		srv, ts := newTestServer(t)
		resp := do(t, http.MethodPost, ts.URL+"/api/v1/sessions", server.CreateSessionRequest{
			Selections: []server.Selection{{Node: dashboard.NodeTeam, Value: "Narnia"}},
		})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", resp.StatusCode)
		}
		if srv.Len() != 0 {
			t.Errorf("Len = %d, want 0", srv.Len())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		_, ts := newTestServer(t)
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/sessions", bytes.NewBufferString("{"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   server.Selection
		status int
	}{
		{"valid team", server.Selection{Node: dashboard.NodeTeam, Value: "India"}, http.StatusOK},
		{"clear", server.Selection{Node: dashboard.NodeTeam}, http.StatusOK},
		{"not an option", server.Selection{Node: dashboard.NodeTeam, Value: "Narnia"}, http.StatusUnprocessableEntity},
		{"player before team", server.Selection{Node: dashboard.NodePlayer1, Value: "India-A"}, http.StatusUnprocessableEntity},
		{"unknown node", server.Selection{Node: "venue", Value: "Lords"}, http.StatusNotFound},
		{"output node", server.Selection{Node: dashboard.NodeOverview, Value: "x"}, http.StatusBadRequest},
		{"missing node", server.Selection{Value: "India"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ts := newTestServer(t)
			snap := createSession(t, ts.URL, nil)

			resp := do(t, http.MethodPost, ts.URL+"/api/v1/sessions/"+snap.ID+"/selections", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status >= 400 {
				var e server.ErrorResponse
				decode(t, resp, &e)
				if e.Code != tt.status || e.Message == "" {
					t.Errorf("error body = %+v", e)
				}
			}
		})
	}
}

func TestComparisonFlow(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	snap := createSession(t, ts.URL, nil)
	url := ts.URL + "/api/v1/sessions/" + snap.ID + "/selections"

	for _, sel := range []server.Selection{
		{Node: dashboard.NodeTeam, Value: "India"},
		{Node: dashboard.NodeCategory, Value: "batting"},
		{Node: dashboard.NodePlayer1, Value: "India-A"},
		{Node: dashboard.NodePlayer2, Value: "India-B"},
	} {
		resp := do(t, http.MethodPost, url, sel)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("select %s=%s: status %d", sel.Node, sel.Value, resp.StatusCode)
		}
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/sessions/"+snap.ID, nil)
	var got wireSnapshot
	decode(t, resp, &got)
	if st := got.state(dashboard.NodeComparison); st != "ready" {
		t.Fatalf("comparison state = %q, want ready", st)
	}
	var cmpView view.Comparison
	for _, o := range got.Outputs {
		if o.Node == dashboard.NodeComparison {
			if err := json.Unmarshal(o.Value, &cmpView); err != nil {
				t.Fatalf("unmarshal comparison: %v", err)
			}
		}
	}
	if cmpView.PlayerA != "India-A" || cmpView.PlayerB != "India-B" {
		t.Errorf("comparison players = %q, %q", cmpView.PlayerA, cmpView.PlayerB)
	}

	// Switching team resets both player slots.
	resp = do(t, http.MethodPost, url, server.Selection{Node: dashboard.NodeTeam, Value: "Australia"})
	var sr struct {
		Result struct {
			Resets []struct {
				Node string `json:"node"`
			} `json:"resets"`
		} `json:"result"`
		Session wireSnapshot `json:"session"`
	}
	decode(t, resp, &sr)
	if v, _ := sr.Session.input(dashboard.NodePlayer1); v != "" {
		t.Errorf("player1 = %q after team change, want unset", v)
	}
	if st := sr.Session.state(dashboard.NodeComparison); st != "partial" {
		t.Errorf("comparison state = %q, want partial", st)
	}
	if len(sr.Result.Resets) != 2 {
		t.Errorf("resets = %d, want 2", len(sr.Result.Resets))
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	snap := createSession(t, ts.URL, nil)
	base := ts.URL + "/api/v1/sessions/" + snap.ID

	var opts server.OptionsResponse
	resp := do(t, http.MethodGet, base+"/nodes/team/options", nil)
	decode(t, resp, &opts)
	if want := []string{"India", "Australia"}; len(opts.Domain.Options) != 2 || opts.Domain.Options[0] != want[0] {
		t.Errorf("team options = %v, want %v", opts.Domain.Options, want)
	}

	resp = do(t, http.MethodGet, base+"/nodes/player1/options", nil)
	opts = server.OptionsResponse{}
	decode(t, resp, &opts)
	if opts.Instantiated || len(opts.Domain.Options) != 0 {
		t.Errorf("player1 before team = %+v, want uninstantiated and empty", opts)
	}

	resp = do(t, http.MethodGet, base+"/nodes/venue/options", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown node status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	snap := createSession(t, ts.URL, nil)

	resp := do(t, http.MethodDelete, ts.URL+"/api/v1/sessions/"+snap.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	if srv.Len() != 0 {
		t.Errorf("Len = %d, want 0", srv.Len())
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp = do(t, method, ts.URL+"/api/v1/sessions/"+snap.ID, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s after delete = %d, want 404", method, resp.StatusCode)
		}
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	a := createSession(t, ts.URL, nil)
	b := createSession(t, ts.URL, nil)

	do(t, http.MethodPost, ts.URL+"/api/v1/sessions/"+a.ID+"/selections",
		server.Selection{Node: dashboard.NodeTeam, Value: "India"})

	var got wireSnapshot
	decode(t, do(t, http.MethodGet, ts.URL+"/api/v1/sessions/"+b.ID, nil), &got)
	if v, _ := got.input(dashboard.NodeTeam); v != "" {
		t.Errorf("session b team = %q, want unset", v)
	}
}

func TestSetDashboard(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	old := createSession(t, ts.URL, nil)

	srv.SetDashboard(testDashboard(t, "England"))
	fresh := createSession(t, ts.URL, nil)

	var opts server.OptionsResponse
	decode(t, do(t, http.MethodGet, ts.URL+"/api/v1/sessions/"+fresh.ID+"/nodes/team/options", nil), &opts)
	if len(opts.Domain.Options) != 1 || opts.Domain.Options[0] != "England" {
		t.Errorf("new session teams = %v, want [England]", opts.Domain.Options)
	}

	opts = server.OptionsResponse{}
	decode(t, do(t, http.MethodGet, ts.URL+"/api/v1/sessions/"+old.ID+"/nodes/team/options", nil), &opts)
	if len(opts.Domain.Options) != 2 {
		t.Errorf("old session teams = %v, want the original two", opts.Domain.Options)
	}
}
