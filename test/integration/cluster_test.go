package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/herald/internal/api"
	"github.com/dreamware/herald/internal/chat"
	"github.com/dreamware/herald/internal/failover"
	"github.com/dreamware/herald/internal/membership"
	"github.com/dreamware/herald/internal/notify"
	"github.com/dreamware/herald/internal/storage"
)

// TestNode is one in-process herald instance
type TestNode struct {
	t       *testing.T
	srv     *httptest.Server
	state   *failover.State
	coord   *failover.Coordinator
	members *membership.Store
	cancel  context.CancelFunc
	client  *http.Client
}

// nodeOptions configures startNode
type nodeOptions struct {
	role        failover.Role
	peer        string
	interval    time.Duration
	maxFailures int
}

func startNode(t *testing.T, opts nodeOptions) *TestNode {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	reg := notify.NewRegistry()
	disp := notify.NewDispatcher(reg, log)
	members := membership.NewStore()
	state := failover.NewState(opts.role)
	coord := failover.NewCoordinator(state, disp, log, failover.Options{
		Peer:        opts.peer,
		Interval:    opts.interval,
		Timeout:     200 * time.Millisecond,
		MaxFailures: opts.maxFailures,
	})

	s := api.New(api.Deps{
		Registry:    reg,
		Dispatcher:  disp,
		Waiter:      notify.NewWaiter(reg, members, state, 2*time.Second),
		Members:     members,
		State:       state,
		Coordinator: coord,
		Chat:        chat.NewRepository(storage.NewMemoryStore()),
		Log:         log,
	})

	n := &TestNode{
		t:       t,
		srv:     httptest.NewServer(s.Handler()),
		state:   state,
		coord:   coord,
		members: members,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	go coord.Start(ctx)

	t.Cleanup(n.Stop)
	return n
}

// Stop shuts the node down; safe to call twice
func (n *TestNode) Stop() {
	n.cancel()
	n.coord.Stop()
	n.srv.Close()
}

// URL returns the node's base URL
func (n *TestNode) URL() string {
	return n.srv.URL
}

// Do issues a request and decodes a JSON body when present
func (n *TestNode) Do(method, path string, body any) (int, map[string]any) {
	n.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(n.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, n.URL()+path, &buf)
	require.NoError(n.t, err)
	resp, err := n.client.Do(req)
	require.NoError(n.t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

type pollResult struct {
	code int
	body map[string]any
	took time.Duration
}

// Poll runs a GET in the background
func (n *TestNode) Poll(path string) <-chan pollResult {
	ch := make(chan pollResult, 1)
	go func() {
		start := time.Now()
		resp, err := n.client.Get(n.URL() + path)
		if err != nil {
			ch <- pollResult{code: -1, took: time.Since(start)}
			return
		}
		defer resp.Body.Close()
		res := pollResult{code: resp.StatusCode}
		if resp.StatusCode == http.StatusOK {
			_ = json.NewDecoder(resp.Body).Decode(&res.body)
		}
		res.took = time.Since(start)
		ch <- res
	}()
	return ch
}

func await(t *testing.T, ch <-chan pollResult, within time.Duration) pollResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(within):
		t.Fatalf("no response within %s", within)
		return pollResult{}
	}
}
