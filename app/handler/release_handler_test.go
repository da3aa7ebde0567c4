package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loanpilot/internal/model"
	"loanpilot/pkg/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// watchProvider is a DeploymentProvider that hands the registered watch
// callback to the test and reports when the watch context ends.
type watchProvider struct {
	callbacks chan interfaces.ReplicaCallback
	stopped   chan struct{}
}

func newWatchProvider() *watchProvider {
	return &watchProvider{
		callbacks: make(chan interfaces.ReplicaCallback, 1),
		stopped:   make(chan struct{}),
	}
}

func (p *watchProvider) Apply(ctx context.Context, release *model.Release) error {
	return errors.New("not implemented")
}

func (p *watchProvider) Status(ctx context.Context, name string) (*model.DeploymentStatus, error) {
	return nil, errors.New("not implemented")
}

func (p *watchProvider) Scale(ctx context.Context, name string, replicas int32) error {
	return errors.New("not implemented")
}

func (p *watchProvider) Delete(ctx context.Context, name string) error {
	return errors.New("not implemented")
}

func (p *watchProvider) ManifestYAML(release *model.Release) (string, error) {
	return "", errors.New("not implemented")
}

func (p *watchProvider) WatchReplicas(ctx context.Context, callback interfaces.ReplicaCallback) error {
	p.callbacks <- callback
	go func() {
		<-ctx.Done()
		close(p.stopped)
	}()
	return nil
}

func (p *watchProvider) Close() {}

func newWatchTestServer(t *testing.T, provider interfaces.DeploymentProvider) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := &ReleaseHandler{deploymentProvider: provider}
	r.GET("/watch", h.WatchReplicas)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialWatch(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	return conn
}

func TestWatchReplicasStreamsEvents(t *testing.T) {
	provider := newWatchProvider()
	srv := newWatchTestServer(t, provider)

	conn := dialWatch(t, srv)
	defer conn.Close()

	var callback interfaces.ReplicaCallback
	select {
	case callback = <-provider.callbacks:
	case <-time.After(2 * time.Second):
		t.Fatal("watch callback was never registered")
	}

	callback(interfaces.ReplicaEvent{
		Name:            "loan-prediction-app",
		DesiredReplicas: 2,
		ReadyReplicas:   1,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	var event interfaces.ReplicaEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("invalid event payload: %v", err)
	}
	if event.Name != "loan-prediction-app" {
		t.Errorf("expected deployment name, got %s", event.Name)
	}
	if event.DesiredReplicas != 2 || event.ReadyReplicas != 1 {
		t.Errorf("unexpected replica counts: %+v", event)
	}
}

func TestWatchReplicasStopsOnClientDisconnect(t *testing.T) {
	provider := newWatchProvider()
	srv := newWatchTestServer(t, provider)

	conn := dialWatch(t, srv)

	select {
	case <-provider.callbacks:
	case <-time.After(2 * time.Second):
		t.Fatal("watch callback was never registered")
	}

	// Dropping the connection must end the handler and cancel the watch,
	// even though no event is in flight to fail a write.
	conn.Close()

	select {
	case <-provider.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("watch was not cancelled after the client disconnected")
	}
}

func TestWatchReplicasWithoutProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/watch", nil)

	h := &ReleaseHandler{}
	h.WatchReplicas(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
