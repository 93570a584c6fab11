//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ludexhq/ludex/pkg/catalog"
)

func fixtureEpoch(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix()
}

// fixtureCatalog is the upstream dataset the fake IGDB serves. Small on
// purpose: big enough for the matching scenarios, small enough to clone
// in well under a second.
func fixtureCatalog() map[string][]map[string]any {
	return map[string][]map[string]any{
		"games": {
			{"id": 1, "name": "Prey", "category": 0, "first_release_date": fixtureEpoch(2006, time.July, 11)},
			{"id": 2, "name": "Prey", "category": 0, "first_release_date": fixtureEpoch(2017, time.May, 5)},
			{"id": 3, "name": "The Witcher 3: Wild Hunt", "category": 0, "first_release_date": fixtureEpoch(2015, time.May, 19)},
			{"id": 4, "name": "Final Fantasy VII", "category": 0, "first_release_date": fixtureEpoch(1997, time.January, 31)},
		},
		"alternative_names": {
			{"id": 100, "name": "TW3", "game": 3},
		},
		"external_games": {
			{"id": 200, "uid": "292030", "category": 1, "game": 3},
		},
		"game_localizations": {},
		"companies":          {},
		"genres":             {},
		"platforms":          {},
	}
}

// fakeIGDB emulates the slice of the IGDB v4 API the service consumes:
// counts, paged Apicalypse queries and webhook registration.
type fakeIGDB struct {
	server *httptest.Server
	data   map[string][]map[string]any

	mu       sync.Mutex
	webhooks []registeredWebhook
	nextID   int64
}

type registeredWebhook struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

func newFakeIGDB(t *testing.T, data map[string][]map[string]any) *fakeIGDB {
	t.Helper()
	f := &fakeIGDB{data: data, nextID: 1}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIGDB) URL() string {
	return f.server.URL
}

func (f *fakeIGDB) registrations() []registeredWebhook {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]registeredWebhook(nil), f.webhooks...)
}

func (f *fakeIGDB) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Client-ID") == "" || r.Header.Get("Authorization") == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case path == "webhooks" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(f.registrations())

	case strings.HasSuffix(path, "/count"):
		items, ok := f.data[strings.TrimSuffix(path, "/count")]
		if !ok {
			http.Error(w, "unknown endpoint", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"count": %d}`, len(items))

	case strings.HasSuffix(path, "/webhooks"):
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		hook := registeredWebhook{ID: f.nextID, URL: r.PostForm.Get("url"), Active: true}
		f.nextID++
		f.webhooks = append(f.webhooks, hook)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(hook)

	default:
		items, ok := f.data[path]
		if !ok {
			http.Error(w, "unknown endpoint", http.StatusNotFound)
			return
		}
		f.servePage(w, r, items)
	}
}

func (f *fakeIGDB) servePage(w http.ResponseWriter, r *http.Request, items []map[string]any) {
	body, _ := io.ReadAll(r.Body)
	var limit, offset int
	if _, err := fmt.Sscanf(string(body), "fields *; limit %d; offset %d;", &limit, &offset); err != nil {
		http.Error(w, "unparseable query: "+string(body), http.StatusBadRequest)
		return
	}

	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	json.NewEncoder(w).Encode(items[offset:end])
}

// ludexServer manages a running ludex server process wired against a fake
// upstream and its own Mongo database.
type ludexServer struct {
	cmd      *exec.Cmd
	addr     string
	database string
	secret   string
	upstream *fakeIGDB
	client   *catalog.Client
	env      []string
	logFile  string
}

// startLudex launches the ludex binary against a fresh database and the
// given fake upstream, and waits for it to become healthy. The catalog is
// cloned on start; use waitForCount before querying.
func startLudex(t *testing.T, upstream *fakeIGDB) *ludexServer {
	t.Helper()
	requireStack(t)

	dataDir := t.TempDir()
	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	database := fmt.Sprintf("ludex_e2e_%d", time.Now().UnixNano())
	secret := "e2e-webhook-secret"
	logFile := dataDir + "/ludex.log"

	env := append(os.Environ(),
		fmt.Sprintf("LUDEX_PORT=%d", port),
		"LUDEX_MONGO_URI="+mongoURI,
		"LUDEX_MONGO_DATABASE="+database,
		"LUDEX_IGDB_BASE_URL="+upstream.URL(),
		"IGDB_CLIENT_ID=e2e-client",
		"IGDB_TOKEN=e2e-token",
		fmt.Sprintf("LUDEX_WEBHOOK_ROOT=http://%s/igdb/webhooks", addr),
		"LUDEX_WEBHOOK_SECRET="+secret,
		"LUDEX_CLONE_ON_START=true",
		"LUDEX_IGDB_RPS=200",
		"LUDEX_SHUTDOWN_TIMEOUT=5s",
		"LUDEX_LOG_LEVEL=debug",
		"LUDEX_CONFIG_PATH="+dataDir+"/nonexistent.yaml", // skip YAML file
	)

	cmd := exec.Command(ludexBin)
	cmd.Env = env

	lf, err := os.Create(logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start ludex: %v", err)
	}

	client, err := catalog.New(catalog.Config{
		BaseURL: "http://" + addr,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("catalog client: %v", err)
	}

	s := &ludexServer{
		cmd:      cmd,
		addr:     addr,
		database: database,
		secret:   secret,
		upstream: upstream,
		client:   client,
		env:      env,
		logFile:  logFile,
	}

	t.Cleanup(func() {
		s.stop()
		lf.Close()
		dropDatabase(t, database)
	})

	if err := s.waitHealthy(15 * time.Second); err != nil {
		t.Fatalf("ludex not healthy: %v\n%s", err, s.logTail(t))
	}
	return s
}

func (s *ludexServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *ludexServer) baseURL() string {
	return "http://" + s.addr
}

func (s *ludexServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("ludex not healthy after %s", timeout)
}

// waitForCount polls /health until the named collection reaches want
// documents. Clone-on-start finishes shortly after boot; this is how
// tests wait for it.
func (s *ludexServer) waitForCount(t *testing.T, collection string, want int64, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	last := int64(-1)
	for time.Now().Before(deadline) {
		h, err := s.client.Health(context.Background())
		if err == nil {
			last = h.Collections[collection]
			if last == want {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("%s count = %d after %s, want %d\n%s", collection, last, timeout, want, s.logTail(t))
}

// postWebhook delivers a webhook payload the way the upstream would and
// returns the HTTP status code.
func (s *ludexServer) postWebhook(t *testing.T, entity, method, secret, payload string) int {
	t.Helper()

	url := fmt.Sprintf("%s/igdb/webhooks/%s/%s", s.baseURL(), entity, method)
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("build webhook request: %v", err)
	}
	req.Header.Set("X-Secret", secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("deliver webhook: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

// runCLI runs a ludex subcommand against the same database and upstream
// as the running server. Stdout and stderr come back separately so JSON
// output stays parseable next to log lines.
func (s *ludexServer) runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := exec.Command(ludexBin, args...)
	cmd.Env = s.env

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func (s *ludexServer) logTail(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(s.logFile)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	return strings.Join(lines, "\n")
}

// dropDatabase removes a test database so runs do not accumulate.
func dropDatabase(t *testing.T, name string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Logf("drop database %s: %v", name, err)
		return
	}
	defer client.Disconnect(ctx)

	if err := client.Database(name).Drop(ctx); err != nil {
		t.Logf("drop database %s: %v", name, err)
	}
}

// freePort returns a free TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
