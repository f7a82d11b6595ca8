package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/events"
	"github.com/frahmantamala/lead-management/internal/transport"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type tokenAuth struct{}

func (tokenAuth) AuthenticateRequest(r *http.Request, allowQueryToken bool) (*auth.Principal, error) {
	token := r.URL.Query().Get("token")
	if !allowQueryToken || token != "good" {
		return nil, internal.ErrInvalidToken
	}
	return &auth.Principal{ID: 1, Name: "Rep", Role: auth.RoleSales}, nil
}

type stubRepo struct {
	mu        sync.Mutex
	lastScope Scope
}

func (r *stubRepo) CountTotal(_ context.Context, scope Scope) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastScope = scope
	return 3, nil
}

func (r *stubRepo) scope() Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastScope
}

func (r *stubRepo) CountByStatus(context.Context, Scope) ([]StatusCount, error) {
	return []StatusCount{{Status: "NEW", Count: 2}, {Status: "WON", Count: 1}}, nil
}

func (r *stubRepo) CountBySource(context.Context, Scope) ([]SourceCount, error) {
	return []SourceCount{{Source: "WEBSITE", Count: 3}}, nil
}

func (r *stubRepo) CountByOwner(context.Context, Scope) ([]OwnerCount, error) {
	return []OwnerCount{{OwnerID: 1, OwnerName: "Rep", Count: 3}}, nil
}

var _ = Describe("WebSocketHandler", func() {
	var (
		hub      *Hub
		notifier *Notifier
		repo     *stubRepo
		service  *Service
		server   *httptest.Server
		wsURL    string
	)

	BeforeEach(func() {
		lg := logger.Discard()
		hub = NewHub(lg)
		repo = &stubRepo{}
		service = NewService(repo, lg)
		notifier = NewNotifier(service, hub, lg)
		h := NewWebSocketHandler(transport.NewBaseHandler(lg), hub, notifier, tokenAuth{}, []string{"https://app.example.com"})

		r := chi.NewRouter()
		r.Get("/ws", h.ServeWS)
		server = httptest.NewServer(r)
		wsURL = "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	})

	AfterEach(func() {
		server.Close()
	})

	readMessage := func(conn *websocket.Conn) map[string]interface{} {
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, payload, err := conn.ReadMessage()
		Expect(err).NotTo(HaveOccurred())
		var msg map[string]interface{}
		Expect(json.Unmarshal(payload, &msg)).To(Succeed())
		return msg
	}

	It("sends a snapshot on connect and updates after mutations", func() {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		first := readMessage(conn)
		Expect(first["type"]).To(Equal(MessageTypeAnalyticsUpdate))
		Expect(first["data"]).To(HaveKeyWithValue("total", BeEquivalentTo(3)))
		Eventually(hub.Count).Should(Equal(1))

		evt := events.NewLeadChangedEvent(events.EventTypeLeadUpdated, 1, 1, 1, []string{"status"})
		Expect(notifier.HandleLeadMutation(context.Background(), evt)).To(Succeed())

		second := readMessage(conn)
		Expect(second["type"]).To(Equal(MessageTypeAnalyticsUpdate))
	})

	It("sends SALES observers the global snapshot while their dashboard stays scoped", func() {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		first := readMessage(conn)
		Expect(first["data"]).To(HaveKey("by_owner"))
		Expect(repo.scope().OwnerID).To(BeZero())

		dashboard := NewHandler(transport.NewBaseHandler(logger.Discard()), service)
		rep := &auth.Principal{ID: 1, Name: "Rep", Role: auth.RoleSales}
		req := httptest.NewRequest(http.MethodGet, "/dashboard/summary", nil)
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), rep))
		rec := httptest.NewRecorder()
		dashboard.Summary(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(repo.scope().OwnerID).To(BeEquivalentTo(1))
	})

	It("unregisters observers that disconnect", func() {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
		Expect(err).NotTo(HaveOccurred())
		readMessage(conn)
		Eventually(hub.Count).Should(Equal(1))

		Expect(conn.Close()).To(Succeed())

		Eventually(hub.Count, 2*time.Second).Should(BeZero())
	})

	It("rejects connections without a valid token", func() {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
		Expect(err).To(HaveOccurred())
		Expect(resp).NotTo(BeNil())
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(hub.Count()).To(BeZero())
	})

	It("rejects connections from foreign origins", func() {
		header := http.Header{"Origin": []string{"https://evil.example.com"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", header)
		Expect(err).To(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("accepts allowed origins", func() {
		header := http.Header{"Origin": []string{"https://app.example.com"}}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", header)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()
		Expect(readMessage(conn)["type"]).To(Equal(MessageTypeAnalyticsUpdate))
	})
})

var _ = Describe("Dashboard Handler", func() {
	var (
		repo   *stubRepo
		router *chi.Mux
		as     *auth.Principal
	)

	BeforeEach(func() {
		lg := logger.Discard()
		repo = &stubRepo{}
		h := NewHandler(transport.NewBaseHandler(lg), NewService(repo, lg))
		as = &auth.Principal{ID: 7, Role: auth.RoleSales}

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), as)))
			})
		})
		router.Get("/dashboard/summary", h.Summary)
		router.Get("/dashboard/status", h.ByStatus)
		router.Get("/dashboard/source", h.BySource)
		router.Get("/dashboard/owner", h.ByOwner)
	})

	get := func(path string) (int, map[string]interface{}) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return rec.Code, body
	}

	It("scopes the summary to the caller for SALES", func() {
		code, body := get("/dashboard/summary")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body["total"]).To(BeEquivalentTo(3))
		Expect(repo.scope().OwnerID).To(BeEquivalentTo(7))
	})

	It("returns every status for the status breakdown", func() {
		code, body := get("/dashboard/status")

		Expect(code).To(Equal(http.StatusOK))
		Expect(body["data"]).To(HaveLen(5))
		Expect(body["data"]).To(HaveKeyWithValue("LOST", BeEquivalentTo(0)))
	})

	It("returns the source and owner breakdowns", func() {
		_, source := get("/dashboard/source")
		Expect(source["data"]).To(HaveLen(1))

		_, owner := get("/dashboard/owner")
		Expect(owner["data"]).To(HaveLen(1))
	})

	It("does not scope managers", func() {
		as = &auth.Principal{ID: 2, Role: auth.RoleManager}
		get("/dashboard/summary")
		Expect(repo.scope().OwnerID).To(BeZero())
	})
})
