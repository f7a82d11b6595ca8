package lead_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/lead"
	"github.com/frahmantamala/lead-management/internal/transport"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Lead Handler", func() {
	var (
		f      *fixture
		router *chi.Mux
		as     *auth.Principal
	)

	BeforeEach(func() {
		f = newFixture()
		as = f.rep
		h := lead.NewHandler(transport.NewBaseHandler(logger.Discard()), f.service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), as)))
			})
		})
		router.Get("/leads", h.ListLeads)
		router.Post("/leads", h.CreateLead)
		router.Get("/leads/{id}", h.GetLead)
		router.Patch("/leads/{id}", h.UpdateLead)
		router.Delete("/leads/{id}", h.DeleteLead)
		router.Put("/leads/{id}/transfer", h.TransferLead)
		router.Get("/leads/{id}/history", h.GetLeadHistory)
	})

	AfterEach(func() {
		f.bus.Wait()
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	createdID := func(w *httptest.ResponseRecorder) int64 {
		var body struct {
			Lead lead.Lead `json:"lead"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body.Lead.ID
	}

	It("should create with 201 and return the lead envelope", func() {
		w := do(http.MethodPost, "/leads", `{"first_name":"Jo","email":"jo@acme.io"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(createdID(w)).To(BeNumerically(">", 0))
	})

	It("should ignore bookkeeping keys on PATCH", func() {
		w := do(http.MethodPost, "/leads", `{"first_name":"Jo","email":"jo@acme.io"}`)
		id := createdID(w)

		body := `{"id":999,"created_at":"2020-01-01T00:00:00Z","created_by_id":42,"owner":{"id":1},"status":"QUALIFIED"}`
		w = do(http.MethodPatch, fmt.Sprintf("/leads/%d", id), body)
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(http.MethodGet, fmt.Sprintf("/leads/%d/history", id), "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var history struct {
			Data []lead.HistoryEntry `json:"data"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&history)).To(Succeed())
		Expect(history.Data).To(HaveLen(1))
		Expect(history.Data[0].Field).To(Equal("status"))
	})

	It("should return the detail envelope with history", func() {
		id := createdID(do(http.MethodPost, "/leads", `{"first_name":"Jo","phone":"+12015550123"}`))

		w := do(http.MethodGet, fmt.Sprintf("/leads/%d", id), "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var detail map[string]json.RawMessage
		Expect(json.NewDecoder(w.Body).Decode(&detail)).To(Succeed())
		Expect(detail).To(HaveKey("lead"))
		Expect(detail).To(HaveKey("history"))
	})

	It("should answer 403 for another rep's lead and 404 for missing ones", func() {
		as = f.rep2
		id := createdID(do(http.MethodPost, "/leads", `{"first_name":"Theirs","email":"t@acme.io"}`))

		as = f.rep
		Expect(do(http.MethodGet, fmt.Sprintf("/leads/%d", id), "").Code).To(Equal(http.StatusForbidden))
		Expect(do(http.MethodGet, "/leads/99999", "").Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 409 on a stale version", func() {
		id := createdID(do(http.MethodPost, "/leads", `{"first_name":"Jo","email":"jo@acme.io"}`))
		Expect(do(http.MethodPatch, fmt.Sprintf("/leads/%d", id), `{"notes":"a","version":1}`).Code).To(Equal(http.StatusOK))

		w := do(http.MethodPatch, fmt.Sprintf("/leads/%d", id), `{"notes":"b","version":1}`)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring("LEAD_VERSION_CONFLICT"))
	})

	It("should list with the page envelope", func() {
		do(http.MethodPost, "/leads", `{"first_name":"A","email":"a@acme.io"}`)
		do(http.MethodPost, "/leads", `{"first_name":"B","email":"b@acme.io","status":"WON"}`)

		w := do(http.MethodGet, "/leads?status=won&limit=1", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var page struct {
			Data  []lead.Lead `json:"data"`
			Total int64       `json:"total"`
			Page  int         `json:"page"`
			Pages int         `json:"pages"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&page)).To(Succeed())
		Expect(page.Total).To(Equal(int64(1)))
		Expect(page.Data[0].FirstName).To(Equal("B"))
	})

	It("should delete for managers with 200", func() {
		id := createdID(do(http.MethodPost, "/leads", `{"first_name":"Gone","email":"g@acme.io"}`))
		Expect(do(http.MethodDelete, fmt.Sprintf("/leads/%d", id), "").Code).To(Equal(http.StatusForbidden))

		as = f.manager
		Expect(do(http.MethodDelete, fmt.Sprintf("/leads/%d", id), "").Code).To(Equal(http.StatusOK))
	})

	It("should transfer with newOwnerId", func() {
		id := createdID(do(http.MethodPost, "/leads", `{"first_name":"Move","email":"m@acme.io"}`))

		as = f.manager
		w := do(http.MethodPut, fmt.Sprintf("/leads/%d/transfer", id), fmt.Sprintf(`{"newOwnerId":%d}`, f.rep2.ID))
		Expect(w.Code).To(Equal(http.StatusOK))

		var body struct {
			Lead lead.Lead `json:"lead"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Lead.OwnerID).To(Equal(f.rep2.ID))
	})
})
