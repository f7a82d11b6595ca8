package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("RBACAuthorization", func() {
	var (
		rbac *RBACAuthorization
		ok   http.Handler
	)

	ginkgo.BeforeEach(func() {
		rbac = NewRBACAuthorization(logger.Discard())
		ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	serve := func(h http.Handler, p *Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		if p != nil {
			req = req.WithContext(ContextWithPrincipal(req.Context(), p))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	ginkgo.It("should return 401 without a principal", func() {
		w := serve(rbac.RequireAdmin()(ok), nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should let an admin through", func() {
		w := serve(rbac.RequireAdmin()(ok), &Principal{ID: 1, Role: RoleAdmin})
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("should return 403 with role details for a manager on admin routes", func() {
		w := serve(rbac.RequireAdmin()(ok), &Principal{ID: 2, Role: RoleManager})
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))

		var body struct {
			Error struct {
				Code    string                 `json:"code"`
				Details map[string]interface{} `json:"details"`
			} `json:"error"`
		}
		gomega.Expect(json.NewDecoder(w.Body).Decode(&body)).To(gomega.Succeed())
		gomega.Expect(body.Error.Code).To(gomega.Equal(string(internal.ErrCodeInsufficientRole)))
		gomega.Expect(body.Error.Details).To(gomega.HaveKeyWithValue("role", "MANAGER"))
		gomega.Expect(body.Error.Details["required_roles"]).To(gomega.ConsistOf("ADMIN"))
	})

	ginkgo.It("should admit managers and admins on manager routes only", func() {
		mw := rbac.RequireManager()
		gomega.Expect(serve(mw(ok), &Principal{Role: RoleManager}).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(mw(ok), &Principal{Role: RoleAdmin}).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(mw(ok), &Principal{Role: RoleSales}).Code).To(gomega.Equal(http.StatusForbidden))
	})
})

var _ = ginkgo.Describe("LeadVisibilityPolicy", func() {
	policy := LeadVisibilityPolicy{}
	sales := &Principal{ID: 7, Role: RoleSales}
	manager := &Principal{ID: 2, Role: RoleManager}

	ginkgo.It("should let sales access only owned leads", func() {
		gomega.Expect(policy.CanAccessLead(sales, 7)).To(gomega.Succeed())
		gomega.Expect(policy.CanAccessLead(sales, 8)).To(gomega.MatchError(internal.ErrLeadAccessDenied))
	})

	ginkgo.It("should let managers access every lead", func() {
		gomega.Expect(policy.CanAccessLead(manager, 8)).To(gomega.Succeed())
		gomega.Expect(policy.OwnerScope(manager)).To(gomega.BeZero())
	})

	ginkgo.It("should scope sales lists to their own id", func() {
		gomega.Expect(policy.OwnerScope(sales)).To(gomega.Equal(int64(7)))
	})

	ginkgo.It("should deny reassignment and deletion to sales", func() {
		gomega.Expect(policy.CanReassign(sales)).To(gomega.MatchError(internal.ErrReassignDenied))
		gomega.Expect(policy.CanDelete(sales)).To(gomega.HaveOccurred())
		gomega.Expect(policy.CanDelete(manager)).To(gomega.Succeed())
	})
})

var _ = ginkgo.Describe("ParseRole", func() {
	ginkgo.It("should accept canonical roles case-insensitively", func() {
		r, err := ParseRole(" manager ")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(r).To(gomega.Equal(RoleManager))
	})

	ginkgo.It("should reject legacy role names", func() {
		_, err := ParseRole("SALES_EXECUTIVE")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
