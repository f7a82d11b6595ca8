package lead_test

import (
	"context"
	"sync"
	"testing"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	"github.com/frahmantamala/lead-management/internal/core/database"
	activityDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/activity"
	leadDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/lead"
	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
	"github.com/frahmantamala/lead-management/internal/core/events"
	"github.com/frahmantamala/lead-management/internal/lead"
	leadPostgres "github.com/frahmantamala/lead-management/internal/lead/postgres"
	"github.com/frahmantamala/lead-management/internal/user"
	userPostgres "github.com/frahmantamala/lead-management/internal/user/postgres"
	"github.com/frahmantamala/lead-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestLead(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lead Suite")
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	bus      *events.EventBus
	recorder *eventRecorder
	repo     lead.RepositoryAPI
	service  *lead.Service
	admin    *auth.Principal
	manager  *auth.Principal
	rep      *auth.Principal
	rep2     *auth.Principal
}

func newFixture() *fixture {
	db, err := database.OpenMemory()
	Expect(err).NotTo(HaveOccurred())

	mk := func(name, email string, role auth.Role) *auth.Principal {
		row := &userDatamodel.User{Name: name, Email: email, PasswordHash: "x", Role: role.String(), IsActive: true}
		Expect(db.Create(row).Error).NotTo(HaveOccurred())
		return &auth.Principal{ID: row.ID, Name: name, Email: email, Role: role}
	}

	f := &fixture{db: db, recorder: &eventRecorder{}}
	f.admin = mk("Ada Admin", "admin@example.com", auth.RoleAdmin)
	f.manager = mk("Max Manager", "manager@example.com", auth.RoleManager)
	f.rep = mk("Rep One", "rep1@example.com", auth.RoleSales)
	f.rep2 = mk("Rep Two", "rep2@example.com", auth.RoleSales)

	lg := logger.Discard()
	f.bus = events.NewEventBus(lg)
	for _, t := range []string{
		events.EventTypeLeadCreated, events.EventTypeLeadUpdated, events.EventTypeLeadDeleted,
		events.EventTypeLeadStatusChanged, events.EventTypeLeadOwnerChanged,
	} {
		f.bus.Subscribe(t, f.recorder.handle)
	}

	f.repo = leadPostgres.NewLeadRepository(db)
	users := user.NewService(userPostgres.NewUserRepository(db), lg)
	f.service = lead.NewService(f.repo, users, f.bus, "US", lg)
	return f
}

func (f *fixture) createLead(p *auth.Principal, first string) *lead.Lead {
	l, err := f.service.CreateLead(context.Background(), p, lead.CreateLeadDTO{
		FirstName: first,
		LastName:  "Prospect",
		Email:     first + "@prospect.io",
		Source:    "WEBSITE",
	})
	Expect(err).NotTo(HaveOccurred())
	return l
}

func (f *fixture) activities(leadID int64) []activityDatamodel.Activity {
	var rows []activityDatamodel.Activity
	Expect(f.db.Where("lead_id = ?", leadID).Order("id ASC").Find(&rows).Error).To(Succeed())
	return rows
}

func (f *fixture) historyCount(leadID int64) int64 {
	var n int64
	Expect(f.db.Model(&leadDatamodel.LeadHistory{}).Where("lead_id = ?", leadID).Count(&n).Error).To(Succeed())
	return n
}

func strPtr(s string) *string { return &s }
func idPtr(i int64) *int64    { return &i }

var _ = Describe("Lead Service", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = context.Background()
	})

	AfterEach(func() {
		f.bus.Wait()
	})

	Describe("CreateLead", func() {
		It("should default status and owner and record a SYSTEM activity", func() {
			l, err := f.service.CreateLead(ctx, f.rep, lead.CreateLeadDTO{
				FirstName: " Jane ",
				Phone:     "(201) 555-0123",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(l.ID).To(BeNumerically(">", 0))
			Expect(l.FirstName).To(Equal("Jane"))
			Expect(l.Status).To(Equal(lead.StatusNew))
			Expect(l.OwnerID).To(Equal(f.rep.ID))
			Expect(l.CreatedByID).To(Equal(f.rep.ID))
			Expect(l.Version).To(Equal(int64(1)))
			Expect(l.Phone).To(Equal("+12015550123"))
			Expect(l.Owner).NotTo(BeNil())
			Expect(l.Owner.Name).To(Equal("Rep One"))

			acts := f.activities(l.ID)
			Expect(acts).To(HaveLen(1))
			Expect(acts[0].Type).To(Equal("SYSTEM"))
			Expect(acts[0].Content).To(Equal("Lead created"))

			f.bus.Wait()
			Expect(f.recorder.types()).To(ConsistOf(events.EventTypeLeadCreated))
		})

		It("should require an email or a phone", func() {
			_, err := f.service.CreateLead(ctx, f.rep, lead.CreateLeadDTO{FirstName: "Solo"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			details, _ := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors).To(ContainElement(HaveField("Code", string(internal.ErrCodeMissingContact))))
		})

		It("should reject unknown statuses", func() {
			_, err := f.service.CreateLead(ctx, f.rep, lead.CreateLeadDTO{FirstName: "A", Email: "a@b.io", Status: "MAYBE"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status"))
		})

		It("should reject a malformed email", func() {
			_, err := f.service.CreateLead(ctx, f.rep, lead.CreateLeadDTO{FirstName: "A", Email: "not-an-email"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("email"))
		})

		It("should not let SALES assign another owner", func() {
			_, err := f.service.CreateLead(ctx, f.rep, lead.CreateLeadDTO{FirstName: "A", Email: "a@b.io", OwnerID: idPtr(f.rep2.ID)})
			Expect(err).To(MatchError(internal.ErrReassignDenied))
		})

		It("should report a missing owner", func() {
			_, err := f.service.CreateLead(ctx, f.manager, lead.CreateLeadDTO{FirstName: "A", Email: "a@b.io", OwnerID: idPtr(9999)})
			Expect(err).To(MatchError(internal.ErrOwnerNotFound))
		})

		It("should let a manager create on behalf of a rep", func() {
			l, err := f.service.CreateLead(ctx, f.manager, lead.CreateLeadDTO{FirstName: "A", Email: "a@b.io", OwnerID: idPtr(f.rep.ID)})
			Expect(err).NotTo(HaveOccurred())
			Expect(l.OwnerID).To(Equal(f.rep.ID))
			Expect(l.CreatedByID).To(Equal(f.manager.ID))
		})
	})

	Describe("visibility", func() {
		var mine, theirs *lead.Lead

		BeforeEach(func() {
			mine = f.createLead(f.rep, "mine")
			theirs = f.createLead(f.rep2, "theirs")
		})

		It("should hide other reps' leads from SALES", func() {
			_, err := f.service.GetLead(ctx, f.rep, theirs.ID)
			Expect(err).To(MatchError(internal.ErrLeadAccessDenied))

			detail, err := f.service.GetLead(ctx, f.rep, mine.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Lead.ID).To(Equal(mine.ID))
			Expect(detail.History).To(BeEmpty())
		})

		It("should deny mutations on other reps' leads", func() {
			_, err := f.service.UpdateLead(ctx, f.rep, theirs.ID, lead.UpdateLeadDTO{Notes: strPtr("hi")})
			Expect(err).To(MatchError(internal.ErrLeadAccessDenied))
			Expect(f.historyCount(theirs.ID)).To(BeZero())
		})

		It("should return NotFound for missing leads", func() {
			_, err := f.service.GetLead(ctx, f.admin, 424242)
			Expect(err).To(MatchError(internal.ErrLeadNotFound))
		})

		It("should scope SALES lists to their own leads even with an owner filter", func() {
			leads, total, err := f.service.ListLeads(ctx, f.rep, lead.ListFilter{OwnerID: f.rep2.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(leads[0].ID).To(Equal(mine.ID))
		})

		It("should list everything for managers newest first", func() {
			leads, total, err := f.service.ListLeads(ctx, f.manager, lead.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			Expect(leads[0].ID).To(Equal(theirs.ID))
			Expect(leads[1].ID).To(Equal(mine.ID))
		})

		It("should paginate and search", func() {
			for i := 0; i < 3; i++ {
				f.createLead(f.rep, "extra")
			}
			leads, total, err := f.service.ListLeads(ctx, f.manager, lead.ListFilter{
				Search: "EXTRA",
				Params: pagination.Params{Page: 2, Limit: 2},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
			Expect(leads).To(HaveLen(1))
		})

		It("should treat LIKE wildcards in the search term literally", func() {
			_, err := f.service.CreateLead(ctx, f.rep, lead.CreateLeadDTO{
				FirstName: "Promo",
				Email:     "promo@deals.io",
				Company:   "50% Off",
			})
			Expect(err).NotTo(HaveOccurred())

			_, total, err := f.service.ListLeads(ctx, f.manager, lead.ListFilter{Search: "_"})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())

			leads, total, err := f.service.ListLeads(ctx, f.manager, lead.ListFilter{Search: "50%"})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(leads[0].Company).To(Equal("50% Off"))

			_, total, err = f.service.ListLeads(ctx, f.manager, lead.ListFilter{Search: "%"})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
		})

		It("should reject an invalid status filter", func() {
			_, _, err := f.service.ListLeads(ctx, f.manager, lead.ListFilter{Status: "NOPE"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateLead", func() {
		var l *lead.Lead

		BeforeEach(func() {
			l = f.createLead(f.rep, "update")
			f.bus.Wait()
		})

		It("should write one history row and one STATUS_CHANGE activity for a status change", func() {
			updated, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Status: strPtr("contacted")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(lead.StatusContacted))
			Expect(updated.Version).To(Equal(int64(2)))
			Expect(updated.UpdatedByID).To(Equal(f.rep.ID))

			history, err := f.service.GetLeadHistory(ctx, f.rep, l.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].Action).To(Equal(lead.ActionUpdate))
			Expect(history[0].Field).To(Equal("status"))
			Expect(*history[0].OldValue).To(Equal("NEW"))
			Expect(*history[0].NewValue).To(Equal("CONTACTED"))
			Expect(history[0].User).NotTo(BeNil())
			Expect(history[0].User.Name).To(Equal("Rep One"))

			acts := f.activities(l.ID)
			Expect(acts).To(HaveLen(2))
			Expect(acts[1].Type).To(Equal("STATUS_CHANGE"))
			Expect(acts[1].Content).To(Equal("Status changed from NEW to CONTACTED by Rep One"))

			f.bus.Wait()
			Expect(f.recorder.types()).To(ContainElements(events.EventTypeLeadUpdated, events.EventTypeLeadStatusChanged))
		})

		It("should write one history row per changed field and null for cleared values", func() {
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{
				Company: strPtr("Acme"),
				Notes:   strPtr("call back"),
				Source:  strPtr(""),
			})
			Expect(err).NotTo(HaveOccurred())

			history, _ := f.service.GetLeadHistory(ctx, f.rep, l.ID)
			Expect(history).To(HaveLen(3))
			byField := map[string]*lead.HistoryEntry{}
			for _, h := range history {
				byField[h.Field] = h
			}
			Expect(byField["company"].OldValue).To(BeNil())
			Expect(*byField["company"].NewValue).To(Equal("Acme"))
			Expect(*byField["source"].OldValue).To(Equal("WEBSITE"))
			Expect(byField["source"].NewValue).To(BeNil())
		})

		It("should write nothing when no field changes", func() {
			updated, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{FirstName: strPtr("update")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Version).To(Equal(int64(1)))
			Expect(f.historyCount(l.ID)).To(BeZero())
		})

		It("should refuse to clear the last contact field", func() {
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Email: strPtr("")})
			Expect(err).To(HaveOccurred())
			Expect(f.historyCount(l.ID)).To(BeZero())
		})

		It("should allow any status jump", func() {
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Status: strPtr("WON")})
			Expect(err).NotTo(HaveOccurred())
			_, err = f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Status: strPtr("NEW")})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return a conflict for a stale version", func() {
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Notes: strPtr("first")})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Notes: strPtr("second"), Version: idPtr(1)})
			Expect(err).To(MatchError(internal.ErrLeadVersionClash))
			Expect(f.historyCount(l.ID)).To(Equal(int64(1)))
		})

		It("should not let SALES change the owner of their own lead", func() {
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{OwnerID: idPtr(f.rep2.ID)})
			Expect(err).To(MatchError(internal.ErrReassignDenied))
		})

		It("should record an ASSIGNMENT activity when a manager reassigns", func() {
			updated, err := f.service.UpdateLead(ctx, f.manager, l.ID, lead.UpdateLeadDTO{OwnerID: idPtr(f.rep2.ID)})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.OwnerID).To(Equal(f.rep2.ID))

			acts := f.activities(l.ID)
			Expect(acts[len(acts)-1].Type).To(Equal("ASSIGNMENT"))
			Expect(acts[len(acts)-1].Content).To(Equal("Ownership transferred to Rep Two"))

			history, _ := f.service.GetLeadHistory(ctx, f.manager, l.ID)
			Expect(history).To(HaveLen(1))
			Expect(history[0].Field).To(Equal("owner_id"))

			f.bus.Wait()
			Expect(f.recorder.types()).To(ContainElement(events.EventTypeLeadOwnerChanged))

			_, err = f.service.GetLead(ctx, f.rep, l.ID)
			Expect(err).To(MatchError(internal.ErrLeadAccessDenied))
		})

		It("should report a missing target owner", func() {
			_, err := f.service.UpdateLead(ctx, f.manager, l.ID, lead.UpdateLeadDTO{OwnerID: idPtr(31337)})
			Expect(err).To(MatchError(internal.ErrOwnerNotFound))
		})
	})

	Describe("ApplyUpdate", func() {
		It("should let only one of two writers holding the same version win", func() {
			l := f.createLead(f.rep, "race")
			plan := func(notes string) lead.UpdatePlan {
				return lead.UpdatePlan{
					LeadID:          l.ID,
					ExpectedVersion: l.Version,
					Columns:         map[string]interface{}{"notes": notes, "version": l.Version + 1},
					History: []lead.HistoryEntry{{
						LeadID: l.ID, UserID: f.rep.ID, Action: lead.ActionUpdate, Field: "notes", NewValue: strPtr(notes),
					}},
				}
			}

			Expect(f.repo.ApplyUpdate(ctx, plan("a"))).To(Succeed())
			Expect(f.repo.ApplyUpdate(ctx, plan("b"))).To(MatchError(internal.ErrLeadVersionClash))
			Expect(f.historyCount(l.ID)).To(Equal(int64(1)))
		})
	})

	Describe("TransferLead", func() {
		It("should be reserved for ADMIN and MANAGER", func() {
			l := f.createLead(f.rep, "transfer")
			_, err := f.service.TransferLead(ctx, f.rep, l.ID, lead.TransferLeadDTO{NewOwnerID: f.rep2.ID})
			Expect(err).To(MatchError(internal.ErrReassignDenied))

			moved, err := f.service.TransferLead(ctx, f.admin, l.ID, lead.TransferLeadDTO{NewOwnerID: f.rep2.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(moved.OwnerID).To(Equal(f.rep2.ID))
		})
	})

	Describe("DeleteLead", func() {
		It("should remove the lead and its activities but keep history", func() {
			l := f.createLead(f.rep, "doomed")
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Status: strPtr("LOST")})
			Expect(err).NotTo(HaveOccurred())

			Expect(f.service.DeleteLead(ctx, f.manager, l.ID)).To(Succeed())

			_, err = f.service.GetLead(ctx, f.manager, l.ID)
			Expect(err).To(MatchError(internal.ErrLeadNotFound))
			Expect(f.activities(l.ID)).To(BeEmpty())
			Expect(f.historyCount(l.ID)).To(Equal(int64(1)))

			f.bus.Wait()
			Expect(f.recorder.types()).To(ContainElement(events.EventTypeLeadDeleted))
		})

		It("should be forbidden for SALES", func() {
			l := f.createLead(f.rep, "kept")
			err := f.service.DeleteLead(ctx, f.rep, l.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(403))
		})

		It("should return NotFound for missing leads", func() {
			Expect(f.service.DeleteLead(ctx, f.admin, 777)).To(MatchError(internal.ErrLeadNotFound))
		})
	})
})
