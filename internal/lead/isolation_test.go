package lead_test

import (
	"context"
	"errors"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/activity"
	notificationDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/notification"
	"github.com/frahmantamala/lead-management/internal/lead"
	"github.com/frahmantamala/lead-management/internal/mailer"
	"github.com/frahmantamala/lead-management/internal/notification"
	notificationPostgres "github.com/frahmantamala/lead-management/internal/notification/postgres"
	"github.com/frahmantamala/lead-management/internal/user"
	userPostgres "github.com/frahmantamala/lead-management/internal/user/postgres"
	"github.com/frahmantamala/lead-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// auditFailingRepository delegates everything except standalone activity writes.
type auditFailingRepository struct {
	lead.RepositoryAPI
}

func (auditFailingRepository) RecordActivity(context.Context, activity.Entry) error {
	return errors.New("activity store unavailable")
}

type fullQueue struct{}

func (fullQueue) Enqueue(mailer.Message) error {
	return mailer.ErrQueueFull
}

var _ = Describe("Lead side effects", func() {
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

	Describe("DeleteLead", func() {
		It("should delete even when the deletion activity cannot be written", func() {
			l := f.createLead(f.rep, "stubborn")
			_, err := f.service.UpdateLead(ctx, f.rep, l.ID, lead.UpdateLeadDTO{Status: strPtr("LOST")})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.activities(l.ID)).To(HaveLen(2))

			lg := logger.Discard()
			users := user.NewService(userPostgres.NewUserRepository(f.db), lg)
			svc := lead.NewService(auditFailingRepository{f.repo}, users, f.bus, "US", lg)

			Expect(svc.DeleteLead(ctx, f.manager, l.ID)).To(Succeed())

			_, err = f.service.GetLead(ctx, f.manager, l.ID)
			Expect(err).To(MatchError(internal.ErrLeadNotFound))
			Expect(f.activities(l.ID)).To(BeEmpty())
			Expect(f.historyCount(l.ID)).To(Equal(int64(1)))
		})
	})

	Describe("UpdateLead with owner notifications", func() {
		var l *lead.Lead

		BeforeEach(func() {
			lg := logger.Discard()
			svc := notification.NewService(
				notificationPostgres.NewNotificationRepository(f.db),
				userPostgres.NewUserRepository(f.db),
				fullQueue{},
				"",
				lg,
			)
			notification.NewEventHandler(svc, lg).RegisterEventHandlers(f.bus)
			l = f.createLead(f.rep, "notified")
		})

		notifications := func(userID int64) int64 {
			var n int64
			Expect(f.db.Model(&notificationDatamodel.Notification{}).Where("user_id = ?", userID).Count(&n).Error).To(Succeed())
			return n
		}

		It("should commit the transfer when the owner email is rejected", func() {
			updated, err := f.service.UpdateLead(ctx, f.manager, l.ID, lead.UpdateLeadDTO{OwnerID: idPtr(f.rep2.ID)})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.OwnerID).To(Equal(f.rep2.ID))
			f.bus.Wait()

			detail, err := f.service.GetLead(ctx, f.manager, l.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Lead.OwnerID).To(Equal(f.rep2.ID))
			Expect(detail.History).To(HaveLen(1))
			Expect(notifications(f.rep2.ID)).To(Equal(int64(1)))
		})

		It("should commit the status change when the notification cannot be stored", func() {
			Expect(f.db.Migrator().DropTable(&notificationDatamodel.Notification{})).To(Succeed())

			updated, err := f.service.UpdateLead(ctx, f.manager, l.ID, lead.UpdateLeadDTO{Status: strPtr("QUALIFIED")})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(updated.Status)).To(Equal("QUALIFIED"))
			f.bus.Wait()

			detail, err := f.service.GetLead(ctx, f.rep, l.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(detail.Lead.Status)).To(Equal("QUALIFIED"))
			Expect(detail.History).To(HaveLen(1))
			Expect(detail.History[0].Field).To(Equal("status"))
			Expect(f.activities(l.ID)).To(HaveLen(2))
		})
	})
})
