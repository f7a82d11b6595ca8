package postgres_test

import (
	"context"
	"testing"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/core/common/pagination"
	"github.com/frahmantamala/lead-management/internal/core/database"
	userDatamodel "github.com/frahmantamala/lead-management/internal/core/datamodel/user"
	"github.com/frahmantamala/lead-management/internal/user"
	userPostgres "github.com/frahmantamala/lead-management/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestUserPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Postgres Suite")
}

var _ = Describe("User Repository", func() {
	var (
		db   *gorm.DB
		repo user.RepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = database.OpenMemory()
		Expect(err).NotTo(HaveOccurred())
		repo = userPostgres.NewUserRepository(db)
		ctx = context.Background()

		users := []*userDatamodel.User{
			{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", Role: "ADMIN", IsActive: true},
			{Name: "Bob", Email: "bob@example.com", PasswordHash: "x", Role: "SALES", IsActive: true},
			{Name: "Carol", Email: "carol@example.com", PasswordHash: "x", Role: "SALES", IsActive: false},
		}
		for _, u := range users {
			Expect(db.Create(u).Error).NotTo(HaveOccurred())
		}
	})

	Describe("List", func() {
		It("should page users ordered by name", func() {
			users, total, err := repo.List(ctx, user.ListFilter{Params: pagination.Params{Page: 1, Limit: 2}})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
			Expect(users).To(HaveLen(2))
			Expect(users[0].Name).To(Equal("Alice"))
			Expect(users[1].Name).To(Equal("Bob"))
		})

		It("should filter by role and activity", func() {
			active := true
			users, total, err := repo.List(ctx, user.ListFilter{
				Role:   auth.RoleSales,
				Active: &active,
				Params: pagination.Params{Page: 1, Limit: 10},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(users[0].Email).To(Equal("bob@example.com"))
		})
	})

	Describe("Update", func() {
		It("should change role and deactivate", func() {
			var bob userDatamodel.User
			Expect(db.Where("email = ?", "bob@example.com").First(&bob).Error).To(Succeed())

			role := auth.RoleManager
			inactive := false
			updated, err := repo.Update(ctx, bob.ID, user.Changes{Role: &role, IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Role).To(Equal(auth.RoleManager))
			Expect(updated.IsActive).To(BeFalse())
		})

		It("should report missing users", func() {
			name := "Nobody"
			_, err := repo.Update(ctx, 999, user.Changes{Name: &name})
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})
})
