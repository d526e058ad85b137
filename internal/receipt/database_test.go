package receipt

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-digitizer/internal/extraction"
	"github.com/zombor/receipt-digitizer/internal/registry"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveReceipt", func() {
		var (
			receipt *Receipt
			err     error
		)

		BeforeEach(func() {
			receipt = &Receipt{
				ID:                 "test-id",
				Date:               "2024-01-15",
				RegistrationNumber: "T1234567890123",
				CompanyName:        "ローソン",
				TotalAmount:        1234,
				PaymentMethod:      extraction.CreditCard,
				Filename:           "test.jpg",
				ContentType:        "image/jpeg",
				CreatedAt:          time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				UpdatedAt:          time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveReceipt(receipt)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should round-trip the receipt", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.CompanyName).To(Equal("ローソン"))
				Expect(saved.RegistrationNumber).To(Equal("T1234567890123"))
				Expect(saved.TotalAmount).To(Equal(1234))
				Expect(saved.PaymentMethod).To(Equal(extraction.CreditCard))
				Expect(saved.CreatedAt).To(BeTemporally("==", receipt.CreatedAt))
			})
		})

		When("the receipt already exists", func() {
			JustBeforeEach(func() {
				receipt.CompanyName = "株式会社ローソン"
				err = db.SaveReceipt(receipt)
			})

			It("should replace it", func() {
				Expect(err).NotTo(HaveOccurred())
				receipts, listErr := db.ListReceipts()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(1))
				Expect(receipts[0].CompanyName).To(Equal("株式会社ローソン"))
			})
		})
	})

	Describe("GetReceipt", func() {
		It("returns ErrNotFound for a missing receipt", func() {
			_, err := db.GetReceipt("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListReceipts", func() {
		It("should return an empty list when there are no receipts", func() {
			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).NotTo(BeNil())
			Expect(receipts).To(BeEmpty())
		})

		It("should return every receipt", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "a"})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "b"})).To(Succeed())
			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(2))
		})
	})

	Describe("DeleteReceipt", func() {
		It("should remove the receipt", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "a"})).To(Succeed())
			Expect(db.DeleteReceipt("a")).To(Succeed())
			_, err := db.GetReceipt("a")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("CompanyNameFor", func() {
		BeforeEach(func() {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			Expect(db.SaveReceipt(&Receipt{ID: "a", RegistrationNumber: "T1234567890123", CompanyName: "ローソン", CreatedAt: base})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "b", RegistrationNumber: "T1234567890123", CompanyName: "株式会社ローソン", CreatedAt: base.Add(time.Hour)})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "c", RegistrationNumber: "T1234567890123", CreatedAt: base.Add(2 * time.Hour)})).To(Succeed())
			Expect(db.SaveReceipt(&Receipt{ID: "d", RegistrationNumber: "T9999999999999", CompanyName: "other", CreatedAt: base.Add(3 * time.Hour)})).To(Succeed())
		})

		It("should return the most recent non-empty name", func() {
			name, err := db.CompanyNameFor("T1234567890123")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("株式会社ローソン"))
		})

		It("should return empty for unknown numbers", func() {
			name, err := db.CompanyNameFor("T0000000000000")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(BeEmpty())
		})
	})

	Describe("issuer cache", func() {
		It("returns registry.ErrNotFound for uncached issuers", func() {
			_, err := db.GetIssuer("T1234567890123")
			Expect(err).To(MatchError(registry.ErrNotFound))
		})

		It("should store and replace issuers", func() {
			updated := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
			Expect(db.PutIssuers([]registry.Issuer{
				{RegistrationNumber: "T1234567890123", Name: "旧名", Source: registry.SourceImport, UpdatedAt: updated},
				{RegistrationNumber: "T2234567890123", Name: "株式会社ファミリーマート", Source: registry.SourceImport, UpdatedAt: updated},
			})).To(Succeed())
			Expect(db.PutIssuers([]registry.Issuer{
				{RegistrationNumber: "T1234567890123", Name: "株式会社ローソン", Source: registry.SourceAPI, UpdatedAt: updated},
			})).To(Succeed())

			issuer, err := db.GetIssuer("T1234567890123")
			Expect(err).NotTo(HaveOccurred())
			Expect(issuer.Name).To(Equal("株式会社ローソン"))
			Expect(issuer.Source).To(Equal(registry.SourceAPI))
			Expect(issuer.UpdatedAt).To(BeTemporally("==", updated))

			issuer, err = db.GetIssuer("T2234567890123")
			Expect(err).NotTo(HaveOccurred())
			Expect(issuer.Name).To(Equal("株式会社ファミリーマート"))
		})

		It("should serve as the registry cache and history", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "a", RegistrationNumber: "T1234567890123", CompanyName: "ローソン"})).To(Succeed())
			resolver := registry.NewResolver(db, db, nil)

			issuer, err := resolver.Resolve(context.Background(), "T1234567890123")
			Expect(err).NotTo(HaveOccurred())
			Expect(issuer.Source).To(Equal(registry.SourceHistory))
		})
	})

	Describe("reopening", func() {
		It("should keep data across opens", func() {
			Expect(db.SaveReceipt(&Receipt{ID: "a"})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.GetReceipt("a")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
