package sync

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mkalnins/warranty-keeper/internal/document"
)

var _ = Describe("Manifest", func() {
	var (
		now      time.Time
		purchase time.Time
		end      time.Time
		amount   float64
		docs     []*document.Document
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)
		purchase = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
		end = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
		amount = 899.99
		docs = []*document.Document{
			{
				ID:              "w1",
				UserID:          "anna@example.com",
				Title:           "Lenovo ThinkPad",
				Type:            document.TypeWarranty,
				PurchaseDate:    &purchase,
				WarrantyEndDate: &end,
				StoreName:       "eBay",
				Notes:           "extended coverage",
				TotalAmount:     &amount,
				Currency:        "EUR",
				CreatedAt:       time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC),
				DriveFileID:     "drive-1",
			},
			{
				ID:        "r1",
				UserID:    "anna@example.com",
				Title:     "Groceries",
				Type:      document.TypeReceipt,
				CreatedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
			},
		}
	})

	Describe("BuildManifest", func() {
		It("snapshots every document", func() {
			m := BuildManifest(docs, now)
			Expect(m.Version).To(Equal(ManifestVersion))
			Expect(m.LastSync).To(Equal("2024-03-20T15:30:00Z"))
			Expect(m.Documents).To(HaveLen(2))
		})

		It("stores dates as epoch milliseconds", func() {
			m := BuildManifest(docs, now)
			Expect(m.Documents[0].PurchaseDate).NotTo(BeNil())
			Expect(*m.Documents[0].PurchaseDate).To(Equal(purchase.UnixMilli()))
			Expect(m.Documents[1].PurchaseDate).To(BeNil())
		})
	})

	Describe("round trip", func() {
		It("survives serialization and restore without losing fields", func() {
			payload, err := json.Marshal(BuildManifest(docs, now))
			Expect(err).NotTo(HaveOccurred())

			var decoded Manifest
			Expect(json.Unmarshal(payload, &decoded)).NotTo(HaveOccurred())
			Expect(decoded.Documents).To(HaveLen(2))

			restored := decoded.Documents[0].ToDocument("anna@example.com")
			Expect(restored.ID).To(Equal("w1"))
			Expect(restored.UserID).To(Equal("anna@example.com"))
			Expect(restored.Title).To(Equal("Lenovo ThinkPad"))
			Expect(restored.Type).To(Equal(document.TypeWarranty))
			Expect(*restored.PurchaseDate).To(Equal(purchase))
			Expect(*restored.WarrantyEndDate).To(Equal(end))
			Expect(restored.StoreName).To(Equal("eBay"))
			Expect(restored.Notes).To(Equal("extended coverage"))
			Expect(*restored.TotalAmount).To(Equal(899.99))
			Expect(restored.Currency).To(Equal("EUR"))
			Expect(restored.CreatedAt).To(Equal(docs[0].CreatedAt))
			Expect(restored.DriveFileID).To(Equal("drive-1"))
		})

		It("marks restored documents as synced with a placeholder photo path", func() {
			restored := BuildManifest(docs, now).Documents[0].ToDocument("anna@example.com")
			Expect(restored.Synced).To(BeTrue())
			Expect(restored.PhotoLocalPath).To(Equal("restored_w1.jpg"))
		})

		It("defaults an unknown type to receipt", func() {
			meta := DocumentMeta{ID: "x1", Type: "SOMETHING_NEW"}
			Expect(meta.ToDocument("anna@example.com").Type).To(Equal(document.TypeReceipt))
		})
	})
})
