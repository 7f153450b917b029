package document

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DaysUntilExpiry", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	})

	It("counts whole days to a future date", func() {
		end := now.AddDate(0, 0, 10)
		Expect(DaysUntilExpiry(end, now)).To(Equal(10))
	})

	It("is zero on the expiry day", func() {
		Expect(DaysUntilExpiry(now, now)).To(Equal(0))
	})

	It("truncates partial days toward zero", func() {
		end := now.Add(36 * time.Hour)
		Expect(DaysUntilExpiry(end, now)).To(Equal(1))
	})

	It("goes negative after expiry", func() {
		end := now.AddDate(0, 0, -3)
		Expect(DaysUntilExpiry(end, now)).To(Equal(-3))
	})
})

var _ = Describe("Status", func() {
	var (
		now time.Time
		end time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	})

	When("the end date is far in the future", func() {
		BeforeEach(func() {
			end = now.AddDate(0, 0, 90)
		})

		It("is active", func() {
			s := Status(TypeWarranty, &end, now)
			Expect(s).NotTo(BeNil())
			Expect(*s).To(Equal(StatusActive))
		})
	})

	When("the end date is within the alert window", func() {
		BeforeEach(func() {
			end = now.AddDate(0, 0, 30)
		})

		It("is expiring soon", func() {
			s := Status(TypeWarranty, &end, now)
			Expect(s).NotTo(BeNil())
			Expect(*s).To(Equal(StatusExpiringSoon))
		})
	})

	When("the end date just passed the window boundary", func() {
		BeforeEach(func() {
			end = now.AddDate(0, 0, 31)
		})

		It("is still active", func() {
			s := Status(TypeWarranty, &end, now)
			Expect(s).NotTo(BeNil())
			Expect(*s).To(Equal(StatusActive))
		})
	})

	When("the end date has passed", func() {
		BeforeEach(func() {
			end = now.AddDate(0, 0, -1)
		})

		It("is expired", func() {
			s := Status(TypeWarranty, &end, now)
			Expect(s).NotTo(BeNil())
			Expect(*s).To(Equal(StatusExpired))
		})
	})

	When("the document is a receipt", func() {
		BeforeEach(func() {
			end = now.AddDate(0, 0, 10)
		})

		It("has no status", func() {
			Expect(Status(TypeReceipt, &end, now)).To(BeNil())
		})
	})

	When("a warranty has no end date", func() {
		It("has no status", func() {
			Expect(Status(TypeWarranty, nil, now)).To(BeNil())
		})
	})
})

var _ = Describe("Document", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	})

	Describe("WarrantyStatus", func() {
		It("classifies the document itself", func() {
			end := now.AddDate(0, 0, 5)
			doc := &Document{Type: TypeWarranty, WarrantyEndDate: &end}
			s := doc.WarrantyStatus(now)
			Expect(s).NotTo(BeNil())
			Expect(*s).To(Equal(StatusExpiringSoon))
		})
	})

	Describe("DaysUntilExpiry", func() {
		It("is nil without an end date", func() {
			doc := &Document{Type: TypeWarranty}
			Expect(doc.DaysUntilExpiry(now)).To(BeNil())
		})

		It("returns the remaining days", func() {
			end := now.AddDate(0, 0, 5)
			doc := &Document{Type: TypeWarranty, WarrantyEndDate: &end}
			days := doc.DaysUntilExpiry(now)
			Expect(days).NotTo(BeNil())
			Expect(*days).To(Equal(5))
		})
	})
})
