package document

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// mockSyncRunner is a mock implementation of SyncRunner
type mockSyncRunner struct {
	syncCalled    bool
	restoreCalled bool
	syncErr       error
	restoreErr    error
}

func (m *mockSyncRunner) SyncOnce(ctx context.Context) error {
	m.syncCalled = true
	return m.syncErr
}

func (m *mockSyncRunner) Restore(ctx context.Context) error {
	m.restoreCalled = true
	return m.restoreErr
}

// docResponse mirrors the API document payload including derived fields.
type docResponse struct {
	Document
	WarrantyStatus  *WarrantyStatus `json:"warranty_status"`
	DaysUntilExpiry *int            `json:"days_until_expiry"`
}

var _ = Describe("Server", func() {
	const account = "anna@example.com"

	var (
		db          *mockDB
		service     *Service
		syncer      *mockSyncRunner
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		var runner SyncRunner
		if syncer != nil {
			runner = syncer
		}
		server = NewServerWithMux(service, runner, account, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		service = NewService(db, newMockStorage(), &mockRecognizer{}, nil)
		syncer = &mockSyncRunner{}
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleListDocuments", func() {
		When("documents exist", func() {
			BeforeEach(func() {
				end := time.Now().AddDate(0, 0, 10)
				db.docs[db.key(account, "w1")] = &Document{ID: "w1", UserID: account, Type: TypeWarranty, Title: "Laptop", WarrantyEndDate: &end}
				db.docs[db.key(account, "r1")] = &Document{ID: "r1", UserID: account, Type: TypeReceipt, Title: "Groceries"}
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return all documents with derived warranty state", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var docs []docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &docs)).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(2))
				for _, d := range docs {
					if d.Type == TypeWarranty {
						Expect(d.WarrantyStatus).NotTo(BeNil())
						Expect(*d.WarrantyStatus).To(Equal(StatusExpiringSoon))
						Expect(d.DaysUntilExpiry).NotTo(BeNil())
					} else {
						Expect(d.WarrantyStatus).To(BeNil())
					}
				}
			})

			It("should filter by type", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents?type=WARRANTY")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var docs []docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &docs)).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].ID).To(Equal("w1"))
			})

			It("should search by title", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents?q=groc")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var docs []docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &docs)).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].ID).To(Equal("r1"))
			})
		})

		When("no documents exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(MatchJSON("[]"))
			})
		})

		When("an unknown type is requested", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents?type=INVOICE")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the service returns an error", func() {
			BeforeEach(func() {
				db.listErr = errors.New("database error")
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleUploadDocument", func() {
		uploadRequest := func(docType string) (*http.Response, error) {
			var b bytes.Buffer
			writer := multipart.NewWriter(&b)
			if docType != "" {
				writer.WriteField("type", docType)
			}
			part, _ := writer.CreateFormFile("file", "photo.jpg")
			part.Write([]byte("fake image data"))
			writer.Close()
			return http.Post(ghttpServer.URL()+"/api/documents", writer.FormDataContentType(), &b)
		}

		When("upload succeeds", func() {
			It("should return status Created", func() {
				resp, err := uploadRequest("")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should default to a receipt", func() {
				resp, err := uploadRequest("")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var doc docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &doc)).NotTo(HaveOccurred())
				Expect(doc.Type).To(Equal(TypeReceipt))
				Expect(doc.ID).NotTo(BeEmpty())
			})

			It("should honor the warranty type field", func() {
				resp, err := uploadRequest("warranty")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var doc docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &doc)).NotTo(HaveOccurred())
				Expect(doc.Type).To(Equal(TypeWarranty))
			})
		})

		When("the type is unknown", func() {
			It("should return status Bad Request", func() {
				resp, err := uploadRequest("INVOICE")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/documents", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the multipart form is invalid", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetDocument", func() {
		When("the document exists", func() {
			BeforeEach(func() {
				db.docs[db.key(account, "d1")] = &Document{ID: "d1", UserID: account, Title: "Laptop"}
			})

			It("should return the document", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/d1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var doc docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &doc)).NotTo(HaveOccurred())
				Expect(doc.ID).To(Equal("d1"))
			})
		})

		When("the document does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleUpdateDocument", func() {
		BeforeEach(func() {
			db.docs[db.key(account, "d1")] = &Document{ID: "d1", UserID: account, Title: "Old", Synced: true}
		})

		When("the edit is valid", func() {
			It("applies it and returns the document", func() {
				payload := []byte(`{"title":"New"}`)
				req, err := http.NewRequest("PATCH", ghttpServer.URL()+"/api/documents/d1", bytes.NewBuffer(payload))
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", "application/json")

				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var doc docResponse
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &doc)).NotTo(HaveOccurred())
				Expect(doc.Title).To(Equal("New"))
				Expect(doc.Synced).To(BeFalse())
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				req, err := http.NewRequest("PATCH", ghttpServer.URL()+"/api/documents/d1", bytes.NewBufferString("not json"))
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the document does not exist", func() {
			It("should return status Not Found", func() {
				req, err := http.NewRequest("PATCH", ghttpServer.URL()+"/api/documents/missing", bytes.NewBufferString(`{"title":"x"}`))
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleDeleteDocument", func() {
		BeforeEach(func() {
			db.docs[db.key(account, "d1")] = &Document{ID: "d1", UserID: account, PhotoLocalPath: "d1.jpg"}
		})

		It("should return status No Content", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/documents/d1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			resp.Body.Close()
			Expect(db.docs).NotTo(HaveKey(db.key(account, "d1")))
		})
	})

	Describe("handleGetPhoto", func() {
		When("the photo exists", func() {
			BeforeEach(func() {
				storage := newMockStorage()
				storage.files["d1.png"] = []byte("png bytes")
				db.docs[db.key(account, "d1")] = &Document{ID: "d1", UserID: account, PhotoLocalPath: "d1.png"}
				service = NewService(db, storage, &mockRecognizer{}, nil)
				setupServer()
			})

			It("returns the photo with its content type", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/d1/photo")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("png bytes"))
			})
		})

		When("the photo is missing", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/documents/nonexistent/photo")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListAlerts", func() {
		BeforeEach(func() {
			soon := time.Now().AddDate(0, 0, 5)
			far := time.Now().AddDate(0, 0, 90)
			db.docs[db.key(account, "soon")] = &Document{ID: "soon", UserID: account, Type: TypeWarranty, WarrantyEndDate: &soon}
			db.docs[db.key(account, "far")] = &Document{ID: "far", UserID: account, Type: TypeWarranty, WarrantyEndDate: &far}
		})

		It("returns only warranties inside the alert window", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/alerts")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var docs []docResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &docs)).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("soon"))
		})
	})

	Describe("handleSync", func() {
		When("a syncer is configured", func() {
			It("runs a sync cycle", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/sync", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(syncer.syncCalled).To(BeTrue())
			})
		})

		When("the sync fails", func() {
			BeforeEach(func() {
				syncer.syncErr = errors.New("drive unavailable")
			})

			It("should return status Bad Gateway", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/sync", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				resp.Body.Close()
			})
		})

		When("no syncer is configured", func() {
			BeforeEach(func() {
				syncer = nil
				setupServer()
			})

			It("should return status Service Unavailable", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/sync", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				resp.Body.Close()
			})
		})
	})

	Describe("handleRestore", func() {
		It("runs a restore", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/restore", "application/json", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(syncer.restoreCalled).To(BeTrue())
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			setupServer()
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/documents")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).NotTo(BeEmpty())
			resp.Body.Close()
		})

		It("accepts valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			credentials := base64.StdEncoding.EncodeToString([]byte("user:pass"))
			req.Header.Set("Authorization", "Basic "+credentials)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("rejects wrong credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/documents", nil)
			Expect(err).NotTo(HaveOccurred())
			credentials := base64.StdEncoding.EncodeToString([]byte("user:wrong"))
			req.Header.Set("Authorization", "Basic "+credentials)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp.Body.Close()
		})
	})
})
