package registryapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ons/internal/domains/models"
	"ons/internal/domains/store"
	"ons/pkg/testutil"
)

const (
	alice = "octAlice000000000000001"
	token = "s3cret"
)

type RegistrySuite struct {
	suite.Suite
	store  *store.InMemory
	router chi.Router
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.store = store.NewInMemory()
	s.router = chi.NewRouter()
	New(s.store, token, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *RegistrySuite) get(path string) *httptest.ResponseRecorder {
	return testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
}

func (s *RegistrySuite) write(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.WithAdminToken(testutil.NewJSONRequest(s.T(), method, path, body), token)
	return testutil.Do(s.router, req)
}

func (s *RegistrySuite) create(domain, tx, status string) *httptest.ResponseRecorder {
	return s.write(http.MethodPost, "/domains", store.CreateRecordRequest{
		Domain: domain, Address: alice, TxHash: tx, Status: status,
	})
}

func (s *RegistrySuite) TestCreate() {
	s.Run("creates a record", func() {
		w := s.create("Alice.oct", "tx-1", "active")
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		rec := testutil.Decode[models.DomainRecord](s.T(), w)
		s.Equal("alice", rec.Domain)
		s.Equal(models.StatusActive, rec.Status)
	})

	s.Run("status defaults to active", func() {
		w := s.create("erin", "tx-e", "")
		s.Require().Equal(http.StatusCreated, w.Code)
		s.Equal(models.StatusActive, testutil.Decode[models.DomainRecord](s.T(), w).Status)
	})

	s.Run("held domain is a conflict", func() {
		testutil.RequireError(s.T(), s.create("alice", "tx-2", "active"), http.StatusConflict, "conflict")
	})

	s.Run("reused transaction is a conflict", func() {
		testutil.RequireError(s.T(), s.create("frank", "tx-1", "pending"), http.StatusConflict, "conflict")
	})

	s.Run("missing fields are rejected", func() {
		w := s.write(http.MethodPost, "/domains", store.CreateRecordRequest{Domain: "bobby"})
		testutil.RequireError(s.T(), w, http.StatusBadRequest, "validation_error")
	})

	s.Run("invalid names are rejected", func() {
		testutil.RequireError(s.T(), s.create("-x", "tx-x", "active"), http.StatusBadRequest, "validation_error")
	})

	s.Run("writes need the admin token", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/domains", store.CreateRecordRequest{
			Domain: "carol", Address: alice, TxHash: "tx-3", Status: "active",
		})
		s.Equal(http.StatusUnauthorized, testutil.Do(s.router, req).Code)
	})
}

func (s *RegistrySuite) TestUpdateStatus() {
	s.Require().Equal(http.StatusCreated, s.create("alice", "tx-1", "active").Code)
	deletion := "tx-del"

	s.Run("legacy update without expected status", func() {
		w := s.write(http.MethodPut, "/domains/alice/status", store.UpdateStatusRequest{
			Status: "deleting", DeletionTxHash: &deletion,
		})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		s.JSONEq(`{"success":true,"updated":1}`, w.Body.String())

		rec, err := s.store.FindByDomain(s.T().Context(), "alice")
		s.Require().NoError(err)
		s.Equal(models.StatusDeleting, rec.Status)
		s.Equal("tx-del", rec.DeletionTxHash)
		s.NotNil(rec.DeletionRequestedAt)
	})

	s.Run("stale expected status is invalid_state", func() {
		w := s.write(http.MethodPut, "/domains/alice/status", store.UpdateStatusRequest{
			Status: "active", ExpectedStatus: "pending",
		})
		testutil.RequireError(s.T(), w, http.StatusConflict, "invalid_state")
	})

	s.Run("illegal transition is invalid_state", func() {
		w := s.write(http.MethodPut, "/domains/alice/status", store.UpdateStatusRequest{Status: "pending"})
		testutil.RequireError(s.T(), w, http.StatusConflict, "invalid_state")
	})

	s.Run("unknown domain is not_found", func() {
		w := s.write(http.MethodPut, "/domains/ghost/status", store.UpdateStatusRequest{Status: "active"})
		testutil.RequireError(s.T(), w, http.StatusNotFound, "not_found")
	})

	s.Run("unknown status is rejected", func() {
		w := s.write(http.MethodPut, "/domains/alice/status", store.UpdateStatusRequest{Status: "gone"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *RegistrySuite) TestQueries() {
	s.Require().Equal(http.StatusCreated, s.create("alice", "tx-1", "active").Code)
	s.Require().Equal(http.StatusCreated, s.create("bobby", "tx-2", "pending").Code)

	s.Run("resolve returns only active", func() {
		s.Equal(http.StatusOK, s.get("/domains/resolve/alice.oct").Code)
		testutil.RequireError(s.T(), s.get("/domains/resolve/bobby"), http.StatusNotFound, "not_found")
	})

	s.Run("find returns any status", func() {
		w := s.get("/domains/bobby")
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(models.StatusPending, testutil.Decode[models.DomainRecord](s.T(), w).Status)
	})

	s.Run("by address", func() {
		list := testutil.Decode[store.RecordList](s.T(), s.get("/domains/address/"+alice))
		s.Len(list.Domains, 2)
	})

	s.Run("by address with no records is an empty list", func() {
		s.JSONEq(`{"domains":[]}`, s.get("/domains/address/octNobody0000000").Body.String())
	})

	s.Run("by status", func() {
		w := s.get("/domains?status=pending,deleting&limit=5")
		s.Require().Equal(http.StatusOK, w.Code)
		list := testutil.Decode[store.RecordList](s.T(), w)
		s.Require().Len(list.Domains, 1)
		s.Equal("bobby", list.Domains[0].Domain)
	})

	s.Run("by status requires a status", func() {
		testutil.RequireError(s.T(), s.get("/domains"), http.StatusBadRequest, "validation_error")
	})

	s.Run("bad limit", func() {
		testutil.RequireError(s.T(), s.get("/domains/recent?limit=ten"), http.StatusBadRequest, "bad_request")
	})

	s.Run("recent and stats", func() {
		list := testutil.Decode[store.RecordList](s.T(), s.get("/domains/recent?limit=10"))
		s.Len(list.Domains, 1)

		stats := testutil.Decode[models.Stats](s.T(), s.get("/stats"))
		s.Equal(1, stats.TotalDomains)
		s.Equal(1, stats.TotalOwners)
		s.Equal(1, stats.RecentRegistrations)
	})
}

func TestCreateTimestamps(t *testing.T) {
	reg := store.NewInMemory()
	router := chi.NewRouter()
	New(reg, "", slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	testutil.Given(t, "a replicated record with its own created_at", func(t *testing.T) {
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/domains", store.CreateRecordRequest{
			Domain: "dave", Address: alice, TxHash: "tx-9", Status: "pending", CreatedAt: &created,
		})

		testutil.When(t, "it is created", func(t *testing.T) {
			w := testutil.Do(router, testutil.WithRequestTime(req, now))
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			rec := testutil.Decode[models.DomainRecord](t, w)

			testutil.Then(t, "created_at is kept and updated_at is the request time", func(t *testing.T) {
				assert.True(t, rec.CreatedAt.Equal(created))
				assert.True(t, rec.UpdatedAt.Equal(now))
			})
		})
	})

	testutil.Given(t, "a record without created_at", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/domains", store.CreateRecordRequest{
			Domain: "gina", Address: alice, TxHash: "tx-10", Status: "active",
		})

		testutil.When(t, "it is created", func(t *testing.T) {
			w := testutil.Do(router, testutil.WithRequestTime(req, now))
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			testutil.Then(t, "it is stamped with the request time", func(t *testing.T) {
				assert.True(t, testutil.Decode[models.DomainRecord](t, w).CreatedAt.Equal(now))
			})
		})
	})
}
