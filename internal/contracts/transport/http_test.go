package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/veriforge/internal/contracts/domain"
)

// mockService implements Service for testing
type mockService struct {
	contracts map[string]*domain.Contract
}

func newMockService() *mockService {
	return &mockService{contracts: make(map[string]*domain.Contract)}
}

func (m *mockService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Contract, error) {
	if req.Name == "" {
		return nil, domain.ErrInvalidName
	}
	if _, ok := m.contracts[req.Name]; ok {
		return nil, domain.ErrAlreadyExists
	}
	c := &domain.Contract{
		ID:              "c-" + req.Name,
		Name:            req.Name,
		ABI:             req.ABI,
		Bytecode:        req.Bytecode,
		CompilerVersion: req.CompilerVersion,
	}
	m.contracts[req.Name] = c
	return c, nil
}

func (m *mockService) Get(ctx context.Context, idOrName string) (*domain.Contract, error) {
	for _, c := range m.contracts {
		if c.ID == idOrName || c.Name == idOrName {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockService) List(ctx context.Context, filter domain.ListFilter, pagination domain.PaginationParams) (*domain.ListResult, error) {
	var contracts []domain.Contract
	for _, c := range m.contracts {
		contracts = append(contracts, *c)
	}
	return &domain.ListResult{Contracts: contracts}, nil
}

func (m *mockService) Delete(ctx context.Context, idOrName string) error {
	for name, c := range m.contracts {
		if c.ID == idOrName || c.Name == idOrName {
			delete(m.contracts, name)
			return nil
		}
	}
	return domain.ErrNotFound
}

func setupRouter(svc Service) *chi.Mux {
	r := chi.NewRouter()
	h := NewHandler(svc)
	r.Route("/contracts", func(r chi.Router) {
		h.RegisterReadRoutes(r)
		h.RegisterWriteRoutes(r)
	})
	return r
}

func TestHandler_Register(t *testing.T) {
	svc := newMockService()
	router := setupRouter(svc)

	body := `{
		"name": "Token",
		"abi": [{"type":"function","name":"mint"}],
		"bytecode": "0x6080604052",
		"compilerVersion": "0.8.28"
	}`

	req := httptest.NewRequest("POST", "/contracts/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	err := json.Unmarshal(rec.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "Token", resp["name"])
	assert.Equal(t, "c-Token", resp["id"])
}

func TestHandler_Register_Artifact(t *testing.T) {
	svc := newMockService()
	router := setupRouter(svc)

	body := `{
		"name": "Token",
		"artifact": {
			"abi": [{"type":"constructor","inputs":[]}],
			"bytecode": {"object": "0x6080604052"},
			"rawMetadata": "{\"compiler\":{\"version\":\"0.8.28+commit.7893614a\"},\"settings\":{\"compilationTarget\":{\"src/Token.sol\":\"Token\"},\"optimizer\":{\"enabled\":true,\"runs\":200}}}"
		}
	}`

	req := httptest.NewRequest("POST", "/contracts/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	c := svc.contracts["Token"]
	require.NotNil(t, c)
	assert.Equal(t, "0x6080604052", c.Bytecode)
	assert.Equal(t, "0.8.28+commit.7893614a", c.CompilerVersion)
}

func TestHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		errCode  string
	}{
		{
			name:     "invalid json",
			body:     `{not json`,
			wantCode: http.StatusBadRequest,
			errCode:  "INVALID_REQUEST",
		},
		{
			name:     "unparseable artifact",
			body:     `{"name": "Token", "artifact": {"abi": [], "bytecode": "0x"}}`,
			wantCode: http.StatusBadRequest,
			errCode:  "INVALID_ARTIFACT",
		},
		{
			name:     "missing name",
			body:     `{"bytecode": "0x6080"}`,
			wantCode: http.StatusBadRequest,
			errCode:  "INVALID_REQUEST",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(newMockService())

			req := httptest.NewRequest("POST", "/contracts/", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.errCode, resp.Error.Code)
		})
	}
}

func TestHandler_Register_Conflict(t *testing.T) {
	svc := newMockService()
	svc.contracts["Token"] = &domain.Contract{ID: "c-Token", Name: "Token"}
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/contracts/", bytes.NewBufferString(`{"name": "Token", "bytecode": "0x6080"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Get(t *testing.T) {
	svc := newMockService()
	svc.contracts["Token"] = &domain.Contract{
		ID:       "c-1",
		Name:     "Token",
		ABI:      []byte(`[{"type":"function","name":"mint"}]`),
		Bytecode: "0x6080",
	}
	router := setupRouter(svc)

	t.Run("by name includes artifact", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/contracts/Token", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "c-1", resp["id"])
		assert.Equal(t, "0x6080", resp["bytecode"])
		assert.Contains(t, resp, "abi")
	})

	t.Run("by id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/contracts/c-1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/contracts/Nope", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_List(t *testing.T) {
	svc := newMockService()
	svc.contracts["Token"] = &domain.Contract{ID: "c-1", Name: "Token"}
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/contracts/", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "data")
	assert.Contains(t, resp, "pagination")
}

func TestHandler_Delete(t *testing.T) {
	svc := newMockService()
	svc.contracts["Token"] = &domain.Contract{ID: "c-1", Name: "Token"}
	router := setupRouter(svc)

	t.Run("existing", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/contracts/Token", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/contracts/Token", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
