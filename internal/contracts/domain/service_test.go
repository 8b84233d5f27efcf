package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/veriforge/internal/storage"
)

const tokenABI = `[{"type":"constructor","inputs":[{"name":"owner","type":"address"}]},{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]}]`

// mockStore implements ContractStore for testing
type mockStore struct {
	contracts map[string]*storage.Contract // keyed by id
}

func newMockStore() *mockStore {
	return &mockStore{contracts: make(map[string]*storage.Contract)}
}

func (m *mockStore) CreateContract(ctx context.Context, c *storage.Contract) error {
	stored := *c
	stored.CreatedAt = "2025-06-15 10:30:00"
	m.contracts[c.ID] = &stored
	return nil
}

func (m *mockStore) FindContract(ctx context.Context, idOrName string) (*storage.Contract, error) {
	if c, ok := m.contracts[idOrName]; ok {
		return c, nil
	}
	for _, c := range m.contracts {
		if c.Name == idOrName {
			return c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) ListContracts(ctx context.Context, filter storage.ContractFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Contract], error) {
	var contracts []storage.Contract
	for _, c := range m.contracts {
		contracts = append(contracts, *c)
	}
	return &storage.PaginatedResult[storage.Contract]{Data: contracts}, nil
}

func (m *mockStore) DeleteContract(ctx context.Context, idOrName string) error {
	if _, ok := m.contracts[idOrName]; ok {
		delete(m.contracts, idOrName)
		return nil
	}
	for id, c := range m.contracts {
		if c.Name == idOrName {
			delete(m.contracts, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *mockStore) ContractExists(ctx context.Context, name string) (bool, error) {
	for _, c := range m.contracts {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
		setup   func(*mockStore)
	}{
		{
			name: "register new contract",
			req: RegisterRequest{
				Name:            "Token",
				ABI:             []byte(tokenABI),
				Bytecode:        "0x6080604052",
				CompilerVersion: "0.8.28+commit.7893614a",
			},
			wantErr: nil,
		},
		{
			name: "invalid name",
			req: RegisterRequest{
				Name:     "1Token",
				ABI:      []byte(tokenABI),
				Bytecode: "0x6080",
			},
			wantErr: ErrInvalidName,
		},
		{
			name: "unparseable abi",
			req: RegisterRequest{
				Name:     "Token",
				ABI:      []byte(`{"not":"an abi"`),
				Bytecode: "0x6080",
			},
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "bad bytecode",
			req: RegisterRequest{
				Name:     "Token",
				ABI:      []byte(tokenABI),
				Bytecode: "0xZZZZ",
			},
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "invalid compiler version",
			req: RegisterRequest{
				Name:            "Token",
				ABI:             []byte(tokenABI),
				Bytecode:        "0x6080",
				CompilerVersion: "0.8",
			},
			wantErr: ErrInvalidVersion,
		},
		{
			name: "name already taken",
			req: RegisterRequest{
				Name:     "Token",
				ABI:      []byte(tokenABI),
				Bytecode: "0x6080",
			},
			wantErr: ErrAlreadyExists,
			setup: func(m *mockStore) {
				m.contracts["existing-id"] = &storage.Contract{ID: "existing-id", Name: "Token"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			if tt.setup != nil {
				tt.setup(store)
			}

			svc := NewService(store)
			c, err := svc.Register(context.Background(), tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, tt.req.Name, c.Name)
			assert.Equal(t, tt.req.Bytecode, c.Bytecode)
			assert.Equal(t, tt.req.CompilerVersion, c.CompilerVersion)
			assert.False(t, c.CreatedAt.IsZero())
		})
	}
}

func TestService_Get(t *testing.T) {
	store := newMockStore()
	store.contracts["c-123"] = &storage.Contract{
		ID:        "c-123",
		Name:      "Token",
		ABI:       tokenABI,
		Bytecode:  "0x6080",
		CreatedAt: "2025-06-15 10:30:00",
	}

	svc := NewService(store)

	t.Run("by id", func(t *testing.T) {
		c, err := svc.Get(context.Background(), "c-123")
		require.NoError(t, err)
		assert.Equal(t, "Token", c.Name)
		assert.Equal(t, 2025, c.CreatedAt.Year())
	})

	t.Run("by name", func(t *testing.T) {
		c, err := svc.Get(context.Background(), "Token")
		require.NoError(t, err)
		assert.Equal(t, "c-123", c.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Get(context.Background(), "Nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_List(t *testing.T) {
	store := newMockStore()
	store.contracts["c-1"] = &storage.Contract{ID: "c-1", Name: "Token"}
	store.contracts["c-2"] = &storage.Contract{ID: "c-2", Name: "Vault"}

	svc := NewService(store)

	result, err := svc.List(context.Background(), ListFilter{}, PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Contracts, 2)
	assert.False(t, result.HasMore)
}

func TestService_Delete(t *testing.T) {
	store := newMockStore()
	store.contracts["c-1"] = &storage.Contract{ID: "c-1", Name: "Token"}

	svc := NewService(store)

	t.Run("existing", func(t *testing.T) {
		require.NoError(t, svc.Delete(context.Background(), "Token"))
		_, err := svc.Get(context.Background(), "Token")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		err := svc.Delete(context.Background(), "Token")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
