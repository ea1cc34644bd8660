package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bz888/murmur/internal/ollama"
)

type MockModelLister struct {
	mock.Mock
}

func (m *MockModelLister) GetModels(ctx context.Context) ([]ollama.Model, error) {
	args := m.Called(ctx)
	models, _ := args.Get(0).([]ollama.Model)
	return models, args.Error(1)
}

func TestListModelsPassesEntriesThrough(t *testing.T) {
	lister := new(MockModelLister)
	want := []ollama.Model{
		{Name: "llama3:latest", Digest: "365c0bd3c000", Details: ollama.ModelDetails{Family: "llama"}},
		{Name: "llava:7b"},
	}
	lister.On("GetModels", mock.Anything).Return(want, nil).Once()

	got, err := NewCatalog(lister).ListModels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want, got)
	lister.AssertExpectations(t)
}

func TestListModelsBackendUnavailable(t *testing.T) {
	lister := new(MockModelLister)
	lister.On("GetModels", mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewCatalog(lister).ListModels(context.Background())

	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.EqualError(t, err, "backend unavailable: failed to list local models: connection refused")
}
