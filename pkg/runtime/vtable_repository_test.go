package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualTableRepositoryAddAndLookup(t *testing.T) {
	repo := NewVirtualTableRepository()

	idx, err := repo.Add(NewVirtualTable("Int", 8))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = repo.Add(NewVirtualTable("Float", 8))
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	assert.Equal(t, 2, repo.Len())

	vt, err := repo.ByIndex(1)
	require.NoError(t, err)
	assert.Equal(t, "Float", vt.Name())

	vt, err = repo.ByName("Int")
	require.NoError(t, err)
	assert.Equal(t, "Int", vt.Name())

	i, err := repo.IndexOf("Float")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestVirtualTableRepositoryRejectsDuplicateName(t *testing.T) {
	repo := NewVirtualTableRepository()
	_, err := repo.Add(NewVirtualTable("Int", 8))
	require.NoError(t, err)

	_, err = repo.Add(NewVirtualTable("Int", 16))
	assert.Error(t, err)
}

func TestVirtualTableRepositoryOutOfRange(t *testing.T) {
	repo := NewVirtualTableRepository()
	_, err := repo.ByIndex(0)
	assert.Error(t, err)

	_, err = repo.ByName("Nope")
	assert.Error(t, err)
}
