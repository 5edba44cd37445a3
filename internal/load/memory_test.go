package load

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateMemory(t *testing.T) {
	block, err := AllocateMemory(2, true)
	require.NoError(t, err)
	assert.Equal(t, 2*MiB, block.Size())
	assert.Equal(t, byte(memoryFillByte), block.buf[0])
	assert.Equal(t, byte(memoryFillByte), block.buf[pageSize])

	block.Release()
	assert.Zero(t, block.Size())
	block.Release()
}

func TestAllocateMemoryZero(t *testing.T) {
	block, err := AllocateMemory(0, true)
	require.NoError(t, err)
	assert.Zero(t, block.Size())
}

func TestAllocateMemoryNegative(t *testing.T) {
	_, err := AllocateMemory(-1, false)
	assert.Error(t, err)
}

func TestAllocateMemoryImpossibleSizeIsAnError(t *testing.T) {
	// 1 EiB exceeds the runtime's maximum allocation, so make panics and the panic becomes an error.
	_, err := AllocateMemory(1<<40, false)
	assert.Error(t, err)

	_, err = AllocateMemory(math.MaxInt, false)
	assert.Error(t, err)
}

func TestNilBlock(t *testing.T) {
	var block *MemoryBlock
	assert.Zero(t, block.Size())
	block.Release()
}
